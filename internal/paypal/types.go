package paypal

// Wire types for the subset of the PayPal REST API the donation pipeline uses.
// Field names follow the provider's JSON exactly.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Amount is the money value attached to orders and captures.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// PurchaseUnit carries the order amount plus the correlation custom_id echoed
// back on capture.
type PurchaseUnit struct {
	ReferenceID string  `json:"reference_id,omitempty"`
	Description string  `json:"description,omitempty"`
	CustomID    string  `json:"custom_id,omitempty"`
	Amount      *Amount `json:"amount,omitempty"`
}

// ApplicationContext controls the provider-hosted checkout pages.
type ApplicationContext struct {
	BrandName  string `json:"brand_name,omitempty"`
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

// OrderRequest creates a checkout order.
type OrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// Link is a HATEOAS link returned by the provider.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Order is the response for order create/get calls.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// ApprovalURL returns the link the payer must be redirected to, or "".
func (o *Order) ApprovalURL() string {
	for _, link := range o.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// Name is the payer name object.
type Name struct {
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

// Payer identifies who paid.
type Payer struct {
	PayerID      string `json:"payer_id,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Name         *Name  `json:"name,omitempty"`
}

// FullName joins given name and surname, trimming the gap when one is empty.
func (p *Payer) FullName() string {
	if p == nil || p.Name == nil {
		return ""
	}
	if p.Name.GivenName == "" {
		return p.Name.Surname
	}
	if p.Name.Surname == "" {
		return p.Name.GivenName
	}
	return p.Name.GivenName + " " + p.Name.Surname
}

// SellerReceivableBreakdown is the gross/fee/net split on a capture.
type SellerReceivableBreakdown struct {
	GrossAmount *Amount `json:"gross_amount,omitempty"`
	PayPalFee   *Amount `json:"paypal_fee,omitempty"`
	NetAmount   *Amount `json:"net_amount,omitempty"`
}

// Capture is one settled payment inside a capture response.
type Capture struct {
	ID                        string                     `json:"id"`
	Status                    string                     `json:"status"`
	CustomID                  string                     `json:"custom_id,omitempty"`
	Amount                    *Amount                    `json:"amount,omitempty"`
	SellerReceivableBreakdown *SellerReceivableBreakdown `json:"seller_receivable_breakdown,omitempty"`
	CreateTime                string                     `json:"create_time,omitempty"`
}

// CapturePayments wraps the captures list on a purchase unit.
type CapturePayments struct {
	Captures []Capture `json:"captures"`
}

// CapturedPurchaseUnit is a purchase unit as echoed on capture.
type CapturedPurchaseUnit struct {
	ReferenceID string           `json:"reference_id,omitempty"`
	Description string           `json:"description,omitempty"`
	CustomID    string           `json:"custom_id,omitempty"`
	Payments    *CapturePayments `json:"payments,omitempty"`
}

// CaptureOrderResponse is the full capture response.
type CaptureOrderResponse struct {
	ID            string                 `json:"id"`
	Status        string                 `json:"status"`
	PurchaseUnits []CapturedPurchaseUnit `json:"purchase_units"`
	Payer         *Payer                 `json:"payer,omitempty"`
}

// FirstCapture returns the first capture in the response, or nil.
func (r *CaptureOrderResponse) FirstCapture() *Capture {
	for _, unit := range r.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for i := range unit.Payments.Captures {
			return &unit.Payments.Captures[i]
		}
	}
	return nil
}

// ProductRequest provisions a catalog product for recurring billing.
type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
}

// Product is the catalog product response.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Frequency is the billing cycle interval.
type Frequency struct {
	IntervalUnit  string `json:"interval_unit"`
	IntervalCount int    `json:"interval_count"`
}

// PricingScheme is the per-cycle charge.
type PricingScheme struct {
	FixedPrice *Amount `json:"fixed_price,omitempty"`
}

// BillingCycle describes one recurring charge cycle.
type BillingCycle struct {
	Frequency     *Frequency     `json:"frequency,omitempty"`
	TenureType    string         `json:"tenure_type"`
	Sequence      int            `json:"sequence"`
	TotalCycles   int            `json:"total_cycles"`
	PricingScheme *PricingScheme `json:"pricing_scheme,omitempty"`
}

// PaymentPreferences configures failure handling on a plan.
type PaymentPreferences struct {
	AutoBillOutstanding     bool   `json:"auto_bill_outstanding"`
	SetupFeeFailureAction   string `json:"setup_fee_failure_action,omitempty"`
	PaymentFailureThreshold int    `json:"payment_failure_threshold,omitempty"`
}

// PlanRequest creates a billing plan.
type PlanRequest struct {
	ProductID          string              `json:"product_id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Status             string              `json:"status,omitempty"`
	BillingCycles      []BillingCycle      `json:"billing_cycles"`
	PaymentPreferences *PaymentPreferences `json:"payment_preferences,omitempty"`
}

// Plan is the billing plan response.
type Plan struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Subscriber identifies the subscriber on subscription creation.
type Subscriber struct {
	Name         *Name  `json:"name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// SubscriptionRequest creates a subscription on a plan.
type SubscriptionRequest struct {
	PlanID             string              `json:"plan_id"`
	CustomID           string              `json:"custom_id,omitempty"`
	Subscriber         *Subscriber         `json:"subscriber,omitempty"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// LastPayment is the most recent charge on an active subscription.
type LastPayment struct {
	Amount *Amount `json:"amount,omitempty"`
	Time   string  `json:"time,omitempty"`
}

// BillingInfo is the billing summary attached to a subscription.
type BillingInfo struct {
	LastPayment *LastPayment `json:"last_payment,omitempty"`
}

// Subscription is the subscription create/get response. Status strings are
// provider-defined (ACTIVE, CANCELLED, SUSPENDED, ...) and stored verbatim.
type Subscription struct {
	ID          string       `json:"id"`
	PlanID      string       `json:"plan_id,omitempty"`
	Status      string       `json:"status"`
	CustomID    string       `json:"custom_id,omitempty"`
	Subscriber  *Subscriber  `json:"subscriber,omitempty"`
	BillingInfo *BillingInfo `json:"billing_info,omitempty"`
	Links       []Link       `json:"links"`
}

// ApprovalURL returns the subscriber approval link, or "".
func (s *Subscription) ApprovalURL() string {
	for _, link := range s.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// WebhookSignature is the header set forwarded to the verification endpoint.
type WebhookSignature struct {
	AuthAlgo         string `json:"auth_algo"`
	CertURL          string `json:"cert_url"`
	TransmissionID   string `json:"transmission_id"`
	TransmissionSig  string `json:"transmission_sig"`
	TransmissionTime string `json:"transmission_time"`
}

type verifyWebhookRequest struct {
	AuthAlgo         string      `json:"auth_algo"`
	CertURL          string      `json:"cert_url"`
	TransmissionID   string      `json:"transmission_id"`
	TransmissionSig  string      `json:"transmission_sig"`
	TransmissionTime string      `json:"transmission_time"`
	WebhookID        string      `json:"webhook_id"`
	WebhookEvent     interface{} `json:"webhook_event"`
}

type verifyWebhookResponse struct {
	VerificationStatus string `json:"verification_status"`
}
