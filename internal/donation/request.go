package donation

import "time"

// ==============================
// DTOs and Request/Response Models
// ==============================

// InitiateDonationRequest is sent by the frontend to start a checkout.
type InitiateDonationRequest struct {
	Amount       float64                `json:"amount" binding:"required"`
	Currency     string                 `json:"currency,omitempty"`
	DonorName    string                 `json:"donorName,omitempty"`
	DonorEmail   string                 `json:"donorEmail,omitempty"`
	DonorPhone   string                 `json:"donorPhone,omitempty"`
	CampaignName string                 `json:"campaignName,omitempty"`
	DonationType string                 `json:"donationType,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ReturnURL    string                 `json:"returnUrl,omitempty"`
	CancelURL    string                 `json:"cancelUrl,omitempty"`
	IPAddress    string                 `json:"-"` // Filled from middleware
}

// InitiateDonationResponse is returned after the provider order is created.
type InitiateDonationResponse struct {
	PendingID     string  `json:"pendingId"`
	OrderID       string  `json:"orderId"`
	ApprovalURL   string  `json:"approvalUrl"`
	ReceiptNumber string  `json:"receiptNumber"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	DonationType  string  `json:"donationType"`
}

// CaptureDonationRequest confirms a provider order after the browser redirect.
type CaptureDonationRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	IPAddress string `json:"-"`
}

// CaptureResult is the transient outcome of confirming a provider order,
// consumed immediately to build the Donation row.
type CaptureResult struct {
	TransactionID string
	OrderID       string
	GrossAmount   float64
	ProviderFee   float64
	NetAmount     float64
	Currency      string
	PayerID       string
	PayerName     string
	PayerEmail    string
	Purpose       string
	CapturedAt    time.Time
	Correlation   CorrelationData
}

// CaptureDonationResponse is returned from the capture endpoint. The same
// payload is returned for a repeated capture of an already-recorded
// transaction, with AlreadyRecorded set.
type CaptureDonationResponse struct {
	DonationID      uint    `json:"donationId"`
	TransactionID   string  `json:"transactionId"`
	OrderID         string  `json:"orderId"`
	ReceiptNumber   string  `json:"receiptNumber,omitempty"`
	GrossAmount     float64 `json:"grossAmount"`
	ProviderFee     float64 `json:"providerFee"`
	NetAmount       float64 `json:"netAmount"`
	Currency        string  `json:"currency"`
	PayerName       string  `json:"payerName,omitempty"`
	PayerEmail      string  `json:"payerEmail,omitempty"`
	AlreadyRecorded bool    `json:"alreadyRecorded,omitempty"`
}

// DonationStatusResponse backs the frontend polling endpoint.
type DonationStatusResponse struct {
	PendingID     string     `json:"pendingId"`
	Status        string     `json:"status"`
	DonationType  string     `json:"donationType"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	ReceiptNumber string     `json:"receiptNumber"`
	OrderID       *string    `json:"orderId,omitempty"`
	DonationID    *uint      `json:"donationId,omitempty"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// CreateSubscriptionRequest starts a recurring donation.
type CreateSubscriptionRequest struct {
	Amount     float64 `json:"amount" binding:"required"`
	Currency   string  `json:"currency,omitempty"`
	Frequency  string  `json:"frequency,omitempty"`
	DonorName  string  `json:"donorName,omitempty"`
	DonorEmail string  `json:"donorEmail,omitempty"`
	ReturnURL  string  `json:"returnUrl,omitempty"`
	CancelURL  string  `json:"cancelUrl,omitempty"`
	IPAddress  string  `json:"-"`
}

// CreateSubscriptionResponse carries the approval redirect URL.
type CreateSubscriptionResponse struct {
	SubscriptionID string  `json:"subscriptionId"`
	PlanID         string  `json:"planId"`
	ApprovalURL    string  `json:"approvalUrl"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Frequency      string  `json:"frequency"`
}

// ActivateSubscriptionRequest confirms a subscription after approval.
type ActivateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
	IPAddress      string `json:"-"`
}

// SubscriptionStatusResponse mirrors the provider subscription state.
type SubscriptionStatusResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	PlanID         string `json:"planId,omitempty"`
	Status         string `json:"status"`
}

// CancelSubscriptionRequest cancels a recurring donation.
type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
	Reason         string `json:"reason,omitempty"`
	IPAddress      string `json:"-"`
}

// WebhookResult reports what the dispatcher did with a provider event.
type WebhookResult struct {
	Processed     bool   `json:"processed"`
	Action        string `json:"action"`
	CorrelatingID string `json:"correlatingId,omitempty"`
}

// RecentDonationItem is the trimmed listing shape for dashboards.
type RecentDonationItem struct {
	ID            uint      `json:"id"`
	DonorName     string    `json:"donorName"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	DonationType  string    `json:"donationType"`
	PaymentStatus string    `json:"paymentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}
