package donation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

const productCacheKey = "paypal:product_id"

// billingFrequency maps a donor-facing frequency string to the provider's
// interval unit and count. Anything unrecognized falls back to monthly.
type billingFrequency struct {
	name          string
	intervalUnit  string
	intervalCount int
}

var billingFrequencies = map[string]billingFrequency{
	"weekly":    {name: "weekly", intervalUnit: "WEEK", intervalCount: 1},
	"monthly":   {name: "monthly", intervalUnit: "MONTH", intervalCount: 1},
	"quarterly": {name: "quarterly", intervalUnit: "MONTH", intervalCount: 3},
	"yearly":    {name: "yearly", intervalUnit: "YEAR", intervalCount: 1},
}

func resolveFrequency(raw string) billingFrequency {
	if f, ok := billingFrequencies[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return f
	}
	return billingFrequencies["monthly"]
}

// CreateSubscription provisions the catalog product (cached across calls),
// creates a billing plan for the requested amount and frequency, and starts
// the subscription. The donor approves it via the returned URL.
func (s *service) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}

	amount, err := ValidateAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, newValidationError("Currency must be a 3-letter ISO code")
	}
	freq := resolveFrequency(req.Frequency)

	donorName := SanitizeText(req.DonorName, maxNameLen)
	donorEmail := SanitizeEmail(req.DonorEmail)

	productID, err := s.recurringProductID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision recurring donation product: %w", err)
	}

	plan, err := s.provider.CreatePlan(ctx, &paypal.PlanRequest{
		ProductID: productID,
		Name:      fmt.Sprintf("Recurring %s donation of %.2f %s", freq.name, amount, currency),
		Status:    "ACTIVE",
		BillingCycles: []paypal.BillingCycle{{
			Frequency: &paypal.Frequency{
				IntervalUnit:  freq.intervalUnit,
				IntervalCount: freq.intervalCount,
			},
			TenureType:  "REGULAR",
			Sequence:    1,
			TotalCycles: 0,
			PricingScheme: &paypal.PricingScheme{
				FixedPrice: &paypal.Amount{
					CurrencyCode: currency,
					Value:        fmt.Sprintf("%.2f", amount),
				},
			},
		}},
		PaymentPreferences: &paypal.PaymentPreferences{
			AutoBillOutstanding:     true,
			PaymentFailureThreshold: 3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create billing plan: %w", err)
	}

	subReq := &paypal.SubscriptionRequest{
		PlanID: plan.ID,
		ApplicationContext: &paypal.ApplicationContext{
			BrandName:  "Temple Donations",
			UserAction: "SUBSCRIBE_NOW",
			ReturnURL:  req.ReturnURL,
			CancelURL:  req.CancelURL,
		},
	}
	if donorName != "" || donorEmail != nil {
		subscriber := &paypal.Subscriber{}
		if donorEmail != nil {
			subscriber.EmailAddress = *donorEmail
		}
		if donorName != "" {
			subscriber.Name = &paypal.Name{GivenName: donorName}
		}
		subReq.Subscriber = subscriber
	}

	sub, err := s.provider.CreateSubscription(ctx, subReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.audit(ctx, "SUBSCRIPTION_CREATED", sub.ID, map[string]interface{}{
		"plan_id":   plan.ID,
		"amount":    amount,
		"currency":  currency,
		"frequency": freq.name,
	}, req.IPAddress, "success")

	return &CreateSubscriptionResponse{
		SubscriptionID: sub.ID,
		PlanID:         plan.ID,
		ApprovalURL:    sub.ApprovalURL(),
		Status:         sub.Status,
		Amount:         amount,
		Frequency:      freq.name,
	}, nil
}

// recurringProductID returns the shared catalog product id, creating the
// product on first use.
func (s *service) recurringProductID(ctx context.Context) (string, error) {
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, productCacheKey); err == nil && v != "" {
			return v, nil
		} else if err != nil && !errors.Is(err, cache.ErrNotFound) {
			log.Printf("⚠️ Product id cache lookup failed: %v", err)
		}
	}

	product, err := s.provider.CreateProduct(ctx, &paypal.ProductRequest{
		Name:        "Temple Recurring Donations",
		Description: "Recurring donations to the temple",
		Type:        "SERVICE",
		Category:    "NONPROFIT",
	})
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, productCacheKey, product.ID, 30*24*time.Hour); err != nil {
			log.Printf("⚠️ Failed to cache product id: %v", err)
		}
	}
	return product.ID, nil
}

// ActivateSubscription fetches the provider state after donor approval and
// records the recurring donation row. Re-activation of a known subscription
// updates the existing row instead of inserting a second one.
func (s *service) ActivateSubscription(ctx context.Context, subscriptionID, ipAddress string) (*SubscriptionStatusResponse, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, newValidationError("Subscription id is required")
	}

	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}

	status := PaymentStatusPending
	if sub.Status == "ACTIVE" {
		status = PaymentStatusCompleted
	}

	if existing, err := s.repo.GetDonationBySubscriptionID(ctx, subscriptionID); err == nil {
		if existing.PaymentStatus != status {
			if _, uerr := s.repo.UpdateStatusBySubscriptionID(ctx, subscriptionID, status); uerr != nil {
				return nil, fmt.Errorf("failed to update subscription donation: %w", uerr)
			}
		}
		return &SubscriptionStatusResponse{
			SubscriptionID: sub.ID,
			PlanID:         sub.PlanID,
			Status:         sub.Status,
		}, nil
	}

	name := AnonymousDonorName
	email := AnonymousDonorEmail
	if sub.Subscriber != nil {
		if n := subscriberName(sub.Subscriber); n != "" {
			name = n
		}
		if sub.Subscriber.EmailAddress != "" {
			email = sub.Subscriber.EmailAddress
		}
	}

	amount := 0.0
	currency := "USD"
	if sub.BillingInfo != nil && sub.BillingInfo.LastPayment != nil && sub.BillingInfo.LastPayment.Amount != nil {
		amount = parseAmount(sub.BillingInfo.LastPayment.Amount.Value)
		if sub.BillingInfo.LastPayment.Amount.CurrencyCode != "" {
			currency = sub.BillingInfo.LastPayment.Amount.CurrencyCode
		}
	}

	donation := &Donation{
		DonorName:     name,
		DonorEmail:    email,
		Amount:        amount,
		Currency:      currency,
		DonationType:  TypeRecurring,
		PaymentMethod: "paypal",
		PaymentStatus: status,
		Purpose:       "Recurring temple donation",
		Metadata: map[string]interface{}{
			"subscription_id": subscriptionID,
			"plan_id":         sub.PlanID,
			"activated_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		return nil, fmt.Errorf("failed to record subscription donation: %w", err)
	}

	s.audit(ctx, "SUBSCRIPTION_ACTIVATED", subscriptionID, map[string]interface{}{
		"donation_id": donation.ID,
		"plan_id":     sub.PlanID,
		"status":      sub.Status,
	}, ipAddress, "success")

	return &SubscriptionStatusResponse{
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
	}, nil
}

func (s *service) GetSubscriptionStatus(ctx context.Context, subscriptionID string) (*SubscriptionStatusResponse, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	sub, err := s.provider.GetSubscription(ctx, strings.TrimSpace(subscriptionID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &SubscriptionStatusResponse{
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
	}, nil
}

// CancelSubscription cancels at the provider first; the provider is the
// source of truth for future charges. Local rows are then moved to
// cancelled via the metadata correlation.
func (s *service) CancelSubscription(ctx context.Context, subscriptionID, reason, ipAddress string) error {
	if !s.provider.Configured() {
		return ErrNotConfigured
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return newValidationError("Subscription id is required")
	}
	if reason == "" {
		reason = "Donor requested cancellation"
	}

	if err := s.provider.CancelSubscription(ctx, subscriptionID, reason); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	updated, err := s.repo.UpdateStatusBySubscriptionID(ctx, subscriptionID, PaymentStatusCancelled)
	if err != nil {
		return fmt.Errorf("subscription cancelled at provider but local update failed: %w", err)
	}
	if updated == 0 {
		log.Printf("⚠️ No local donation rows matched cancelled subscription %s", subscriptionID)
	}

	s.audit(ctx, "SUBSCRIPTION_CANCELLED", subscriptionID, map[string]interface{}{
		"reason":       reason,
		"rows_updated": updated,
	}, ipAddress, "success")
	return nil
}

func subscriberName(sub *paypal.Subscriber) string {
	if sub == nil || sub.Name == nil {
		return ""
	}
	name := strings.TrimSpace(sub.Name.GivenName + " " + sub.Name.Surname)
	return name
}
