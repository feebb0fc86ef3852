package donation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

// WebhookEvent is the envelope the provider posts to the webhook endpoint.
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

// captureResource covers both capture events (id is the capture; the order
// id rides in supplementary_data) and order events (id is the order).
type captureResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	SupplementaryData *struct {
		RelatedIDs *struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

func (r *captureResource) orderID() string {
	if r.SupplementaryData != nil && r.SupplementaryData.RelatedIDs != nil && r.SupplementaryData.RelatedIDs.OrderID != "" {
		return r.SupplementaryData.RelatedIDs.OrderID
	}
	return r.ID
}

// saleResource is the legacy Payments-API shape used by PAYMENT.SALE.*
// events for subscription charges.
type saleResource struct {
	ID     string `json:"id"`
	Amount *struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
	BillingAgreementID string `json:"billing_agreement_id"`
}

// HandleWebhook verifies and dispatches a provider event. Handler failures
// for state-changing events are logged and swallowed; the provider retries
// only on non-2xx, and a retry of a failed local write is not safe to
// distinguish from a duplicate delivery.
func (s *service) HandleWebhook(ctx context.Context, rawEvent []byte, sig *paypal.WebhookSignature, ipAddress string) (*WebhookResult, error) {
	if s.provider.WebhookID() != "" {
		ok, err := s.provider.VerifyWebhookSignature(ctx, sig, rawEvent)
		if err != nil {
			return nil, fmt.Errorf("webhook signature verification failed: %w", err)
		}
		if !ok {
			return nil, ErrBadSignature
		}
	} else {
		log.Printf("⚠️ Webhook signature verification skipped: no webhook id configured")
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawEvent, &event); err != nil {
		return nil, newValidationError("Malformed webhook payload")
	}

	result := &WebhookResult{Processed: true}

	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		var res captureResource
		if err := json.Unmarshal(event.Resource, &res); err == nil {
			result.CorrelatingID = res.ID
		}
		result.Action = "order_approved_acknowledged"

	case "PAYMENT.CAPTURE.COMPLETED":
		// Capture completion is recorded by the capture endpoint; the
		// webhook only confirms it.
		var res captureResource
		if err := json.Unmarshal(event.Resource, &res); err == nil {
			result.CorrelatingID = res.orderID()
		}
		result.Action = "capture_acknowledged"

	case "PAYMENT.CAPTURE.REFUNDED":
		var res captureResource
		if err := json.Unmarshal(event.Resource, &res); err == nil {
			result.CorrelatingID = res.orderID()
		}
		result.Action = "refund_acknowledged"

	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		var res captureResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			log.Printf("⚠️ Unparseable %s resource: %v", event.EventType, err)
			result.Action = "capture_denied_unparseable"
			break
		}
		orderID := res.orderID()
		result.CorrelatingID = orderID
		result.Action = "pending_marked_failed"
		if err := s.repo.MarkPendingFailedByOrderID(ctx, orderID); err != nil {
			log.Printf("⚠️ Failed to mark pending donation for order %s as failed: %v", orderID, err)
		}
		s.audit(ctx, "DONATION_CAPTURE_DENIED", orderID, map[string]interface{}{
			"event_type": event.EventType,
		}, ipAddress, "failure")

	case "BILLING.SUBSCRIPTION.ACTIVATED":
		var res struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Resource, &res); err != nil || res.ID == "" {
			result.Action = "subscription_activated_unparseable"
			break
		}
		result.CorrelatingID = res.ID
		result.Action = "subscription_activated"
		if _, err := s.ActivateSubscription(ctx, res.ID, ipAddress); err != nil {
			log.Printf("⚠️ Webhook activation of subscription %s failed: %v", res.ID, err)
		}

	case "BILLING.SUBSCRIPTION.CANCELLED", "BILLING.SUBSCRIPTION.SUSPENDED":
		var res struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Resource, &res); err != nil || res.ID == "" {
			result.Action = "subscription_update_unparseable"
			break
		}
		status := PaymentStatusCancelled
		result.Action = "subscription_cancelled"
		if event.EventType == "BILLING.SUBSCRIPTION.SUSPENDED" {
			status = PaymentStatusSuspended
			result.Action = "subscription_suspended"
		}
		result.CorrelatingID = res.ID
		updated, err := s.repo.UpdateStatusBySubscriptionID(ctx, res.ID, status)
		if err != nil {
			log.Printf("⚠️ Failed to update donations for subscription %s: %v", res.ID, err)
		} else if updated == 0 {
			log.Printf("⚠️ No local donation rows matched subscription %s", res.ID)
		}

	case "PAYMENT.SALE.COMPLETED":
		result.Action = "recurring_payment_recorded"
		s.handleSaleCompleted(ctx, event.Resource, result)

	default:
		result.Processed = false
		result.Action = "unhandled"
		log.Printf("Unhandled webhook event type %s", event.EventType)
	}

	return result, nil
}

// handleSaleCompleted records one recurring charge as its own donation row,
// keyed by the sale transaction id so redelivered events stay idempotent.
func (s *service) handleSaleCompleted(ctx context.Context, resource json.RawMessage, result *WebhookResult) {
	var sale saleResource
	if err := json.Unmarshal(resource, &sale); err != nil || sale.ID == "" {
		log.Printf("⚠️ Unparseable sale resource: %v", err)
		result.Action = "recurring_payment_unparseable"
		return
	}
	result.CorrelatingID = sale.BillingAgreementID

	if _, err := s.repo.GetDonationByTransactionID(ctx, sale.ID); err == nil {
		result.Action = "recurring_payment_duplicate"
		return
	}

	amount := 0.0
	currency := "USD"
	if sale.Amount != nil {
		amount = parseAmount(sale.Amount.Total)
		if sale.Amount.Currency != "" {
			currency = strings.ToUpper(sale.Amount.Currency)
		}
	}

	name := AnonymousDonorName
	email := AnonymousDonorEmail
	if sale.BillingAgreementID != "" {
		if existing, err := s.repo.GetDonationBySubscriptionID(ctx, sale.BillingAgreementID); err == nil {
			name = existing.DonorName
			if existing.DonorEmail != "" {
				email = existing.DonorEmail
			}
		}
	}

	txnID := sale.ID
	donation := &Donation{
		DonorName:     name,
		DonorEmail:    email,
		Amount:        amount,
		Currency:      currency,
		DonationType:  TypeRecurring,
		PaymentMethod: "paypal",
		PaymentStatus: PaymentStatusCompleted,
		Purpose:       "Recurring temple donation",
		TransactionID: &txnID,
		Metadata: map[string]interface{}{
			"transaction_id":  sale.ID,
			"subscription_id": sale.BillingAgreementID,
			"recorded_at":     time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			result.Action = "recurring_payment_duplicate"
			return
		}
		log.Printf("⚠️ Failed to record recurring payment %s: %v", sale.ID, err)
		result.Action = "recurring_payment_record_failed"
	}
}
