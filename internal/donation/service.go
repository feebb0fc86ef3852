package donation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/auditlog"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/notification"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

// ProviderAPI is the slice of the payment provider client the donation
// pipeline depends on.
type ProviderAPI interface {
	Configured() bool
	WebhookID() string
	CreateOrder(ctx context.Context, req *paypal.OrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error)
	CreateProduct(ctx context.Context, req *paypal.ProductRequest) (*paypal.Product, error)
	CreatePlan(ctx context.Context, req *paypal.PlanRequest) (*paypal.Plan, error)
	CreateSubscription(ctx context.Context, req *paypal.SubscriptionRequest) (*paypal.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paypal.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	VerifyWebhookSignature(ctx context.Context, sig *paypal.WebhookSignature, rawEvent []byte) (bool, error)
}

type Service interface {
	// One-time donation flow
	InitiateDonation(ctx context.Context, req *InitiateDonationRequest) (*InitiateDonationResponse, error)
	CaptureDonation(ctx context.Context, orderID, ipAddress string) (*CaptureDonationResponse, error)
	GetDonationStatus(ctx context.Context, pendingID string) (*DonationStatusResponse, error)
	RecentDonations(ctx context.Context, limit int) ([]RecentDonationItem, error)
	GenerateReceiptPDF(ctx context.Context, donationID uint) ([]byte, string, error)

	// Recurring donation flow
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResponse, error)
	ActivateSubscription(ctx context.Context, subscriptionID, ipAddress string) (*SubscriptionStatusResponse, error)
	GetSubscriptionStatus(ctx context.Context, subscriptionID string) (*SubscriptionStatusResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason, ipAddress string) error

	// Provider webhooks
	HandleWebhook(ctx context.Context, rawEvent []byte, sig *paypal.WebhookSignature, ipAddress string) (*WebhookResult, error)
}

type service struct {
	repo     Repository
	provider ProviderAPI
	cache    cache.Cache
	cfg      *config.Config
	auditSvc auditlog.Service
	events   notification.Publisher
}

func NewService(repo Repository, provider ProviderAPI, c cache.Cache, cfg *config.Config, auditSvc auditlog.Service, events notification.Publisher) Service {
	if events == nil {
		events = notification.NoopPublisher{}
	}
	return &service{
		repo:     repo,
		provider: provider,
		cache:    c,
		cfg:      cfg,
		auditSvc: auditSvc,
		events:   events,
	}
}

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{5,64}$`)

// ==============================
// One-Time Donation Flow
// ==============================

// InitiateDonation sanitizes donor input, stages a pending donation and
// creates the provider order. The pending record is written before the
// provider call so a crash between the two leaves a reconcilable trail.
func (s *service) InitiateDonation(ctx context.Context, req *InitiateDonationRequest) (*InitiateDonationResponse, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}

	donor, problems := SanitizeDonorInput(req)
	if len(problems) > 0 {
		return nil, newValidationError(problems...)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, newValidationError("Currency must be a 3-letter ISO code")
	}

	pendingID := uuid.NewString()
	receiptNumber := newReceiptNumber(pendingID)

	pending := &PendingDonation{
		ID:            pendingID,
		DonorName:     donor.Name,
		DonorEmail:    donor.Email,
		DonorPhone:    donor.Phone,
		Amount:        donor.Amount,
		Currency:      currency,
		CampaignName:  donor.CampaignName,
		DonationType:  donor.DonationType,
		Message:       donor.Message,
		ReceiptNumber: receiptNumber,
		Metadata:      req.Metadata,
		Status:        PendingStatusPending,
		ExpiresAt:     time.Now().Add(PendingExpiry),
	}
	if err := s.repo.CreatePending(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to create pending donation: %w", err)
	}

	blob := CorrelationData{
		PendingID:     pendingID,
		ReceiptNumber: receiptNumber,
		DonationType:  donor.DonationType,
	}
	description := donor.CampaignName
	if description == "" {
		description = DefaultPurpose
	}

	order, err := s.provider.CreateOrder(ctx, &paypal.OrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount: &paypal.Amount{
				CurrencyCode: currency,
				Value:        fmt.Sprintf("%.2f", donor.Amount),
			},
			Description: description,
			CustomID:    blob.Pack(),
		}},
		ApplicationContext: &paypal.ApplicationContext{
			BrandName:  "Temple Donations",
			UserAction: "PAY_NOW",
			ReturnURL:  req.ReturnURL,
			CancelURL:  req.CancelURL,
		},
	})
	if err != nil {
		if ferr := s.repo.MarkPendingFailed(ctx, pendingID); ferr != nil {
			log.Printf("⚠️ Failed to mark pending donation %s as failed: %v", pendingID, ferr)
		}
		s.audit(ctx, "DONATION_INITIATE_FAILED", pendingID, map[string]interface{}{
			"amount": donor.Amount,
			"error":  err.Error(),
		}, req.IPAddress, "failure")
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	if err := s.repo.AttachOrder(ctx, pendingID, order.ID); err != nil {
		if ferr := s.repo.MarkPendingFailed(ctx, pendingID); ferr != nil {
			log.Printf("⚠️ Failed to mark pending donation %s as failed: %v", pendingID, ferr)
		}
		return nil, fmt.Errorf("failed to attach order to pending donation: %w", err)
	}

	s.audit(ctx, "DONATION_INITIATED", order.ID, map[string]interface{}{
		"pending_id":     pendingID,
		"amount":         donor.Amount,
		"currency":       currency,
		"donation_type":  donor.DonationType,
		"receipt_number": receiptNumber,
	}, req.IPAddress, "success")

	return &InitiateDonationResponse{
		PendingID:     pendingID,
		OrderID:       order.ID,
		ApprovalURL:   order.ApprovalURL(),
		ReceiptNumber: receiptNumber,
		Amount:        donor.Amount,
		Currency:      currency,
		DonationType:  donor.DonationType,
	}, nil
}

// CaptureDonation confirms a provider order and records the money exactly
// once. The unique index on transaction_id is the backstop for concurrent
// captures of the same order; a duplicate-key insert is treated as an
// already-recorded outcome, never a failure.
func (s *service) CaptureDonation(ctx context.Context, orderID, ipAddress string) (*CaptureDonationResponse, error) {
	if !s.provider.Configured() {
		return nil, ErrNotConfigured
	}
	orderID = strings.TrimSpace(orderID)
	if !orderIDPattern.MatchString(orderID) {
		return nil, newValidationError("Invalid order id")
	}

	resp, err := s.provider.CaptureOrder(ctx, orderID)
	if err != nil {
		// A repeated capture is rejected by the provider before we learn a
		// transaction id; if the order is already recorded locally, report
		// that instead of the provider error.
		var apiErr *paypal.APIError
		if errors.As(err, &apiErr) {
			if existing, lerr := s.repo.GetDonationByOrderID(ctx, orderID); lerr == nil {
				return s.alreadyRecorded(existing), nil
			}
		}
		s.audit(ctx, "DONATION_CAPTURE_FAILED", orderID, map[string]interface{}{"error": err.Error()}, ipAddress, "failure")
		return nil, fmt.Errorf("failed to capture payment: %w", err)
	}

	result, err := extractCapture(orderID, resp)
	if err != nil {
		s.audit(ctx, "DONATION_CAPTURE_FAILED", orderID, map[string]interface{}{"error": err.Error()}, ipAddress, "failure")
		return nil, err
	}

	if existing, err := s.repo.GetDonationByTransactionID(ctx, result.TransactionID); err == nil {
		return s.alreadyRecorded(existing), nil
	}

	pending, err := s.repo.GetPendingByOrderID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("⚠️ Pending lookup failed for order %s: %v", orderID, err)
		}
		pending = nil
	}

	donation, receiptNumber, err := buildDonation(pending, result)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateDonation(ctx, donation); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			if existing, lerr := s.repo.GetDonationByTransactionID(ctx, result.TransactionID); lerr == nil {
				return s.alreadyRecorded(existing), nil
			}
			return nil, &DiscrepancyError{TransactionID: result.TransactionID, Err: err}
		}
		s.audit(ctx, "DONATION_RECORD_FAILED", orderID, map[string]interface{}{
			"transaction_id": result.TransactionID,
			"error":          err.Error(),
		}, ipAddress, "failure")
		return nil, &DiscrepancyError{TransactionID: result.TransactionID, Err: err}
	}

	// The money is recorded; everything below is bookkeeping and must not
	// fail the capture.
	if pending != nil {
		if err := s.repo.MarkPendingCompleted(ctx, orderID, donation.ID); err != nil {
			log.Printf("⚠️ Failed to mark pending donation for order %s as completed: %v", orderID, err)
		}
	}

	s.audit(ctx, "DONATION_CAPTURED", orderID, map[string]interface{}{
		"donation_id":    donation.ID,
		"transaction_id": result.TransactionID,
		"gross_amount":   result.GrossAmount,
		"net_amount":     result.NetAmount,
	}, ipAddress, "success")

	if err := s.events.PublishDonationCompleted(ctx, notification.DonationCompletedEvent{
		DonationID:    donation.ID,
		TransactionID: result.TransactionID,
		ReceiptNumber: receiptNumber,
		DonorName:     donation.DonorName,
		DonorEmail:    donation.DonorEmail,
		Amount:        donation.Amount,
		Currency:      donation.Currency,
		DonationType:  donation.DonationType,
	}); err != nil {
		log.Printf("⚠️ Failed to publish donation-completed event for donation %d: %v", donation.ID, err)
	}

	return &CaptureDonationResponse{
		DonationID:    donation.ID,
		TransactionID: result.TransactionID,
		OrderID:       orderID,
		ReceiptNumber: receiptNumber,
		GrossAmount:   result.GrossAmount,
		ProviderFee:   result.ProviderFee,
		NetAmount:     result.NetAmount,
		Currency:      donation.Currency,
		PayerName:     result.PayerName,
		PayerEmail:    result.PayerEmail,
	}, nil
}

// extractCapture validates the provider response and pulls out the figures
// the donation record needs.
func extractCapture(orderID string, resp *paypal.CaptureOrderResponse) (*CaptureResult, error) {
	capture := resp.FirstCapture()
	if capture == nil || resp.Status != "COMPLETED" || capture.Status != "COMPLETED" {
		status := resp.Status
		if capture != nil && capture.Status != "" {
			status = capture.Status
		}
		return nil, fmt.Errorf("payment capture for order %s not completed (status %s)", orderID, status)
	}
	if capture.ID == "" {
		return nil, fmt.Errorf("payment capture for order %s returned no transaction id", orderID)
	}

	var gross, fee, net float64
	var currency string
	if capture.Amount != nil {
		gross = parseAmount(capture.Amount.Value)
		currency = capture.Amount.CurrencyCode
	}
	net = gross
	if br := capture.SellerReceivableBreakdown; br != nil {
		if br.GrossAmount != nil && br.GrossAmount.Value != "" {
			gross = parseAmount(br.GrossAmount.Value)
			currency = br.GrossAmount.CurrencyCode
		}
		if br.PayPalFee != nil {
			fee = parseAmount(br.PayPalFee.Value)
		}
		if br.NetAmount != nil && br.NetAmount.Value != "" {
			net = parseAmount(br.NetAmount.Value)
		} else {
			net = round2(gross - fee)
		}
	}
	if gross <= 0 {
		return nil, fmt.Errorf("payment capture for order %s returned a non-positive amount", orderID)
	}

	capturedAt := time.Now()
	if capture.CreateTime != "" {
		if t, err := time.Parse(time.RFC3339, capture.CreateTime); err == nil {
			capturedAt = t
		}
	}

	result := &CaptureResult{
		TransactionID: capture.ID,
		OrderID:       orderID,
		GrossAmount:   gross,
		ProviderFee:   fee,
		NetAmount:     net,
		Currency:      currency,
		CapturedAt:    capturedAt,
		Correlation:   ParseCorrelation(capture.CustomID),
	}
	if len(resp.PurchaseUnits) > 0 {
		unit := resp.PurchaseUnits[0]
		if result.Correlation == (CorrelationData{}) {
			result.Correlation = ParseCorrelation(unit.CustomID)
		}
		result.Purpose = unit.Description
	}
	if resp.Payer != nil {
		result.PayerID = resp.Payer.PayerID
		result.PayerName = resp.Payer.FullName()
		result.PayerEmail = resp.Payer.EmailAddress
	}
	return result, nil
}

// buildDonation resolves donor identity, purpose and donation type from the
// pending record, the correlation blob and the payer, in that order.
func buildDonation(pending *PendingDonation, result *CaptureResult) (*Donation, string, error) {
	name := AnonymousDonorName
	email := AnonymousDonorEmail
	phone := ""
	purpose := DefaultPurpose
	receiptNumber := result.Correlation.ReceiptNumber
	dtype := result.Correlation.DonationType
	pendingID := result.Correlation.PendingID

	if pending != nil {
		pendingID = pending.ID
		name = pending.DonorName
		if pending.DonorEmail != nil {
			email = *pending.DonorEmail
		}
		if pending.DonorPhone != nil {
			phone = *pending.DonorPhone
		}
		if pending.ReceiptNumber != "" {
			receiptNumber = pending.ReceiptNumber
		}
		if pending.DonationType != "" {
			dtype = pending.DonationType
		}
		if pending.Message != "" {
			purpose = pending.Message
		} else if pending.CampaignName != "" {
			purpose = pending.CampaignName
		}
	} else {
		if result.PayerName != "" {
			name = result.PayerName
		}
		if result.PayerEmail != "" {
			email = result.PayerEmail
		}
		if result.Purpose != "" {
			purpose = result.Purpose
		}
	}

	if dtype == "" {
		dtype = TypeGeneral
	}
	if !IsValidDonationType(dtype) {
		return nil, "", fmt.Errorf("invalid donation type %q on order %s", dtype, result.OrderID)
	}
	if receiptNumber == "" {
		receiptNumber = newReceiptNumber(result.TransactionID)
	}

	txnID := result.TransactionID
	donation := &Donation{
		DonorName:     name,
		DonorEmail:    email,
		DonorPhone:    phone,
		Amount:        result.GrossAmount,
		Currency:      result.Currency,
		DonationType:  dtype,
		PaymentMethod: "paypal",
		PaymentStatus: PaymentStatusCompleted,
		Purpose:       purpose,
		TransactionID: &txnID,
		Metadata: map[string]interface{}{
			"transaction_id": result.TransactionID,
			"order_id":       result.OrderID,
			"receipt_number": receiptNumber,
			"gross_amount":   result.GrossAmount,
			"net_amount":     result.NetAmount,
			"provider_fee":   result.ProviderFee,
			"payer_id":       result.PayerID,
			"captured_at":    result.CapturedAt.UTC().Format(time.RFC3339),
		},
	}
	if pendingID != "" {
		donation.Metadata["pending_donation_id"] = pendingID
	}
	return donation, receiptNumber, nil
}

func (s *service) alreadyRecorded(d *Donation) *CaptureDonationResponse {
	txnID := ""
	if d.TransactionID != nil {
		txnID = *d.TransactionID
	}
	resp := &CaptureDonationResponse{
		DonationID:      d.ID,
		TransactionID:   txnID,
		OrderID:         d.MetadataString("order_id"),
		ReceiptNumber:   d.MetadataString("receipt_number"),
		GrossAmount:     d.Amount,
		Currency:        d.Currency,
		AlreadyRecorded: true,
	}
	if fee, ok := d.Metadata["provider_fee"].(float64); ok {
		resp.ProviderFee = fee
	}
	if net, ok := d.Metadata["net_amount"].(float64); ok {
		resp.NetAmount = net
	} else {
		resp.NetAmount = d.Amount
	}
	return resp
}

func (s *service) GetDonationStatus(ctx context.Context, pendingID string) (*DonationStatusResponse, error) {
	pending, err := s.repo.GetPendingByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}

	status := pending.Status
	if status == PendingStatusPending && time.Now().After(pending.ExpiresAt) {
		status = "expired"
	}

	resp := &DonationStatusResponse{
		PendingID:     pending.ID,
		Status:        status,
		DonationType:  pending.DonationType,
		Amount:        pending.Amount,
		Currency:      pending.Currency,
		ReceiptNumber: pending.ReceiptNumber,
		OrderID:       pending.OrderID,
		ExpiresAt:     pending.ExpiresAt,
	}

	if pending.Status == PendingStatusCompleted && pending.Metadata != nil {
		if raw, ok := pending.Metadata["donation_id"].(float64); ok {
			id := uint(raw)
			if d, err := s.repo.GetDonationByID(ctx, id); err == nil {
				resp.DonationID = &d.ID
				resp.PaymentStatus = d.PaymentStatus
			}
		}
		if raw, ok := pending.Metadata["completed_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				resp.CompletedAt = &t
			}
		}
	}
	return resp, nil
}

func (s *service) RecentDonations(ctx context.Context, limit int) ([]RecentDonationItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := s.repo.ListRecentDonations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return items, nil
}

// ==============================
// Helpers
// ==============================

func (s *service) audit(ctx context.Context, action, orderID string, details map[string]interface{}, ip, status string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.LogAction(ctx, action, orderID, details, ip, status); err != nil {
		log.Printf("⚠️ Failed to write audit log for %s: %v", action, err)
	}
}

func newReceiptNumber(seed string) string {
	short := strings.ToUpper(strings.ReplaceAll(seed, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("TD-%s-%s", time.Now().Format("20060102"), short)
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
