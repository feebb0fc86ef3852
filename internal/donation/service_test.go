package donation_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/donation"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/notification"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

// Mock repository for testing
type mockRepo struct {
	pendings  map[string]*donation.PendingDonation
	donations []*donation.Donation
	nextID    uint

	createPendingErr  error
	createDonationErr error
	attachOrderErr    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{pendings: make(map[string]*donation.PendingDonation), nextID: 1}
}

func (m *mockRepo) CreatePending(ctx context.Context, pending *donation.PendingDonation) error {
	if m.createPendingErr != nil {
		return m.createPendingErr
	}
	copied := *pending
	m.pendings[pending.ID] = &copied
	return nil
}

func (m *mockRepo) GetPendingByID(ctx context.Context, id string) (*donation.PendingDonation, error) {
	if p, ok := m.pendings[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) GetPendingByOrderID(ctx context.Context, orderID string) (*donation.PendingDonation, error) {
	for _, p := range m.pendings {
		if p.OrderID != nil && *p.OrderID == orderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) AttachOrder(ctx context.Context, pendingID, orderID string) error {
	if m.attachOrderErr != nil {
		return m.attachOrderErr
	}
	if p, ok := m.pendings[pendingID]; ok && p.Status == donation.PendingStatusPending {
		p.OrderID = &orderID
		p.Status = donation.PendingStatusProcessing
	}
	return nil
}

func (m *mockRepo) MarkPendingCompleted(ctx context.Context, orderID string, donationID uint) error {
	for _, p := range m.pendings {
		if p.OrderID != nil && *p.OrderID == orderID {
			p.Status = donation.PendingStatusCompleted
			p.Metadata = donation.MergeCompletionMetadata(p.Metadata, donationID, time.Now())
		}
	}
	return nil
}

func (m *mockRepo) MarkPendingFailed(ctx context.Context, pendingID string) error {
	if p, ok := m.pendings[pendingID]; ok {
		p.Status = donation.PendingStatusFailed
	}
	return nil
}

func (m *mockRepo) MarkPendingFailedByOrderID(ctx context.Context, orderID string) error {
	for _, p := range m.pendings {
		if p.OrderID != nil && *p.OrderID == orderID {
			p.Status = donation.PendingStatusFailed
		}
	}
	return nil
}

func (m *mockRepo) CreateDonation(ctx context.Context, d *donation.Donation) error {
	if m.createDonationErr != nil {
		return m.createDonationErr
	}
	if d.TransactionID != nil {
		for _, existing := range m.donations {
			if existing.TransactionID != nil && *existing.TransactionID == *d.TransactionID {
				return donation.ErrDuplicateTransaction
			}
		}
	}
	d.ID = m.nextID
	m.nextID++
	copied := *d
	m.donations = append(m.donations, &copied)
	return nil
}

func (m *mockRepo) GetDonationByID(ctx context.Context, id uint) (*donation.Donation, error) {
	for _, d := range m.donations {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) GetDonationByTransactionID(ctx context.Context, transactionID string) (*donation.Donation, error) {
	for _, d := range m.donations {
		if d.TransactionID != nil && *d.TransactionID == transactionID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) GetDonationByOrderID(ctx context.Context, orderID string) (*donation.Donation, error) {
	for _, d := range m.donations {
		if d.MetadataString("order_id") == orderID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) GetDonationBySubscriptionID(ctx context.Context, subscriptionID string) (*donation.Donation, error) {
	for _, d := range m.donations {
		if d.MetadataString("subscription_id") == subscriptionID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, donation.ErrNotFound
}

func (m *mockRepo) UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) (int64, error) {
	var updated int64
	for _, d := range m.donations {
		if d.MetadataString("subscription_id") == subscriptionID {
			d.PaymentStatus = status
			updated++
		}
	}
	return updated, nil
}

func (m *mockRepo) ListRecentDonations(ctx context.Context, limit int) ([]donation.RecentDonationItem, error) {
	var items []donation.RecentDonationItem
	for i := len(m.donations) - 1; i >= 0 && len(items) < limit; i-- {
		d := m.donations[i]
		items = append(items, donation.RecentDonationItem{
			ID:            d.ID,
			DonorName:     d.DonorName,
			Amount:        d.Amount,
			Currency:      d.Currency,
			DonationType:  d.DonationType,
			PaymentStatus: d.PaymentStatus,
			CreatedAt:     d.CreatedAt,
		})
	}
	return items, nil
}

// Mock provider for testing
type mockProvider struct {
	configured bool
	webhookID  string

	createOrderErr error
	lastOrderReq   *paypal.OrderRequest
	orderCount     int

	captureResp *paypal.CaptureOrderResponse
	captureErr  error

	productCount int
	lastPlanReq  *paypal.PlanRequest
	subscription *paypal.Subscription
	subErr       error
	cancelErr    error

	verifyOK  bool
	verifyErr error
}

func newMockProvider() *mockProvider {
	return &mockProvider{configured: true, verifyOK: true}
}

func (m *mockProvider) Configured() bool  { return m.configured }
func (m *mockProvider) WebhookID() string { return m.webhookID }

func (m *mockProvider) CreateOrder(ctx context.Context, req *paypal.OrderRequest) (*paypal.Order, error) {
	if m.createOrderErr != nil {
		return nil, m.createOrderErr
	}
	m.orderCount++
	m.lastOrderReq = req
	return &paypal.Order{
		ID:     fmt.Sprintf("ORDER-%d", m.orderCount),
		Status: "CREATED",
		Links:  []paypal.Link{{Href: "https://provider.test/approve", Rel: "approve", Method: "GET"}},
	}, nil
}

func (m *mockProvider) CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error) {
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	return m.captureResp, nil
}

func (m *mockProvider) CreateProduct(ctx context.Context, req *paypal.ProductRequest) (*paypal.Product, error) {
	m.productCount++
	return &paypal.Product{ID: fmt.Sprintf("PROD-%d", m.productCount), Name: req.Name}, nil
}

func (m *mockProvider) CreatePlan(ctx context.Context, req *paypal.PlanRequest) (*paypal.Plan, error) {
	m.lastPlanReq = req
	return &paypal.Plan{ID: "PLAN-1", Status: "ACTIVE"}, nil
}

func (m *mockProvider) CreateSubscription(ctx context.Context, req *paypal.SubscriptionRequest) (*paypal.Subscription, error) {
	if m.subErr != nil {
		return nil, m.subErr
	}
	return &paypal.Subscription{
		ID:     "SUB-1",
		PlanID: req.PlanID,
		Status: "APPROVAL_PENDING",
		Links:  []paypal.Link{{Href: "https://provider.test/subscribe", Rel: "approve", Method: "GET"}},
	}, nil
}

func (m *mockProvider) GetSubscription(ctx context.Context, subscriptionID string) (*paypal.Subscription, error) {
	if m.subErr != nil {
		return nil, m.subErr
	}
	if m.subscription != nil {
		return m.subscription, nil
	}
	return &paypal.Subscription{ID: subscriptionID, Status: "ACTIVE"}, nil
}

func (m *mockProvider) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	return m.cancelErr
}

func (m *mockProvider) VerifyWebhookSignature(ctx context.Context, sig *paypal.WebhookSignature, rawEvent []byte) (bool, error) {
	if m.verifyErr != nil {
		return false, m.verifyErr
	}
	return m.verifyOK, nil
}

// Mock publisher for testing
type mockPublisher struct {
	events []notification.DonationCompletedEvent
	err    error
}

func (m *mockPublisher) PublishDonationCompleted(ctx context.Context, event notification.DonationCompletedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func completedCapture(orderID, txnID, customID string) *paypal.CaptureOrderResponse {
	return &paypal.CaptureOrderResponse{
		ID:     orderID,
		Status: "COMPLETED",
		PurchaseUnits: []paypal.CapturedPurchaseUnit{{
			CustomID:    customID,
			Description: "Temple donation",
			Payments:    &paypal.CapturePayments{},
		}},
	}
}

var _ = Describe("Donation Service", func() {
	var (
		ctx      context.Context
		repo     *mockRepo
		provider *mockProvider
		events   *mockPublisher
		svc      donation.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepo()
		provider = newMockProvider()
		events = &mockPublisher{}
		svc = donation.NewService(repo, provider, cache.NewMemoryCache(), &config.Config{}, nil, events)
	})

	Describe("InitiateDonation", func() {
		It("returns ErrNotConfigured without credentials", func() {
			provider.configured = false
			_, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{Amount: 25})
			Expect(err).To(MatchError(donation.ErrNotConfigured))
		})

		It("rejects invalid amounts with a ValidationError", func() {
			_, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{Amount: 0.5})
			var verr *donation.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Problems).To(ContainElement("Minimum donation is $1"))
		})

		It("stages a pending donation and attaches the provider order", func() {
			resp, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{
				Amount:       51.239,
				DonorName:    "Asha Rao",
				DonorEmail:   "asha@example.com",
				CampaignName: "Annadaana Drive",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.OrderID).To(Equal("ORDER-1"))
			Expect(resp.ApprovalURL).To(Equal("https://provider.test/approve"))
			Expect(resp.Amount).To(Equal(51.24))
			Expect(resp.DonationType).To(Equal(donation.TypeAnnadaana))
			Expect(resp.ReceiptNumber).NotTo(BeEmpty())

			pending, err := repo.GetPendingByID(ctx, resp.PendingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Status).To(Equal(donation.PendingStatusProcessing))
			Expect(pending.OrderID).To(HaveValue(Equal("ORDER-1")))

			Expect(provider.lastOrderReq.PurchaseUnits).To(HaveLen(1))
			Expect(provider.lastOrderReq.PurchaseUnits[0].Amount.Value).To(Equal("51.24"))
			Expect(provider.lastOrderReq.PurchaseUnits[0].CustomID).To(ContainSubstring(resp.PendingID))
		})

		It("marks the pending donation failed when order creation fails", func() {
			provider.createOrderErr = &paypal.APIError{StatusCode: 500, Message: "boom"}
			_, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{Amount: 25})
			Expect(err).To(HaveOccurred())

			Expect(repo.pendings).To(HaveLen(1))
			for _, p := range repo.pendings {
				Expect(p.Status).To(Equal(donation.PendingStatusFailed))
			}
		})
	})

	Describe("CaptureDonation", func() {
		var pendingID string

		BeforeEach(func() {
			resp, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{
				Amount:       50,
				DonorName:    "Asha Rao",
				DonorEmail:   "asha@example.com",
				DonationType: "puja",
			})
			Expect(err).NotTo(HaveOccurred())
			pendingID = resp.PendingID

			capResp := completedCapture("ORDER-1", "TXN-001", provider.lastOrderReq.PurchaseUnits[0].CustomID)
			capResp.PurchaseUnits[0].Payments.Captures = []paypal.Capture{{
				ID:       "TXN-001",
				Status:   "COMPLETED",
				CustomID: provider.lastOrderReq.PurchaseUnits[0].CustomID,
				Amount:   &paypal.Amount{CurrencyCode: "USD", Value: "50.00"},
				SellerReceivableBreakdown: &paypal.SellerReceivableBreakdown{
					GrossAmount: &paypal.Amount{CurrencyCode: "USD", Value: "50.00"},
					PayPalFee:   &paypal.Amount{CurrencyCode: "USD", Value: "2.05"},
					NetAmount:   &paypal.Amount{CurrencyCode: "USD", Value: "47.95"},
				},
				CreateTime: "2026-08-29T10:00:00Z",
			}}
			provider.captureResp = capResp
		})

		It("rejects malformed order ids", func() {
			_, err := svc.CaptureDonation(ctx, "ord", "1.2.3.4")
			var verr *donation.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("records the donation exactly once with the breakdown figures", func() {
			resp, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.TransactionID).To(Equal("TXN-001"))
			Expect(resp.GrossAmount).To(Equal(50.0))
			Expect(resp.ProviderFee).To(Equal(2.05))
			Expect(resp.NetAmount).To(Equal(47.95))
			Expect(resp.AlreadyRecorded).To(BeFalse())

			Expect(repo.donations).To(HaveLen(1))
			d := repo.donations[0]
			Expect(d.DonorName).To(Equal("Asha Rao"))
			Expect(d.DonationType).To(Equal(donation.TypePuja))
			Expect(d.PaymentStatus).To(Equal(donation.PaymentStatusCompleted))
			Expect(d.MetadataString("order_id")).To(Equal("ORDER-1"))

			pending, err := repo.GetPendingByID(ctx, pendingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Status).To(Equal(donation.PendingStatusCompleted))

			Expect(events.events).To(HaveLen(1))
			Expect(events.events[0].TransactionID).To(Equal("TXN-001"))
		})

		It("keeps donor-supplied pending metadata when completing", func() {
			repo.pendings[pendingID].Metadata = map[string]interface{}{"utm_source": "newsletter"}

			_, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())

			pending, err := repo.GetPendingByID(ctx, pendingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Metadata).To(HaveKeyWithValue("utm_source", "newsletter"))
			Expect(pending.Metadata).To(HaveKey("donation_id"))
			Expect(pending.Metadata).To(HaveKey("completed_at"))
		})

		It("treats a repeated capture as already recorded", func() {
			first, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())

			second, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.AlreadyRecorded).To(BeTrue())
			Expect(second.DonationID).To(Equal(first.DonationID))
			Expect(second.TransactionID).To(Equal(first.TransactionID))
			Expect(repo.donations).To(HaveLen(1))
			Expect(events.events).To(HaveLen(1))
		})

		It("reports the recorded outcome when the provider rejects a re-capture", func() {
			first, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())

			provider.captureErr = &paypal.APIError{StatusCode: 422, Name: "UNPROCESSABLE_ENTITY", Message: "ORDER_ALREADY_CAPTURED"}
			second, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.AlreadyRecorded).To(BeTrue())
			Expect(second.DonationID).To(Equal(first.DonationID))
		})

		It("falls back to payer details when no pending record exists", func() {
			provider.captureResp.Payer = &paypal.Payer{
				PayerID:      "PAYER-9",
				EmailAddress: "walkin@example.com",
				Name:         &paypal.Name{GivenName: "Walk", Surname: "In"},
			}
			resp, err := svc.CaptureDonation(ctx, "ORDER-UNKNOWN", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.PayerName).To(Equal("Walk In"))

			// The correlation blob still names the pending id, but donor
			// identity comes from the payer.
			d := repo.donations[0]
			Expect(d.DonorName).To(Equal("Walk In"))
			Expect(d.DonorEmail).To(Equal("walkin@example.com"))
		})

		It("surfaces a DiscrepancyError when the local write fails", func() {
			repo.createDonationErr = errors.New("disk full")
			_, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			var derr *donation.DiscrepancyError
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.TransactionID).To(Equal("TXN-001"))
		})

		It("fails when the capture did not complete", func() {
			provider.captureResp.Status = "PENDING"
			provider.captureResp.PurchaseUnits[0].Payments.Captures[0].Status = "PENDING"
			_, err := svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).To(MatchError(ContainSubstring("not completed")))
			Expect(repo.donations).To(BeEmpty())
		})
	})

	Describe("GetDonationStatus", func() {
		It("returns ErrNotFound for unknown pending ids", func() {
			_, err := svc.GetDonationStatus(ctx, "missing")
			Expect(err).To(MatchError(donation.ErrNotFound))
		})

		It("includes the donation once completed", func() {
			initResp, err := svc.InitiateDonation(ctx, &donation.InitiateDonationRequest{Amount: 50})
			Expect(err).NotTo(HaveOccurred())

			capResp := completedCapture("ORDER-1", "TXN-002", "")
			capResp.PurchaseUnits[0].Payments.Captures = []paypal.Capture{{
				ID:     "TXN-002",
				Status: "COMPLETED",
				Amount: &paypal.Amount{CurrencyCode: "USD", Value: "50.00"},
			}}
			provider.captureResp = capResp
			_, err = svc.CaptureDonation(ctx, "ORDER-1", "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())

			status, err := svc.GetDonationStatus(ctx, initResp.PendingID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(donation.PendingStatusCompleted))
			Expect(status.DonationID).NotTo(BeNil())
			Expect(status.PaymentStatus).To(Equal(donation.PaymentStatusCompleted))
		})
	})
})
