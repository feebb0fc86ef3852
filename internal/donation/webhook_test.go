package donation_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/donation"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

var _ = Describe("Webhook Dispatcher", func() {
	var (
		ctx      context.Context
		repo     *mockRepo
		provider *mockProvider
		svc      donation.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepo()
		provider = newMockProvider()
		svc = donation.NewService(repo, provider, cache.NewMemoryCache(), &config.Config{}, nil, nil)
	})

	event := func(eventType, resource string) []byte {
		return []byte(fmt.Sprintf(`{"id":"WH-1","event_type":%q,"resource":%s}`, eventType, resource))
	}

	Context("signature verification", func() {
		It("rejects events that fail verification", func() {
			provider.webhookID = "WH-ID"
			provider.verifyOK = false
			_, err := svc.HandleWebhook(ctx, event("CHECKOUT.ORDER.APPROVED", `{"id":"ORDER-1"}`), &paypal.WebhookSignature{}, "1.2.3.4")
			Expect(err).To(MatchError(donation.ErrBadSignature))
		})

		It("skips verification when no webhook id is configured", func() {
			result, err := svc.HandleWebhook(ctx, event("CHECKOUT.ORDER.APPROVED", `{"id":"ORDER-1"}`), &paypal.WebhookSignature{}, "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeTrue())
		})
	})

	It("acknowledges order approval and capture completion", func() {
		result, err := svc.HandleWebhook(ctx, event("CHECKOUT.ORDER.APPROVED", `{"id":"ORDER-1"}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Action).To(Equal("order_approved_acknowledged"))
		Expect(result.CorrelatingID).To(Equal("ORDER-1"))

		result, err = svc.HandleWebhook(ctx, event("PAYMENT.CAPTURE.COMPLETED",
			`{"id":"TXN-1","supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Action).To(Equal("capture_acknowledged"))
		Expect(result.CorrelatingID).To(Equal("ORDER-1"))
	})

	It("marks the pending donation failed when a capture is denied", func() {
		orderID := "ORDER-7"
		repo.pendings["p1"] = &donation.PendingDonation{
			ID:      "p1",
			Status:  donation.PendingStatusProcessing,
			OrderID: &orderID,
		}

		result, err := svc.HandleWebhook(ctx, event("PAYMENT.CAPTURE.DENIED",
			`{"id":"TXN-9","supplementary_data":{"related_ids":{"order_id":"ORDER-7"}}}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Action).To(Equal("pending_marked_failed"))
		Expect(repo.pendings["p1"].Status).To(Equal(donation.PendingStatusFailed))
	})

	It("updates correlated donation rows when a subscription is cancelled", func() {
		txn := "TXN-SUB-1"
		repo.donations = append(repo.donations, &donation.Donation{
			ID:            1,
			DonationType:  donation.TypeRecurring,
			PaymentStatus: donation.PaymentStatusCompleted,
			TransactionID: &txn,
			Metadata:      map[string]interface{}{"subscription_id": "SUB-9"},
		})

		result, err := svc.HandleWebhook(ctx, event("BILLING.SUBSCRIPTION.CANCELLED", `{"id":"SUB-9"}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Action).To(Equal("subscription_cancelled"))
		Expect(repo.donations[0].PaymentStatus).To(Equal(donation.PaymentStatusCancelled))
	})

	It("moves correlated rows to suspended on suspension", func() {
		repo.donations = append(repo.donations, &donation.Donation{
			ID:       1,
			Metadata: map[string]interface{}{"subscription_id": "SUB-9"},
		})

		result, err := svc.HandleWebhook(ctx, event("BILLING.SUBSCRIPTION.SUSPENDED", `{"id":"SUB-9"}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Action).To(Equal("subscription_suspended"))
		Expect(repo.donations[0].PaymentStatus).To(Equal(donation.PaymentStatusSuspended))
	})

	Context("recurring payments", func() {
		saleEvent := event("PAYMENT.SALE.COMPLETED",
			`{"id":"SALE-1","amount":{"total":"25.00","currency":"usd"},"billing_agreement_id":"SUB-9"}`)

		It("records each charge as its own donation row", func() {
			repo.donations = append(repo.donations, &donation.Donation{
				ID:         1,
				DonorName:  "Asha Rao",
				DonorEmail: "asha@example.com",
				Metadata:   map[string]interface{}{"subscription_id": "SUB-9"},
			})

			result, err := svc.HandleWebhook(ctx, saleEvent, nil, "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Action).To(Equal("recurring_payment_recorded"))

			Expect(repo.donations).To(HaveLen(2))
			charge := repo.donations[1]
			Expect(charge.Amount).To(Equal(25.0))
			Expect(charge.Currency).To(Equal("USD"))
			Expect(charge.DonationType).To(Equal(donation.TypeRecurring))
			Expect(charge.DonorName).To(Equal("Asha Rao"))
			Expect(charge.TransactionID).To(HaveValue(Equal("SALE-1")))
		})

		It("ignores a redelivered sale event", func() {
			_, err := svc.HandleWebhook(ctx, saleEvent, nil, "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.HandleWebhook(ctx, saleEvent, nil, "1.2.3.4")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Action).To(Equal("recurring_payment_duplicate"))
			Expect(repo.donations).To(HaveLen(1))
		})
	})

	It("reports unhandled event types without failing", func() {
		result, err := svc.HandleWebhook(ctx, event("CUSTOMER.DISPUTE.CREATED", `{"id":"X"}`), nil, "1.2.3.4")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Processed).To(BeFalse())
		Expect(result.Action).To(Equal("unhandled"))
	})

	It("rejects malformed payloads", func() {
		_, err := svc.HandleWebhook(ctx, []byte("not json"), nil, "1.2.3.4")
		var verr *donation.ValidationError
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &verr)).To(BeTrue())
	})
})
