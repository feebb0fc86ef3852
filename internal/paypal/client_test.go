package paypal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
)

var _ = Describe("Client", func() {
	var (
		ctx        context.Context
		server     *httptest.Server
		client     *paypal.Client
		tokenCalls int64
		orderIDs   []string
		mux        *http.ServeMux
	)

	BeforeEach(func() {
		ctx = context.Background()
		atomic.StoreInt64(&tokenCalls, 0)
		orderIDs = nil

		mux = http.NewServeMux()
		mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			atomic.AddInt64(&tokenCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "test-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		})
		mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			orderIDs = append(orderIDs, r.Header.Get("PayPal-Request-Id"))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "ORDER-1",
				"status": "CREATED",
				"links": []map[string]string{
					{"href": "https://provider.test/approve", "rel": "approve", "method": "GET"},
				},
			})
		})

		server = httptest.NewServer(mux)
		client = paypal.NewClient(server.URL, "client-id", "client-secret", "", cache.NewMemoryCache())
	})

	AfterEach(func() {
		server.Close()
	})

	It("reports configuration from credential presence", func() {
		Expect(client.Configured()).To(BeTrue())
		Expect(paypal.NewClient(server.URL, "", "", "", cache.NewMemoryCache()).Configured()).To(BeFalse())
	})

	It("fetches the bearer token once and caches it", func() {
		for i := 0; i < 3; i++ {
			_, err := client.CreateOrder(ctx, &paypal.OrderRequest{Intent: "CAPTURE"})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(atomic.LoadInt64(&tokenCalls)).To(Equal(int64(1)))
	})

	It("sends a fresh idempotency key on each mutating call", func() {
		for i := 0; i < 2; i++ {
			_, err := client.CreateOrder(ctx, &paypal.OrderRequest{Intent: "CAPTURE"})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(orderIDs).To(HaveLen(2))
		Expect(orderIDs[0]).NotTo(BeEmpty())
		Expect(orderIDs[1]).NotTo(BeEmpty())
		Expect(orderIDs[0]).NotTo(Equal(orderIDs[1]))
	})

	It("extracts the approval link", func() {
		order, err := client.CreateOrder(ctx, &paypal.OrderRequest{Intent: "CAPTURE"})
		Expect(err).NotTo(HaveOccurred())
		Expect(order.ApprovalURL()).To(Equal("https://provider.test/approve"))
	})

	It("wraps token failures in ErrAuth", func() {
		bad := paypal.NewClient(server.URL, "client-id", "wrong-secret", "", cache.NewMemoryCache())
		_, err := bad.CreateOrder(ctx, &paypal.OrderRequest{Intent: "CAPTURE"})
		Expect(errors.Is(err, paypal.ErrAuth)).To(BeTrue())
	})

	It("decodes provider errors into APIError", func() {
		mux.HandleFunc("/v2/checkout/orders/ORDER-GONE/capture", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{
				"name":    "UNPROCESSABLE_ENTITY",
				"message": "ORDER_ALREADY_CAPTURED",
			})
		})

		_, err := client.CaptureOrder(ctx, "ORDER-GONE")
		var apiErr *paypal.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(apiErr.Name).To(Equal("UNPROCESSABLE_ENTITY"))
		Expect(apiErr.Message).To(Equal("ORDER_ALREADY_CAPTURED"))
	})

	It("verifies webhook signatures against the configured webhook id", func() {
		var gotWebhookID string
		mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			gotWebhookID, _ = req["webhook_id"].(string)
			json.NewEncoder(w).Encode(map[string]string{"verification_status": "SUCCESS"})
		})

		signed := paypal.NewClient(server.URL, "client-id", "client-secret", "WH-42", cache.NewMemoryCache())
		ok, err := signed.VerifyWebhookSignature(ctx, &paypal.WebhookSignature{TransmissionID: "t-1"}, []byte(`{"id":"WH-EVT"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(gotWebhookID).To(Equal("WH-42"))
	})
})
