package donation

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
	"github.com/cgchiraggupta/backend-temple-project--sub000/middleware"
)

// Handler exposes the donation pipeline over HTTP.
type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// respondError maps the service error taxonomy onto HTTP statuses. Services
// never pick status codes themselves.
func respondError(c *gin.Context, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "problems": verr.Problems})
		return
	}

	var derr *DiscrepancyError
	if errors.As(err, &derr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "payment captured but recording failed",
			"partialSuccess": true,
			"transactionId":  derr.TransactionID,
		})
		return
	}

	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		} else if apiErr.IsServiceUnavailable() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "payment provider error", "detail": apiErr.Message})
		return
	}

	switch {
	case errors.Is(err, ErrNotConfigured), errors.Is(err, paypal.ErrAuth):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment provider is not available"})
	case errors.Is(err, ErrBadSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "webhook signature verification failed"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("⚠️ Donation request failed: %v", err)
		msg := err.Error()
		if gin.Mode() == gin.ReleaseMode {
			msg = "internal server error"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// InitiateDonation handles POST /donations/initiate.
func (h *Handler) InitiateDonation(c *gin.Context) {
	var req InitiateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.IPAddress = middleware.GetIPFromContext(c)

	resp, err := h.svc.InitiateDonation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CaptureDonation handles POST /donations/capture. A repeat capture of an
// already-recorded order returns the recorded outcome with alreadyRecorded
// set, not an error.
func (h *Handler) CaptureDonation(c *gin.Context) {
	var req CaptureDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	resp, err := h.svc.CaptureDonation(c.Request.Context(), req.OrderID, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetDonationStatus handles GET /donations/status/:pendingId.
func (h *Handler) GetDonationStatus(c *gin.Context) {
	resp, err := h.svc.GetDonationStatus(c.Request.Context(), c.Param("pendingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecentDonations handles GET /donations/recent.
func (h *Handler) RecentDonations(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	items, err := h.svc.RecentDonations(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": items, "count": len(items)})
}

// DownloadReceipt handles GET /donations/:id/receipt.
func (h *Handler) DownloadReceipt(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation id"})
		return
	}

	data, filename, err := h.svc.GenerateReceiptPDF(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

// CreateSubscription handles POST /donations/subscriptions.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.IPAddress = middleware.GetIPFromContext(c)

	resp, err := h.svc.CreateSubscription(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ActivateSubscription handles POST /donations/subscriptions/activate.
func (h *Handler) ActivateSubscription(c *gin.Context) {
	var req ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscriptionId is required"})
		return
	}

	resp, err := h.svc.ActivateSubscription(c.Request.Context(), req.SubscriptionID, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSubscriptionStatus handles GET /donations/subscriptions/:id.
func (h *Handler) GetSubscriptionStatus(c *gin.Context) {
	resp, err := h.svc.GetSubscriptionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelSubscription handles POST /donations/subscriptions/cancel.
func (h *Handler) CancelSubscription(c *gin.Context) {
	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscriptionId is required"})
		return
	}

	if err := h.svc.CancelSubscription(c.Request.Context(), req.SubscriptionID, req.Reason, middleware.GetIPFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subscription cancelled", "subscriptionId": req.SubscriptionID})
}

// HandleWebhook handles POST /donations/webhook. The raw body is needed for
// signature verification, so binding is manual.
func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty webhook payload"})
		return
	}

	sig := &paypal.WebhookSignature{
		AuthAlgo:         c.GetHeader("Paypal-Auth-Algo"),
		CertURL:          c.GetHeader("Paypal-Cert-Url"),
		TransmissionID:   c.GetHeader("Paypal-Transmission-Id"),
		TransmissionSig:  c.GetHeader("Paypal-Transmission-Sig"),
		TransmissionTime: c.GetHeader("Paypal-Transmission-Time"),
	}

	result, err := h.svc.HandleWebhook(c.Request.Context(), body, sig, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
