package paypal

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
)

const (
	tokenCacheKey = "paypal:access_token"

	// Refresh the bearer token when it is within this window of expiry.
	tokenExpirySlack = 60 * time.Second

	requestTimeout = 30 * time.Second
)

// Client is a thin, retryless request layer over the PayPal REST API. All
// mutating calls carry a fresh idempotency key so a client-side retry of the
// same logical operation does not double-create a provider resource.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	webhookID  string
	httpClient *http.Client
	cache      cache.Cache
}

func NewClient(baseURL, clientID, secret, webhookID string, c cache.Cache) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		webhookID:  webhookID,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      c,
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.secret != ""
}

// WebhookID returns the configured webhook id; empty means signature
// verification is skipped.
func (c *Client) WebhookID() string {
	return c.webhookID
}

// accessToken returns a cached bearer token, fetching a new one when the
// cached token is absent or inside the expiry slack window.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, err := c.cache.Get(ctx, tokenCacheKey); err == nil && token != "" {
		return token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrAuth, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack
	if ttl <= 0 {
		ttl = time.Second
	}
	// Cache write failure only costs a re-fetch next call.
	_ = c.cache.Set(ctx, tokenCacheKey, token.AccessToken, ttl)

	return token.AccessToken, nil
}

// newRequestID builds a PayPal-Request-Id idempotency key from the current
// time plus random bytes.
func newRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + hex.EncodeToString(buf)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}, mutating bool) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("paypal: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if mutating {
		req.Header.Set("PayPal-Request-Id", newRequestID())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paypal: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RawBody: string(raw)}
		var detail struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &detail) == nil {
			apiErr.Name = detail.Name
			apiErr.Message = detail.Message
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("paypal: decode response: %w", err)
		}
	}
	return nil
}

// CreateOrder creates a checkout order and returns it with the approval link.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder finalizes a previously-approved order into a settled payment.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error) {
	var resp CaptureOrderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateProduct provisions a catalog product for recurring billing plans.
func (c *Client) CreateProduct(ctx context.Context, req *ProductRequest) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/v1/catalogs/products", req, &product, true); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreatePlan creates a billing plan on a product.
func (c *Client) CreatePlan(ctx context.Context, req *PlanRequest) (*Plan, error) {
	var plan Plan
	if err := c.do(ctx, http.MethodPost, "/v1/billing/plans", req, &plan, true); err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateSubscription creates a subscription awaiting subscriber approval.
func (c *Client) CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", req, &sub, true); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscription fetches the current subscription state from the provider.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	path := "/v1/billing/subscriptions/" + url.PathEscape(subscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &sub, false); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription cancels a subscription at the provider.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	payload := map[string]string{"reason": reason}
	path := "/v1/billing/subscriptions/" + url.PathEscape(subscriptionID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, payload, nil, true)
}

// VerifyWebhookSignature forwards the provider's signature headers and the raw
// event body to the verification endpoint. Returns true only on SUCCESS.
func (c *Client) VerifyWebhookSignature(ctx context.Context, sig *WebhookSignature, rawEvent []byte) (bool, error) {
	if c.webhookID == "" {
		return false, errors.New("paypal: webhook id not configured")
	}

	var event json.RawMessage = rawEvent
	req := &verifyWebhookRequest{
		AuthAlgo:         sig.AuthAlgo,
		CertURL:          sig.CertURL,
		TransmissionID:   sig.TransmissionID,
		TransmissionSig:  sig.TransmissionSig,
		TransmissionTime: sig.TransmissionTime,
		WebhookID:        c.webhookID,
		WebhookEvent:     event,
	}

	var resp verifyWebhookResponse
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &resp, false); err != nil {
		return false, err
	}
	return resp.VerificationStatus == "SUCCESS", nil
}
