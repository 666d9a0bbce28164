package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Redirect outcome values carried back on the `payment` query parameter. The
// frontend round-trips these verbatim together with the `tracking` parameter,
// so they are part of the wire contract.
const (
	RedirectSuccess = "success"
	RedirectFailure = "failure"
	RedirectCancel  = "cancel"

	paramPayment  = "payment"
	paramTracking = "tracking"
)

// LineItem describes one billable entry on a checkout session.
type LineItem struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount"`
	Quantity    int    `json:"quantity"`
}

// CheckoutRequest carries everything needed to open a gateway session.
type CheckoutRequest struct {
	TrackingID  string
	Description string
	AmountCents int64
	LineItems   []LineItem
}

// CheckoutSession is the gateway's view of an opened checkout.
type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

// Session payment states reported by the gateway.
const (
	SessionPaid   = "paid"
	SessionUnpaid = "unpaid"
)

// ClientConfig configures the gateway client.
type ClientConfig struct {
	BaseURL       string
	SecretKey     string
	ReturnBaseURL string
	Timeout       time.Duration
}

// Client talks to the external checkout provider.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	returnBaseURL string
	logger        *zap.Logger
}

// NewClient constructs a gateway client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     cfg.SecretKey,
		returnBaseURL: cfg.ReturnBaseURL,
		logger:        logger,
	}
}

type createSessionBody struct {
	Description string     `json:"description"`
	AmountCents int64      `json:"amount"`
	LineItems   []LineItem `json:"line_items"`
	SuccessURL  string     `json:"success_url"`
	FailureURL  string     `json:"failure_url"`
	CancelURL   string     `json:"cancel_url"`
}

// CreateCheckout opens a checkout session and returns its hosted URL.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.TrackingID == "" {
		return nil, fmt.Errorf("tracking id required")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	body := createSessionBody{
		Description: req.Description,
		AmountCents: req.AmountCents,
		LineItems:   req.LineItems,
		SuccessURL:  c.RedirectURL(RedirectSuccess, req.TrackingID),
		FailureURL:  c.RedirectURL(RedirectFailure, req.TrackingID),
		CancelURL:   c.RedirectURL(RedirectCancel, req.TrackingID),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("checkout creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("tracking", req.TrackingID),
		)
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if session.ID == "" || session.CheckoutURL == "" {
		return nil, fmt.Errorf("gateway response missing session id or url")
	}
	return &session, nil
}

// GetCheckout fetches the current state of a checkout session.
func (c *Client) GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("checkout session %s not found", sessionID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	return &session, nil
}

// RedirectURL builds the browser return URL for the given outcome. The
// `payment` and `tracking` query parameter names must round-trip unchanged.
func (c *Client) RedirectURL(outcome, trackingID string) string {
	values := url.Values{}
	values.Set(paramPayment, outcome)
	values.Set(paramTracking, trackingID)
	separator := "?"
	if strings.Contains(c.returnBaseURL, "?") {
		separator = "&"
	}
	return c.returnBaseURL + separator + values.Encode()
}

// ParseRedirect extracts the outcome and tracking id from a return request's
// query parameters. Unknown outcomes are returned as-is for the caller to
// reject.
func ParseRedirect(query url.Values) (outcome, trackingID string) {
	return query.Get(paramPayment), query.Get(paramTracking)
}

func (c *Client) authorize(req *http.Request) {
	if c.secretKey == "" {
		return
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+encoded)
}
