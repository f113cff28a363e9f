package lalamove

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// Every request is signed with HMAC-SHA256 over the timestamp, method, path
// and body, the way the Lalamove gateway expects.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	market     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Market    string // e.g. "SG", "PH"
	Timeout   time.Duration
	RateLimit rate.Limit // requests per second, 0 = provider default
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(10) // documented gateway ceiling
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		market:    cfg.Market,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, int(limit)),
		now:     time.Now,
	}
}

// CreateQuotation requests a priced quotation.
func (c *HTTPAPIClient) CreateQuotation(ctx context.Context, req *QuotationRequest) (*QuotationResponse, error) {
	var result QuotationResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v3/quotations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetQuotation fetches a previously issued quotation.
func (c *HTTPAPIClient) GetQuotation(ctx context.Context, quotationID string) (*QuotationResponse, error) {
	var result QuotationResponse
	path := fmt.Sprintf("/v3/quotations/%s", quotationID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlaceOrder books an order against a quotation.
func (c *HTTPAPIClient) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var result OrderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v3/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches order details.
func (c *HTTPAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	var result OrderResponse
	path := fmt.Sprintf("/v3/orders/%s", orderID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOrder cancels an order.
func (c *HTTPAPIClient) CancelOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	var result OrderResponse
	path := fmt.Sprintf("/v3/orders/%s", orderID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		// DELETE may return an empty body on success
		result.OrderID = orderID
		result.Status = "CANCELED"
	}
	return &result, nil
}

// GetDriver fetches driver details.
func (c *HTTPAPIClient) GetDriver(ctx context.Context, driverID string) (*DriverResponse, error) {
	var result DriverResponse
	path := fmt.Sprintf("/v3/drivers/%s", driverID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doRequest performs a signed HTTP request and decodes the "data" envelope
// into out when out is non-nil.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rawBody []byte
	if body != nil {
		var err error
		rawBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(rawBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	ts := fmt.Sprintf("%d", c.now().UnixMilli())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Market", c.market)
	req.Header.Set("Request-ID", ts)
	req.Header.Set("Authorization", "hmac "+c.apiKey+":"+ts+":"+c.sign(ts, method, path, rawBody))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseError(resp)
	}

	if out == nil {
		return nil
	}

	// Successful payloads arrive wrapped in a "data" envelope.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sign computes the gateway signature: hex HMAC-SHA256 over
// "{timestamp}\r\n{method}\r\n{path}\r\n\r\n{body}".
func (c *HTTPAPIClient) sign(timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	fmt.Fprintf(mac, "%s\r\n%s\r\n%s\r\n\r\n%s", timestamp, method, path, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseError extracts error information from a non-2xx HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{HTTPStatus: resp.StatusCode, RawBody: string(body)}
	if err := json.Unmarshal(body, apiErr); err != nil || len(apiErr.Errors) == 0 {
		apiErr.Errors = []Error{{
			ID:      fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: string(body),
		}}
	}
	return apiErr
}

// transportError normalizes transport-level failures, flagging timeouts.
func transportError(err error) error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{
			Errors: []Error{{ID: "TIMEOUT", Message: err.Error()}},
		}
	}
	return err
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
