package borzo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// Borzo authenticates with a static token in the X-DV-Auth-Token header.
type HTTPAPIClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	AuthToken string
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
		limit = rate.Limit(5) // Borzo allows 5 rps per token
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, int(limit)),
	}
}

// CalculateOrder prices a delivery without committing to it.
func (c *HTTPAPIClient) CalculateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error) {
	var result OrderEnvelope
	if err := c.doRequest(ctx, http.MethodPost, "/api/business/1.6/calculate-order", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateOrder books a delivery.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error) {
	var result OrderEnvelope
	if err := c.doRequest(ctx, http.MethodPost, "/api/business/1.6/create-order", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches a booked order by id.
func (c *HTTPAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderEnvelope, error) {
	var result OrderEnvelope
	path := "/api/business/1.6/orders?order_id=" + url.QueryEscape(orderID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if result.Order == nil && len(result.Orders) > 0 {
		result.Order = &result.Orders[0]
	}
	return &result, nil
}

// CancelOrder cancels a booked order.
func (c *HTTPAPIClient) CancelOrder(ctx context.Context, orderID string) (*OrderEnvelope, error) {
	var result OrderEnvelope
	body := map[string]string{"order_id": orderID}
	if err := c.doRequest(ctx, http.MethodPost, "/api/business/1.6/cancel-order", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doRequest performs an HTTP request with the auth token header.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-DV-Auth-Token", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &APIError{Code: "TIMEOUT", Message: err.Error(), IsTimeout: true}
		}
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:    strings.TrimSpace(string(raw)),
			RawBody:    string(raw),
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
