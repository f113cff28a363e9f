package pandago

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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// tokenLeeway forces a refresh slightly before the advertised expiry so a
// token never expires mid-flight.
const tokenLeeway = 60 * time.Second

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// pandago authenticates with OAuth2 client credentials; the bearer token is
// cached and refreshed under a lock shared by all requests.
type HTTPAPIClient struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
	limiter      *rate.Limiter
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
	RateLimit    rate.Limit // requests per second, 0 = provider default
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(8)
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "pandago.api"
	}

	return &HTTPAPIClient{
		baseURL:      cfg.BaseURL,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        scope,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, int(limit)),
		now:     time.Now,
	}
}

// EstimateFee prices a delivery.
func (c *HTTPAPIClient) EstimateFee(ctx context.Context, req *OrderRequest) (*FeeEstimate, error) {
	var result FeeEstimate
	if err := c.doRequest(ctx, http.MethodPost, "/orders/fee", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateOrder books an order.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var result Order
	if err := c.doRequest(ctx, http.MethodPost, "/orders", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder fetches order details.
func (c *HTTPAPIClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var result Order
	path := fmt.Sprintf("/orders/%s", orderID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOrder cancels an order.
func (c *HTTPAPIClient) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	var result Order
	path := fmt.Sprintf("/orders/%s", orderID)
	body := map[string]string{"reason": "MISTAKE_ERROR"}
	if err := c.doRequest(ctx, http.MethodDelete, path, body, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		// DELETE may return an empty body on success
		result.OrderID = orderID
		result.Status = "CANCELLED"
	}
	return &result, nil
}

// token returns a cached access token, fetching a fresh one when the cached
// token is missing or within the leeway window of its expiry.
func (c *HTTPAPIClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenLeeway)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {c.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			HTTPStatus: resp.StatusCode,
			Code:       "TOKEN_REJECTED",
			Message:    "token endpoint refused client credentials",
			RawBody:    string(body),
		}
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", &APIError{Code: "TOKEN_EMPTY", Message: "token endpoint returned no access token"}
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// doRequest performs an authenticated HTTP request and decodes the response
// into out when out is non-nil.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	bearer, err := c.token(ctx)
	if err != nil {
		return err
	}

	var rawBody []byte
	if body != nil {
		rawBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(rawBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

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
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError extracts error information from a non-2xx HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{HTTPStatus: resp.StatusCode, RawBody: string(body)}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}

// transportError normalizes transport-level failures, flagging timeouts.
func transportError(err error) error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{
			Code:      "TIMEOUT",
			Message:   err.Error(),
			IsTimeout: true,
		}
	}
	return &APIError{
		Code:    "TRANSPORT",
		Message: err.Error(),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
