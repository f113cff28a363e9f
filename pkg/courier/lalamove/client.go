// Package lalamove provides integration with the Lalamove on-demand delivery API.
package lalamove

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerCode = "lalamove"

// Config holds Lalamove configuration.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Market    string
	UseMock   bool // When true, uses a mock API client
}

// Client is the Lalamove provider client and mapper.
// It implements courier.Client and courier.Mapper and delegates API calls to
// the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Lalamove client.
// If cfg.UseMock is true, it uses a mock API client for testing.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Market:    cfg.Market,
			Timeout:   30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Lalamove client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Courier bundles the client into a registrable provider entry.
// Lalamove books orders against a previously issued quotation id.
func (c *Client) Courier() courier.Provider {
	return courier.Provider{
		Descriptor: courier.Descriptor{
			Code:        providerCode,
			DisplayName: "Lalamove",
		},
		Client:               c,
		Mapper:               c,
		PlacementByQuotation: true,
		DefaultCurrency:      "SGD",
	}
}

// ============================================================================
// courier.Client
// ============================================================================

// GetQuotation requests a priced quotation from Lalamove.
func (c *Client) GetQuotation(ctx context.Context, req *courier.QuotationRequest) (json.RawMessage, error) {
	c.logger.Info("Getting Lalamove quotation",
		zap.String("origin", req.Origin.Address),
		zap.Int("stop_count", len(req.Destinations)),
	)

	apiReq, err := quotationRequestToAPI(req)
	if err != nil {
		return nil, err
	}

	apiResp, err := c.apiClient.CreateQuotation(ctx, apiReq)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}

	return json.Marshal(apiResp)
}

// GetQuotationDetails fetches a previously issued quotation.
func (c *Client) GetQuotationDetails(ctx context.Context, quotationID string) (json.RawMessage, error) {
	apiResp, err := c.apiClient.GetQuotation(ctx, quotationID)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(apiResp)
}

// PlaceOrder books an order against the given quotation id. The full request
// payload is ignored; Lalamove places by quotation.
func (c *Client) PlaceOrder(ctx context.Context, quotationID string, req *courier.QuotationRequest) (json.RawMessage, error) {
	c.logger.Info("Placing Lalamove order",
		zap.String("quotation_id", quotationID),
	)

	apiReq := &OrderRequest{QuotationID: quotationID}
	if req != nil {
		apiReq.Sender = OrderContact{Name: req.Contact.Name, Phone: req.Contact.Phone}
	}

	apiResp, err := c.apiClient.PlaceOrder(ctx, apiReq)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}

	return json.Marshal(apiResp)
}

// GetOrderDetails fetches the current state of an order.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	apiResp, err := c.apiClient.GetOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(apiResp)
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	c.logger.Info("Cancelling Lalamove order", zap.String("order_id", orderID))

	apiResp, err := c.apiClient.CancelOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(apiResp)
}

// GetDriverDetails fetches driver details.
func (c *Client) GetDriverDetails(ctx context.Context, driverID string) (json.RawMessage, error) {
	apiResp, err := c.apiClient.GetDriver(ctx, driverID)
	if err != nil {
		c.logger.Error("Lalamove API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(apiResp)
}

// wrapError converts APIClient failures into the shared error taxonomy.
func (c *Client) wrapError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return courier.NewProviderError(providerCode, "TRANSPORT", "request failed").WithCause(err)
	}

	code, message := "API_ERROR", apiErr.Error()
	if len(apiErr.Errors) > 0 {
		code, message = apiErr.Errors[0].ID, apiErr.Errors[0].Message
	}
	provErr := courier.NewProviderError(providerCode, code, message).
		WithStatusCode(apiErr.HTTPStatus).
		WithBody(apiErr.RawBody)

	switch {
	case apiErr.HTTPStatus == 401:
		return provErr.WithCause(courier.ErrAuthFailed)
	case apiErr.HasErrorID("ERR_QUOTATION_EXPIRED"), apiErr.HasErrorID("ERR_INVALID_QUOTATION"):
		return provErr.WithCause(courier.ErrQuotationExpired)
	case apiErr.HasErrorID("TIMEOUT"):
		return provErr.WithTimeout()
	default:
		return provErr
	}
}

// ============================================================================
// courier.Mapper
// ============================================================================

// QuotationFromResponse parses a Lalamove quotation payload.
func (c *Client) QuotationFromResponse(raw json.RawMessage) (*courier.Quotation, error) {
	var resp QuotationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding lalamove quotation: %w", err)
	}

	currency := resp.PriceBreakdown.Currency
	if currency == "" {
		currency = "SGD" // market default when the gateway omits it
	}

	q := &courier.Quotation{
		ID:       resp.QuotationID,
		Price:    courier.Money{Amount: parseAmount(resp.PriceBreakdown.Total), Currency: currency},
		IssuedAt: time.Now(),
		Valid:    true,
		Raw:      raw,
	}
	if resp.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			q.ExpiresAt = &t
		}
	}
	return q, nil
}

// OrderFromResponse parses a Lalamove order payload.
func (c *Client) OrderFromResponse(raw json.RawMessage) (*courier.Order, error) {
	var resp OrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding lalamove order: %w", err)
	}

	currency := resp.PriceBreakdown.Currency
	if currency == "" {
		currency = "SGD"
	}

	o := &courier.Order{
		ID:          resp.OrderID,
		QuotationID: resp.QuotationID,
		Status:      mapStatus(resp.Status),
		Price:       courier.Money{Amount: parseAmount(resp.PriceBreakdown.Total), Currency: currency},
		Raw:         raw,
	}
	if resp.DriverID != "" {
		o.Driver = &courier.DriverInfo{ID: resp.DriverID}
	}
	return o, nil
}

// DecodeWebhookEvent translates the Lalamove webhook vocabulary.
func (c *Client) DecodeWebhookEvent(body []byte) (*courier.WebhookEvent, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding lalamove webhook: %w", err)
	}

	ev := &courier.WebhookEvent{
		OrderID: payload.Data.Order.OrderID,
		Raw:     body,
	}
	switch payload.EventType {
	case "ORDER_STATUS_CHANGED":
		ev.Type = courier.EventStatusChanged
	case "DRIVER_ASSIGNED":
		ev.Type = courier.EventDriverAssigned
	case "ORDER_AMOUNT_CHANGED":
		ev.Type = courier.EventAmountChanged
	case "ORDER_REPLACED":
		ev.Type = courier.EventOrderReplaced
		ev.OrderID = payload.Data.Order.PreviousOrderID
		ev.NewOrderID = payload.Data.Order.OrderID
	case "ORDER_EDITED":
		ev.Type = courier.EventOrderEdited
	default:
		ev.Type = courier.EventUnknown
	}
	return ev, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func quotationRequestToAPI(req *courier.QuotationRequest) (*QuotationRequest, error) {
	stops := make([]Stop, 0, len(req.Destinations)+1)
	for _, s := range append([]courier.Stop{req.Origin}, req.Destinations...) {
		if s.Coordinate == nil {
			return nil, fmt.Errorf("%w: stop coordinates (%s)", courier.ErrMissingRequiredField, s.Address)
		}
		stops = append(stops, Stop{
			Address: s.Address,
			Coordinates: Coordinates{
				Lat: strconv.FormatFloat(s.Coordinate.Lat, 'f', 6, 64),
				Lng: strconv.FormatFloat(s.Coordinate.Lng, 'f', 6, 64),
			},
		})
	}

	apiReq := &QuotationRequest{
		ServiceType:     mapServiceClass(req.Service),
		Language:        "en_SG",
		Stops:           stops,
		SpecialRequests: mapHandling(req.Handling),
		Item: &Item{
			Quantity: strconv.Itoa(req.Cargo.Quantity),
			Weight:   weightTier(req.Cargo.WeightKG),
		},
	}
	if req.ScheduledPickup != nil {
		apiReq.ScheduleAt = req.ScheduledPickup.UTC().Format(time.RFC3339)
	}
	return apiReq, nil
}

func mapServiceClass(s courier.ServiceClass) string {
	switch s {
	case courier.ServiceCar:
		return "CAR"
	case courier.ServiceVan:
		return "VAN"
	case courier.ServiceTruck:
		return "TRUCK550"
	default:
		return "MOTORCYCLE"
	}
}

func mapHandling(flags []courier.HandlingFlag) []string {
	var out []string
	for _, f := range flags {
		switch f {
		case courier.HandlingFragile:
			out = append(out, "FRAGILE_GOODS")
		case courier.HandlingKeepUpright:
			out = append(out, "KEEP_UPRIGHT")
		case courier.HandlingTemperatureControlled:
			out = append(out, "THERMAL_BAG_1")
		}
		// hazardous goods have no Lalamove special request; the quotation
		// simply proceeds without one
	}
	return out
}

func weightTier(kg float64) string {
	switch {
	case kg <= 3:
		return "LESS_THAN_3_KG"
	case kg <= 10:
		return "3_TO_10_KG"
	case kg <= 30:
		return "10_TO_30_KG"
	default:
		return "MORE_THAN_30_KG"
	}
}

func mapStatus(status string) courier.Status {
	switch status {
	case "ASSIGNING_DRIVER":
		return courier.StatusAssigningDriver
	case "ON_GOING", "PICKED_UP":
		return courier.StatusOnGoing
	case "COMPLETED":
		return courier.StatusCompleted
	case "CANCELED", "REJECTED":
		return courier.StatusCancelled
	case "EXPIRED":
		return courier.StatusExpired
	default:
		return courier.StatusPending
	}
}

func parseAmount(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

var (
	_ courier.Client         = (*Client)(nil)
	_ courier.Mapper         = (*Client)(nil)
	_ courier.WebhookDecoder = (*Client)(nil)
)
