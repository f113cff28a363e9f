// Package pandago provides integration with the foodpanda pandago
// on-demand delivery API.
package pandago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerCode = "pandago"

// defaultCurrency is applied to pandago fees. The API reports amounts in the
// contracted market currency and omits a currency field.
const defaultCurrency = "SGD"

// Config holds pandago configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	UseMock      bool
}

// Client is the pandago provider client and mapper. pandago prices through a
// fee estimate that carries no id and no expiry, so quotation ids are
// synthesized locally and orders are placed with the full payload.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new pandago client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:      cfg.BaseURL,
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Timeout:      30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new pandago client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Courier bundles the client into a registrable provider entry.
func (c *Client) Courier() courier.Provider {
	return courier.Provider{
		Descriptor: courier.Descriptor{
			Code:        providerCode,
			DisplayName: "pandago",
		},
		Client:               c,
		Mapper:               c,
		PlacementByQuotation: false,
		DefaultCurrency:      defaultCurrency,
	}
}

// ============================================================================
// courier.Client
// ============================================================================

// GetQuotation prices a delivery via the fee estimate endpoint.
func (c *Client) GetQuotation(ctx context.Context, req *courier.QuotationRequest) (json.RawMessage, error) {
	apiReq, err := orderRequestToAPI(req)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Getting pandago fee estimate",
		zap.String("origin", req.Origin.Address),
	)

	estimate, err := c.apiClient.EstimateFee(ctx, apiReq)
	if err != nil {
		c.logger.Error("pandago API error", zap.Error(err))
		return nil, c.wrapError(err)
	}

	return json.Marshal(estimate)
}

// GetQuotationDetails is not offered by the pandago API.
func (c *Client) GetQuotationDetails(ctx context.Context, quotationID string) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: GetQuotationDetails (%s)", courier.ErrNotSupported, providerCode)
}

// PlaceOrder books a delivery with the full payload; the quotation id is a
// local synthetic and is not sent upstream.
func (c *Client) PlaceOrder(ctx context.Context, quotationID string, req *courier.QuotationRequest) (json.RawMessage, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: pandago placement requires the full order payload", courier.ErrInvalidArgument)
	}

	apiReq, err := orderRequestToAPI(req)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Placing pandago order",
		zap.String("origin", req.Origin.Address),
	)

	order, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		c.logger.Error("pandago API error", zap.Error(err))
		return nil, c.wrapError(err)
	}

	return json.Marshal(order)
}

// GetOrderDetails fetches the current state of an order.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	order, err := c.apiClient.GetOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("pandago API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(order)
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	c.logger.Info("Cancelling pandago order", zap.String("order_id", orderID))

	order, err := c.apiClient.CancelOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("pandago API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	return json.Marshal(order)
}

// GetDriverDetails is not offered as a standalone endpoint; driver details
// arrive embedded in the order record.
func (c *Client) GetDriverDetails(ctx context.Context, driverID string) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: GetDriverDetails (%s)", courier.ErrNotSupported, providerCode)
}

func (c *Client) wrapError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return courier.NewProviderError(providerCode, "TRANSPORT", "request failed").WithCause(err)
	}

	provErr := courier.NewProviderError(providerCode, apiErr.Code, apiErr.Message).
		WithStatusCode(apiErr.HTTPStatus).
		WithBody(apiErr.RawBody)

	switch {
	case apiErr.HTTPStatus == 401 || apiErr.Code == "TOKEN_REJECTED":
		return provErr.WithCause(courier.ErrAuthFailed)
	case apiErr.IsTimeout:
		return provErr.WithTimeout()
	default:
		return provErr
	}
}

// ============================================================================
// courier.Mapper
// ============================================================================

// QuotationFromResponse parses a fee estimate. pandago issues no quotation id
// and no expiry, so the id is synthesized and the quotation stays valid until
// explicitly invalidated.
func (c *Client) QuotationFromResponse(raw json.RawMessage) (*courier.Quotation, error) {
	var estimate FeeEstimate
	if err := json.Unmarshal(raw, &estimate); err != nil {
		return nil, fmt.Errorf("decoding pandago fee estimate: %w", err)
	}

	return &courier.Quotation{
		ID:       providerCode + "-q-" + uuid.New().String()[:8],
		Price:    courier.Money{Amount: estimate.EstimatedDeliveryFee, Currency: defaultCurrency},
		IssuedAt: time.Now(),
		Valid:    true,
		Raw:      raw,
	}, nil
}

// OrderFromResponse parses an order record.
func (c *Client) OrderFromResponse(raw json.RawMessage) (*courier.Order, error) {
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decoding pandago order: %w", err)
	}
	if order.OrderID == "" {
		return nil, fmt.Errorf("decoding pandago order: record has no order_id")
	}

	o := &courier.Order{
		ID:     order.OrderID,
		Status: mapStatus(order.Status),
		Price:  courier.Money{Amount: order.DeliveryFee, Currency: defaultCurrency},
		Raw:    raw,
	}
	if order.Driver != nil && order.Driver.ID != "" {
		o.Driver = &courier.DriverInfo{
			ID:    order.Driver.ID,
			Name:  order.Driver.Name,
			Phone: order.Driver.PhoneNumber,
		}
	}
	return o, nil
}

// DecodeWebhookEvent translates pandago order update callbacks. The payload
// has no event type field: updates carrying a fresh driver block are treated
// as driver assignments, everything else as a status change.
func (c *Client) DecodeWebhookEvent(body []byte) (*courier.WebhookEvent, error) {
	var payload EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding pandago event: %w", err)
	}
	if payload.OrderID == "" {
		return &courier.WebhookEvent{Type: courier.EventUnknown, Raw: body}, nil
	}

	ev := &courier.WebhookEvent{
		Type:    courier.EventStatusChanged,
		OrderID: payload.OrderID,
		Raw:     body,
	}
	if payload.Driver != nil && payload.Driver.ID != "" {
		ev.Type = courier.EventDriverAssigned
	}
	return ev, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

// orderRequestToAPI converts the normalized request. pandago supports a
// single drop-off per order.
func orderRequestToAPI(req *courier.QuotationRequest) (*OrderRequest, error) {
	if len(req.Destinations) == 0 {
		return nil, fmt.Errorf("%w: destination", courier.ErrMissingRequiredField)
	}
	if len(req.Destinations) > 1 {
		return nil, fmt.Errorf("%w: pandago supports a single drop-off per order", courier.ErrNotSupported)
	}
	dest := req.Destinations[0]

	apiReq := &OrderRequest{
		Sender: Sender{
			Name:        req.Contact.Name,
			PhoneNumber: req.Contact.Phone,
			Location:    locationFromStop(req.Origin),
		},
		Recipient: Recipient{
			Location: locationFromStop(dest),
		},
		Description:   description(req),
		ColdbagNeeded: needsColdbag(req.Handling),
	}
	if req.Cargo.DeclaredValue > 0 {
		apiReq.Amount = req.Cargo.DeclaredValue
	}
	return apiReq, nil
}

func locationFromStop(s courier.Stop) Location {
	loc := Location{Address: s.Address}
	if s.Coordinate != nil {
		loc.Latitude = s.Coordinate.Lat
		loc.Longitude = s.Coordinate.Lng
	}
	return loc
}

func description(req *courier.QuotationRequest) string {
	parts := []string{fmt.Sprintf("%d package(s)", req.Cargo.Quantity)}
	if req.Cargo.WeightKG > 0 {
		parts = append(parts, fmt.Sprintf("%.1f kg", req.Cargo.WeightKG))
	}
	return strings.Join(parts, ", ")
}

func needsColdbag(flags []courier.HandlingFlag) bool {
	for _, f := range flags {
		if f == courier.HandlingTemperatureControlled {
			return true
		}
	}
	return false
}

func mapStatus(status string) courier.Status {
	switch status {
	case "NEW", "RECEIVED", "DELAYED":
		return courier.StatusPending
	case "WAITING_FOR_TRANSPORT", "ASSIGNED_TO_TRANSPORT":
		return courier.StatusAssigningDriver
	case "COURIER_ACCEPTED_DELIVERY", "NEAR_VENDOR", "PICKED_UP",
		"COURIER_LEFT_VENDOR", "NEAR_CUSTOMER":
		return courier.StatusOnGoing
	case "DELIVERED":
		return courier.StatusCompleted
	case "CANCELLED", "RETURNED_TO_VENDOR":
		return courier.StatusCancelled
	default:
		return courier.StatusPending
	}
}

var (
	_ courier.Client         = (*Client)(nil)
	_ courier.Mapper         = (*Client)(nil)
	_ courier.WebhookDecoder = (*Client)(nil)
)
