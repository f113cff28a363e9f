// Package borzo provides integration with the Borzo (Dostavista) same-day delivery API.
package borzo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerCode = "borzo"

// defaultCurrency is applied to every Borzo amount: the business API reports
// amounts in the account's settlement currency and omits a currency field.
const defaultCurrency = "PHP"

// Config holds Borzo configuration.
type Config struct {
	AuthToken string
	BaseURL   string
	UseMock   bool
}

// Client is the Borzo provider client and mapper.
// Borzo has no quotation entity: calculate-order returns a priced preview
// with no id, so quotation ids are synthesized locally and orders are always
// placed with the full payload.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Borzo client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			AuthToken: cfg.AuthToken,
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

// NewWithAPIClient creates a new Borzo client with a custom API client.
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
			DisplayName: "Borzo",
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

// GetQuotation prices a delivery via calculate-order.
func (c *Client) GetQuotation(ctx context.Context, req *courier.QuotationRequest) (json.RawMessage, error) {
	c.logger.Info("Getting Borzo quotation",
		zap.String("origin", req.Origin.Address),
		zap.Int("point_count", len(req.Destinations)+1),
	)

	apiReq := orderRequestToAPI(req)
	envelope, err := c.apiClient.CalculateOrder(ctx, apiReq)
	if err != nil {
		c.logger.Error("Borzo API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	if err := envelopeError(envelope); err != nil {
		return nil, err
	}

	return json.Marshal(envelope)
}

// GetQuotationDetails is not offered by the Borzo API.
func (c *Client) GetQuotationDetails(ctx context.Context, quotationID string) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: GetQuotationDetails (%s)", courier.ErrNotSupported, providerCode)
}

// PlaceOrder books a delivery with the full payload; the quotation id is a
// local synthetic and is not sent upstream.
func (c *Client) PlaceOrder(ctx context.Context, quotationID string, req *courier.QuotationRequest) (json.RawMessage, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: borzo placement requires the full order payload", courier.ErrInvalidArgument)
	}

	c.logger.Info("Placing Borzo order",
		zap.String("origin", req.Origin.Address),
	)

	envelope, err := c.apiClient.CreateOrder(ctx, orderRequestToAPI(req))
	if err != nil {
		c.logger.Error("Borzo API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	if err := envelopeError(envelope); err != nil {
		return nil, err
	}

	return json.Marshal(envelope)
}

// GetOrderDetails fetches the current state of an order.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	envelope, err := c.apiClient.GetOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("Borzo API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	if err := envelopeError(envelope); err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	c.logger.Info("Cancelling Borzo order", zap.String("order_id", orderID))

	envelope, err := c.apiClient.CancelOrder(ctx, orderID)
	if err != nil {
		c.logger.Error("Borzo API error", zap.Error(err))
		return nil, c.wrapError(err)
	}
	if err := envelopeError(envelope); err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}

// GetDriverDetails is not offered as a courier-keyed endpoint; courier
// details arrive embedded in the order record.
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
	case apiErr.HTTPStatus == 401:
		return provErr.WithCause(courier.ErrAuthFailed)
	case apiErr.IsTimeout:
		return provErr.WithTimeout()
	default:
		return provErr
	}
}

// envelopeError converts an is_successful=false envelope into a provider error.
func envelopeError(envelope *OrderEnvelope) error {
	if envelope.IsSuccessful {
		return nil
	}

	msgs := append([]string{}, envelope.Errors...)
	for param, errs := range envelope.ParameterErrors {
		msgs = append(msgs, param+": "+strings.Join(errs, "; "))
	}
	return courier.NewProviderError(providerCode, "VALIDATION", strings.Join(msgs, "; "))
}

// ============================================================================
// courier.Mapper
// ============================================================================

// QuotationFromResponse parses a calculate-order envelope. Borzo issues no
// quotation id and no expiry, so the id is synthesized and the quotation
// stays valid until explicitly invalidated.
func (c *Client) QuotationFromResponse(raw json.RawMessage) (*courier.Quotation, error) {
	var envelope OrderEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding borzo quotation: %w", err)
	}
	if envelope.Order == nil {
		return nil, fmt.Errorf("decoding borzo quotation: envelope has no order")
	}

	return &courier.Quotation{
		ID:       providerCode + "-q-" + uuid.New().String()[:8],
		Price:    courier.Money{Amount: parseAmount(envelope.Order.PaymentAmount), Currency: defaultCurrency},
		IssuedAt: time.Now(),
		Valid:    true,
		Raw:      raw,
	}, nil
}

// OrderFromResponse parses an order envelope.
func (c *Client) OrderFromResponse(raw json.RawMessage) (*courier.Order, error) {
	var envelope OrderEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding borzo order: %w", err)
	}
	order := envelope.Order
	if order == nil && len(envelope.Orders) > 0 {
		order = &envelope.Orders[0]
	}
	if order == nil {
		return nil, fmt.Errorf("decoding borzo order: envelope has no order")
	}

	o := &courier.Order{
		ID:     order.OrderID.String(),
		Status: mapStatus(order.Status),
		Price:  courier.Money{Amount: parseAmount(order.PaymentAmount), Currency: defaultCurrency},
		Raw:    raw,
	}
	if order.Courier != nil {
		o.Driver = &courier.DriverInfo{
			ID:    order.Courier.CourierID.String(),
			Name:  order.Courier.Name,
			Phone: order.Courier.Phone,
		}
		if order.Courier.CarPlate != "" || order.Courier.CarModel != "" {
			o.Vehicle = &courier.VehicleInfo{
				PlateNumber: order.Courier.CarPlate,
				Model:       order.Courier.CarModel,
			}
		}
	}
	return o, nil
}

// DecodeWebhookEvent translates the Borzo callback vocabulary.
func (c *Client) DecodeWebhookEvent(body []byte) (*courier.WebhookEvent, error) {
	var payload EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding borzo event: %w", err)
	}

	ev := &courier.WebhookEvent{Raw: body}
	if payload.Order != nil {
		ev.OrderID = payload.Order.OrderID.String()
	}
	switch payload.EventType {
	case "order_changed":
		ev.Type = courier.EventStatusChanged
	case "courier_assigned":
		ev.Type = courier.EventDriverAssigned
	default:
		ev.Type = courier.EventUnknown
	}
	return ev, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func orderRequestToAPI(req *courier.QuotationRequest) *OrderRequest {
	points := make([]Point, 0, len(req.Destinations)+1)
	for _, s := range append([]courier.Stop{req.Origin}, req.Destinations...) {
		p := Point{
			Address: s.Address,
			ContactPerson: ContactPerson{
				Name:  req.Contact.Name,
				Phone: req.Contact.Phone,
			},
		}
		if s.Coordinate != nil {
			p.Latitude = strconv.FormatFloat(s.Coordinate.Lat, 'f', 6, 64)
			p.Longitude = strconv.FormatFloat(s.Coordinate.Lng, 'f', 6, 64)
		}
		points = append(points, p)
	}

	apiReq := &OrderRequest{
		Matter:        matter(req),
		VehicleTypeID: mapVehicleType(req.Service),
		TotalWeightKG: req.Cargo.WeightKG,
		Points:        points,
	}
	if req.Cargo.DeclaredValue > 0 {
		apiReq.InsuranceAmount = strconv.FormatFloat(req.Cargo.DeclaredValue, 'f', 2, 64)
	}
	if req.ScheduledPickup != nil {
		apiReq.RequiredStartDatetime = req.ScheduledPickup.Format(time.RFC3339)
	}
	return apiReq
}

func matter(req *courier.QuotationRequest) string {
	for _, f := range req.Handling {
		if f == courier.HandlingFragile {
			return "fragile goods"
		}
	}
	return "documents and parcels"
}

func mapVehicleType(s courier.ServiceClass) int {
	switch s {
	case courier.ServiceCar:
		return 7
	case courier.ServiceVan:
		return 9
	case courier.ServiceTruck:
		return 10
	default:
		return 8 // motorbike
	}
}

func mapStatus(status string) courier.Status {
	switch status {
	case "new", "delayed":
		return courier.StatusPending
	case "available", "planned":
		return courier.StatusAssigningDriver
	case "active", "courier_departed", "courier_arrived":
		return courier.StatusOnGoing
	case "completed":
		return courier.StatusCompleted
	case "canceled":
		return courier.StatusCancelled
	case "expired":
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
