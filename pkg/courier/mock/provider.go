// Package mock provides a mock delivery provider for testing.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/courierhub/pkg/courier"
)

// Provider is a mock delivery provider. It serves canned responses in its
// own wire format so the mapper path is exercised for real, and supports
// per-method overrides plus call counting.
type Provider struct {
	code     string
	QuoteTTL time.Duration
	Currency string
	Now      func() time.Time

	SimulateErrors bool

	OnGetQuotation     func(ctx context.Context, req *courier.QuotationRequest) (json.RawMessage, error)
	OnPlaceOrder       func(ctx context.Context, quotationID string, req *courier.QuotationRequest) (json.RawMessage, error)
	OnGetOrderDetails  func(ctx context.Context, orderID string) (json.RawMessage, error)
	OnCancelOrder      func(ctx context.Context, orderID string) (json.RawMessage, error)
	OnGetDriverDetails func(ctx context.Context, driverID string) (json.RawMessage, error)

	mu        sync.Mutex
	calls     map[string]int
	cancelled map[string]bool
}

// New creates a mock provider with the given code.
func New(code string) *Provider {
	return &Provider{
		code:      code,
		QuoteTTL:  30 * time.Minute,
		Currency:  "SGD",
		Now:       time.Now,
		calls:     make(map[string]int),
		cancelled: make(map[string]bool),
	}
}

// Courier bundles the mock into a registrable provider entry.
func (p *Provider) Courier() courier.Provider {
	return courier.Provider{
		Descriptor: courier.Descriptor{
			Code:        p.code,
			DisplayName: "Mock " + p.code,
		},
		Client:               p,
		Mapper:               p,
		PlacementByQuotation: true,
		DefaultCurrency:      p.Currency,
	}
}

// Calls returns how many times the named client method was invoked.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *Provider) record(method string) error {
	p.mu.Lock()
	p.calls[method]++
	p.mu.Unlock()
	if p.SimulateErrors {
		return courier.NewProviderError(p.code, "MOCK_ERROR", "simulated API error")
	}
	return nil
}

// ============================================================================
// Wire types (the mock's "native" format)
// ============================================================================

type quotationPayload struct {
	QuotationID string `json:"quotation_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	IssuedAt    string `json:"issued_at"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type driverPayload struct {
	DriverID string `json:"driver_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Plate    string `json:"plate_number,omitempty"`
	Model    string `json:"vehicle_model,omitempty"`
}

type orderPayload struct {
	OrderID     string         `json:"order_id"`
	QuotationID string         `json:"quotation_id,omitempty"`
	State       string         `json:"state"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	Driver      *driverPayload `json:"driver,omitempty"`
}

type eventPayload struct {
	Event      string `json:"event"`
	OrderID    string `json:"order_id"`
	NewOrderID string `json:"new_order_id,omitempty"`
	State      string `json:"state,omitempty"`
}

// ============================================================================
// courier.Client
// ============================================================================

// GetQuotation returns a canned quotation in the mock wire format.
func (p *Provider) GetQuotation(ctx context.Context, req *courier.QuotationRequest) (json.RawMessage, error) {
	if err := p.record("GetQuotation"); err != nil {
		return nil, err
	}
	if p.OnGetQuotation != nil {
		return p.OnGetQuotation(ctx, req)
	}

	now := p.Now()
	payload := quotationPayload{
		QuotationID: p.code + "-q-" + uuid.New().String()[:8],
		Amount:      "42.50",
		Currency:    p.Currency,
		IssuedAt:    now.Format(time.RFC3339),
		ExpiresAt:   now.Add(p.QuoteTTL).Format(time.RFC3339),
	}
	return json.Marshal(payload)
}

// GetQuotationDetails fails with ErrNotSupported: the mock models a provider
// without a quotation-lookup endpoint.
func (p *Provider) GetQuotationDetails(ctx context.Context, quotationID string) (json.RawMessage, error) {
	if err := p.record("GetQuotationDetails"); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: GetQuotationDetails (%s)", courier.ErrNotSupported, p.code)
}

// PlaceOrder books a mock order against the given quotation.
func (p *Provider) PlaceOrder(ctx context.Context, quotationID string, req *courier.QuotationRequest) (json.RawMessage, error) {
	if err := p.record("PlaceOrder"); err != nil {
		return nil, err
	}
	if p.OnPlaceOrder != nil {
		return p.OnPlaceOrder(ctx, quotationID, req)
	}

	payload := orderPayload{
		OrderID:     p.code + "-o-" + uuid.New().String()[:8],
		QuotationID: quotationID,
		State:       "pending",
		Amount:      "42.50",
		Currency:    p.Currency,
	}
	return json.Marshal(payload)
}

// GetOrderDetails returns the current mock order state.
func (p *Provider) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	if err := p.record("GetOrderDetails"); err != nil {
		return nil, err
	}
	if p.OnGetOrderDetails != nil {
		return p.OnGetOrderDetails(ctx, orderID)
	}

	p.mu.Lock()
	done := p.cancelled[orderID]
	p.mu.Unlock()
	if done {
		return json.Marshal(orderPayload{
			OrderID:  orderID,
			State:    "cancelled",
			Amount:   "42.50",
			Currency: p.Currency,
		})
	}

	payload := orderPayload{
		OrderID:  orderID,
		State:    "ongoing",
		Amount:   "42.50",
		Currency: p.Currency,
		Driver: &driverPayload{
			DriverID: "drv-1",
			Name:     "Sam Driver",
			Phone:    "+6598765432",
			Plate:    "SKV1234X",
			Model:    "Yamaha NMAX",
		},
	}
	return json.Marshal(payload)
}

// CancelOrder cancels a mock order.
func (p *Provider) CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if err := p.record("CancelOrder"); err != nil {
		return nil, err
	}
	if p.OnCancelOrder != nil {
		return p.OnCancelOrder(ctx, orderID)
	}

	p.mu.Lock()
	p.cancelled[orderID] = true
	p.mu.Unlock()

	payload := orderPayload{
		OrderID:  orderID,
		State:    "cancelled",
		Amount:   "42.50",
		Currency: p.Currency,
	}
	return json.Marshal(payload)
}

// GetDriverDetails returns mock driver details.
func (p *Provider) GetDriverDetails(ctx context.Context, driverID string) (json.RawMessage, error) {
	if err := p.record("GetDriverDetails"); err != nil {
		return nil, err
	}
	if p.OnGetDriverDetails != nil {
		return p.OnGetDriverDetails(ctx, driverID)
	}

	payload := driverPayload{
		DriverID: driverID,
		Name:     "Sam Driver",
		Phone:    "+6598765432",
		Plate:    "SKV1234X",
		Model:    "Yamaha NMAX",
	}
	return json.Marshal(payload)
}

// ============================================================================
// courier.Mapper
// ============================================================================

// QuotationFromResponse parses the mock quotation wire format.
func (p *Provider) QuotationFromResponse(raw json.RawMessage) (*courier.Quotation, error) {
	var payload quotationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding mock quotation: %w", err)
	}

	q := &courier.Quotation{
		ID:    payload.QuotationID,
		Price: courier.Money{Amount: parseAmount(payload.Amount), Currency: payload.Currency},
		Valid: true,
		Raw:   raw,
	}
	if payload.Currency == "" {
		q.Price.Currency = p.Currency
	}
	if t, err := time.Parse(time.RFC3339, payload.IssuedAt); err == nil {
		q.IssuedAt = t
	}
	if payload.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.ExpiresAt); err == nil {
			q.ExpiresAt = &t
		}
	}
	return q, nil
}

// OrderFromResponse parses the mock order wire format.
func (p *Provider) OrderFromResponse(raw json.RawMessage) (*courier.Order, error) {
	var payload orderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding mock order: %w", err)
	}

	o := &courier.Order{
		ID:          payload.OrderID,
		QuotationID: payload.QuotationID,
		Status:      mapState(payload.State),
		Price:       courier.Money{Amount: parseAmount(payload.Amount), Currency: payload.Currency},
		Raw:         raw,
	}
	if payload.Currency == "" {
		o.Price.Currency = p.Currency
	}
	if payload.Driver != nil {
		o.Driver = &courier.DriverInfo{
			ID:    payload.Driver.DriverID,
			Name:  payload.Driver.Name,
			Phone: payload.Driver.Phone,
		}
		if payload.Driver.Plate != "" || payload.Driver.Model != "" {
			o.Vehicle = &courier.VehicleInfo{
				PlateNumber: payload.Driver.Plate,
				Model:       payload.Driver.Model,
			}
		}
	}
	return o, nil
}

// DecodeWebhookEvent translates the mock event vocabulary.
func (p *Provider) DecodeWebhookEvent(body []byte) (*courier.WebhookEvent, error) {
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding mock event: %w", err)
	}

	ev := &courier.WebhookEvent{
		OrderID:    payload.OrderID,
		NewOrderID: payload.NewOrderID,
		Raw:        body,
	}
	switch payload.Event {
	case "ORDER_STATUS_CHANGED":
		ev.Type = courier.EventStatusChanged
	case "DRIVER_ASSIGNED":
		ev.Type = courier.EventDriverAssigned
	case "ORDER_AMOUNT_CHANGED":
		ev.Type = courier.EventAmountChanged
	case "ORDER_REPLACED":
		ev.Type = courier.EventOrderReplaced
	case "ORDER_EDITED":
		ev.Type = courier.EventOrderEdited
	default:
		ev.Type = courier.EventUnknown
	}
	return ev, nil
}

func mapState(state string) courier.Status {
	switch state {
	case "pending":
		return courier.StatusPending
	case "assigning":
		return courier.StatusAssigningDriver
	case "ongoing", "picked_up":
		return courier.StatusOnGoing
	case "completed":
		return courier.StatusCompleted
	case "cancelled":
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
	_ courier.Client         = (*Provider)(nil)
	_ courier.Mapper         = (*Provider)(nil)
	_ courier.WebhookDecoder = (*Provider)(nil)
)
