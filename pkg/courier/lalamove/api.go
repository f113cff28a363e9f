package lalamove

import (
	"context"
)

// APIClient defines the interface for Lalamove API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateQuotation requests a priced quotation. POST /v3/quotations
	CreateQuotation(ctx context.Context, req *QuotationRequest) (*QuotationResponse, error)

	// GetQuotation fetches a previously issued quotation. GET /v3/quotations/{id}
	GetQuotation(ctx context.Context, quotationID string) (*QuotationResponse, error)

	// PlaceOrder books an order against a quotation. POST /v3/orders
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// GetOrder fetches order details. GET /v3/orders/{id}
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)

	// CancelOrder cancels an order. DELETE /v3/orders/{id}
	CancelOrder(ctx context.Context, orderID string) (*OrderResponse, error)

	// GetDriver fetches driver details for an order. GET /v3/drivers/{id}
	GetDriver(ctx context.Context, driverID string) (*DriverResponse, error)
}

// ============================================================================
// API Request/Response Types (match Lalamove REST API v3 structure)
// ============================================================================

// Coordinates is a lat/lng pair, serialized as strings per the API.
type Coordinates struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Stop represents a pickup or delivery stop.
type Stop struct {
	Coordinates Coordinates `json:"coordinates"`
	Address     string      `json:"address"`
}

// Item describes the goods being delivered.
type Item struct {
	Quantity   string   `json:"quantity"`
	Weight     string   `json:"weight"` // weight tier, e.g. "LESS_THAN_3_KG"
	Categories []string `json:"categories,omitempty"`
}

// QuotationRequest is the body for POST /v3/quotations.
type QuotationRequest struct {
	ServiceType string   `json:"serviceType"` // MOTORCYCLE, CAR, VAN, TRUCK550
	Language    string   `json:"language"`
	Stops       []Stop   `json:"stops"`
	ScheduleAt  string   `json:"scheduleAt,omitempty"` // UTC ISO8601
	SpecialRequests []string `json:"specialRequests,omitempty"`
	Item        *Item    `json:"item,omitempty"`
}

// PriceBreakdown carries the quoted price components.
type PriceBreakdown struct {
	Base     string `json:"base"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// QuotationResponse is the payload of a quotation create/fetch call.
type QuotationResponse struct {
	QuotationID    string         `json:"quotationId"`
	ScheduleAt     string         `json:"scheduleAt,omitempty"`
	ExpiresAt      string         `json:"expiresAt"`
	ServiceType    string         `json:"serviceType"`
	PriceBreakdown PriceBreakdown `json:"priceBreakdown"`
	Stops          []Stop         `json:"stops,omitempty"`
}

// OrderContact identifies the sender contact on an order.
type OrderContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// OrderRequest is the body for POST /v3/orders.
type OrderRequest struct {
	QuotationID string       `json:"quotationId"`
	Sender      OrderContact `json:"sender"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// OrderResponse is the payload of order create/fetch/cancel calls.
type OrderResponse struct {
	OrderID        string         `json:"orderId"`
	QuotationID    string         `json:"quotationId,omitempty"`
	Status         string         `json:"status"` // ASSIGNING_DRIVER, ON_GOING, PICKED_UP, COMPLETED, CANCELED, REJECTED, EXPIRED
	PriceBreakdown PriceBreakdown `json:"priceBreakdown"`
	DriverID       string         `json:"driverId,omitempty"`
	ShareLink      string         `json:"shareLink,omitempty"`
}

// DriverResponse is the payload of GET /v3/drivers/{id}.
type DriverResponse struct {
	DriverID    string `json:"driverId"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	PlateNumber string `json:"plateNumber"`
}

// WebhookPayload is the envelope Lalamove POSTs to the callback URL.
type WebhookPayload struct {
	EventType string `json:"eventType"` // ORDER_STATUS_CHANGED, DRIVER_ASSIGNED, ORDER_AMOUNT_CHANGED, ORDER_REPLACED, ORDER_EDITED
	EventID   string `json:"eventId"`
	Timestamp int64  `json:"timestamp"`
	Data      struct {
		Order struct {
			OrderID         string `json:"orderId"`
			PreviousOrderID string `json:"previousOrderId,omitempty"`
			Status          string `json:"status,omitempty"`
			DriverID        string `json:"driverId,omitempty"`
		} `json:"order"`
	} `json:"data"`
}

// APIError represents an error payload from the Lalamove API.
type APIError struct {
	HTTPStatus int     `json:"-"`
	Errors     []Error `json:"errors"`
	RawBody    string  `json:"-"`
}

// Error is a single error entry.
type Error struct {
	ID      string `json:"id"` // e.g. ERR_INVALID_QUOTATION, ERR_QUOTATION_EXPIRED
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return e.Errors[0].ID + ": " + e.Errors[0].Message
	}
	return "lalamove api error"
}

// HasErrorID reports whether the payload carries the given error id.
func (e *APIError) HasErrorID(id string) bool {
	for _, entry := range e.Errors {
		if entry.ID == id {
			return true
		}
	}
	return false
}
