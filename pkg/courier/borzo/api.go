package borzo

import (
	"context"
	"encoding/json"
)

// APIClient defines the interface for Borzo (Dostavista) API operations.
type APIClient interface {
	// CalculateOrder prices a delivery without committing to it.
	// POST /api/business/1.4/calculate-order
	CalculateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error)

	// CreateOrder books a delivery. POST /api/business/1.4/create-order
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error)

	// GetOrder fetches a booked order. GET /api/business/1.4/orders?order_id=
	GetOrder(ctx context.Context, orderID string) (*OrderEnvelope, error)

	// CancelOrder cancels a booked order. POST /api/business/1.4/cancel-order
	CancelOrder(ctx context.Context, orderID string) (*OrderEnvelope, error)
}

// ============================================================================
// API Request/Response Types (match Borzo business API v1.4 structure)
// ============================================================================

// ContactPerson is the contact at a point.
type ContactPerson struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone"`
}

// Point is a pickup or drop-off point.
type Point struct {
	Address       string        `json:"address"`
	Latitude      string        `json:"latitude,omitempty"`
	Longitude     string        `json:"longitude,omitempty"`
	ContactPerson ContactPerson `json:"contact_person"`
	Note          string        `json:"note,omitempty"`
}

// OrderRequest is the body for calculate-order and create-order.
type OrderRequest struct {
	Matter                string  `json:"matter"`
	VehicleTypeID         int     `json:"vehicle_type_id"`
	TotalWeightKG         float64 `json:"total_weight_kg,omitempty"`
	InsuranceAmount       string  `json:"insurance_amount,omitempty"`
	IsMotobox             bool    `json:"is_motobox,omitempty"`
	Points                []Point `json:"points"`
	RequiredStartDatetime string  `json:"required_start_datetime,omitempty"`
}

// Courier describes the assigned courier.
type Courier struct {
	CourierID json.Number `json:"courier_id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	CarPlate  string      `json:"car_number,omitempty"`
	CarModel  string      `json:"car_model,omitempty"`
}

// Order is the Borzo order record, returned by every order endpoint.
type Order struct {
	OrderID           json.Number `json:"order_id"`
	Status            string      `json:"status"` // new, available, active, completed, canceled, delayed
	Matter            string      `json:"matter,omitempty"`
	PaymentAmount     string      `json:"payment_amount"`
	DeliveryFeeAmount string      `json:"delivery_fee_amount,omitempty"`
	Points            []Point     `json:"points,omitempty"`
	Courier           *Courier    `json:"courier,omitempty"`
}

// OrderEnvelope wraps an order response. Validation failures arrive with
// is_successful=false and per-parameter errors instead of an HTTP error.
type OrderEnvelope struct {
	IsSuccessful    bool                `json:"is_successful"`
	Order           *Order              `json:"order,omitempty"`
	Orders          []Order             `json:"orders,omitempty"`
	Errors          []string            `json:"errors,omitempty"`
	ParameterErrors map[string][]string `json:"parameter_errors,omitempty"`
}

// EventPayload is the callback body Borzo POSTs on order changes.
type EventPayload struct {
	EventType     string `json:"event_type"` // order_changed, courier_assigned
	EventDatetime string `json:"event_datetime"`
	Order         *Order `json:"order,omitempty"`
}

// APIError represents a transport or gateway failure.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	RawBody    string
	IsTimeout  bool
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
