package pandago

import "context"

// APIClient defines the interface for pandago API operations.
type APIClient interface {
	// EstimateFee prices a delivery without committing to it.
	// POST /sg/api/v1/orders/fee
	EstimateFee(ctx context.Context, req *OrderRequest) (*FeeEstimate, error)

	// CreateOrder books a delivery. POST /sg/api/v1/orders
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)

	// GetOrder fetches a booked order. GET /sg/api/v1/orders/{id}
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// CancelOrder cancels a booked order. DELETE /sg/api/v1/orders/{id}
	CancelOrder(ctx context.Context, orderID string) (*Order, error)
}

// ============================================================================
// API Request/Response Types (match pandago API v1 structure)
// ============================================================================

// Location is an address with coordinates.
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Sender is the pickup party.
type Sender struct {
	Name        string   `json:"name"`
	PhoneNumber string   `json:"phone_number"`
	Location    Location `json:"location"`
}

// Recipient is the drop-off party.
type Recipient struct {
	Name        string   `json:"name,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Location    Location `json:"location"`
}

// OrderRequest is the body for fee estimation and order creation.
type OrderRequest struct {
	ClientOrderID string    `json:"client_order_id,omitempty"`
	Sender        Sender    `json:"sender"`
	Recipient     Recipient `json:"recipient"`
	Amount        float64   `json:"amount,omitempty"`
	Description   string    `json:"description"`
	ColdbagNeeded bool      `json:"coldbag_needed,omitempty"`
}

// FeeEstimate is the fee endpoint response. It carries no id and no expiry.
type FeeEstimate struct {
	ClientOrderID        string  `json:"client_order_id,omitempty"`
	EstimatedDeliveryFee float64 `json:"estimated_delivery_fee"`
}

// Driver is the assigned rider.
type Driver struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Order is the pandago order record.
type Order struct {
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
	Status        string  `json:"status"` // NEW ... DELIVERED, CANCELLED
	DeliveryFee   float64 `json:"delivery_fee"`
	Driver        *Driver `json:"driver,omitempty"`
	CreatedAt     int64   `json:"created_at,omitempty"`
	UpdatedAt     int64   `json:"updated_at,omitempty"`
}

// EventPayload is the body pandago POSTs on order updates.
type EventPayload struct {
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
	Status        string  `json:"status"`
	Driver        *Driver `json:"driver,omitempty"`
	UpdatedAt     int64   `json:"updated_at,omitempty"`
}

// TokenResponse is the OAuth2 token endpoint response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// APIError represents an API or transport failure.
type APIError struct {
	HTTPStatus int
	Code       string `json:"code"`
	Message    string `json:"message"`
	RawBody    string
	IsTimeout  bool
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
