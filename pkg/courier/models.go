package courier

import (
	"encoding/json"
	"time"
)

// Status is the normalized lifecycle status of a delivery order.
// Provider-native vocabularies are mapped into this closed set.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusAssigningDriver Status = "ASSIGNING_DRIVER"
	StatusOnGoing         Status = "ON_GOING"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
	StatusExpired         Status = "EXPIRED"
)

// ServiceClass hints at the vehicle class a delivery needs. Derived from the
// business document's vehicle/size type.
type ServiceClass string

const (
	ServiceMotorbike ServiceClass = "motorbike"
	ServiceCar       ServiceClass = "car"
	ServiceVan       ServiceClass = "van"
	ServiceTruck     ServiceClass = "truck"
)

// HandlingFlag marks special handling a delivery requires.
type HandlingFlag string

const (
	HandlingHazardous             HandlingFlag = "hazardous"
	HandlingTemperatureControlled HandlingFlag = "temperature_controlled"
	HandlingFragile               HandlingFlag = "fragile"
	HandlingKeepUpright           HandlingFlag = "keep_upright"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Stop is a pickup or drop-off point.
type Stop struct {
	Address    string    `json:"address"`
	Coordinate *GeoPoint `json:"coordinate,omitempty"`
}

// Cargo describes what is being moved.
type Cargo struct {
	Quantity      int     `json:"quantity"`
	WeightKG      float64 `json:"weightKg"`
	VolumeM3      float64 `json:"volumeM3"`
	DeclaredValue float64 `json:"declaredValue"`
}

// Contact is the pickup party's contact info.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// QuotationRequest is the provider-agnostic intermediate request built from a
// business document. It is constructed fresh per call and never persisted.
type QuotationRequest struct {
	Origin          Stop           `json:"origin"`
	Destinations    []Stop         `json:"destinations"`
	Cargo           Cargo          `json:"cargo"`
	Service         ServiceClass   `json:"service"`
	ScheduledPickup *time.Time     `json:"scheduledPickup,omitempty"`
	Handling        []HandlingFlag `json:"handling,omitempty"`
	Contact         Contact        `json:"contact"`
}

// Money is a monetary amount.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Quotation is a priced, time-bounded offer from a provider, persisted for
// audit even after it is consumed or superseded.
type Quotation struct {
	ID                 string          `json:"id"`
	ProviderCode       string          `json:"providerCode"`
	SourceDocumentType string          `json:"sourceDocumentType"`
	SourceDocumentID   string          `json:"sourceDocumentId"`
	Price              Money           `json:"price"`
	IssuedAt           time.Time       `json:"issuedAt"`
	ExpiresAt          *time.Time      `json:"expiresAt,omitempty"`
	Valid              bool            `json:"valid"`
	Raw                json.RawMessage `json:"-"`
}

// IsValid reports whether the quotation may still back an order placement at
// the given instant. Quotations with no expiry stay valid until explicitly
// invalidated.
func (q *Quotation) IsValid(now time.Time) bool {
	if q == nil || !q.Valid {
		return false
	}
	if q.ExpiresAt != nil && !now.Before(*q.ExpiresAt) {
		return false
	}
	return true
}

// DriverInfo describes the driver assigned to an order.
type DriverInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// VehicleInfo describes the vehicle assigned to an order.
type VehicleInfo struct {
	PlateNumber string `json:"plateNumber"`
	Model       string `json:"model"`
}

// Order is a provider's record of a delivery actually booked. Identifying
// fields are immutable after creation except for the id itself, which may
// migrate on an order_replaced webhook event.
type Order struct {
	ID                 string          `json:"id"`
	ProviderCode       string          `json:"providerCode"`
	QuotationID        string          `json:"quotationId,omitempty"`
	SourceDocumentType string          `json:"sourceDocumentType"`
	SourceDocumentID   string          `json:"sourceDocumentId"`
	Status             Status          `json:"status"`
	Price              Money           `json:"price"`
	Driver             *DriverInfo     `json:"driver,omitempty"`
	Vehicle            *VehicleInfo    `json:"vehicle,omitempty"`
	Raw                json.RawMessage `json:"-"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// CancellationResult reports the outcome of a cancel call.
type CancellationResult struct {
	OrderID string `json:"orderId"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// EventType classifies an inbound webhook event.
type EventType string

const (
	EventStatusChanged  EventType = "status_changed"
	EventDriverAssigned EventType = "driver_assigned"
	EventAmountChanged  EventType = "amount_changed"
	EventOrderReplaced  EventType = "order_replaced"
	EventOrderEdited    EventType = "order_edited"
	EventUnknown        EventType = "unknown"
)

// WebhookEvent is a normalized inbound provider event.
type WebhookEvent struct {
	Type       EventType       `json:"type"`
	OrderID    string          `json:"orderId"`
	NewOrderID string          `json:"newOrderId,omitempty"` // order_replaced only
	Raw        json.RawMessage `json:"-"`
}
