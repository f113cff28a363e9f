// Package courier provides an abstraction layer for on-demand delivery providers.
package courier

import (
	"context"
	"encoding/json"
)

// Descriptor identifies a registered delivery provider.
// Immutable after registration.
type Descriptor struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

// Client performs the network calls against one provider's API.
// Authentication (API keys, OAuth2, HMAC signing) is entirely internal to
// each implementation; callers never see raw credentials.
type Client interface {
	// GetQuotation requests a delivery price quotation.
	GetQuotation(ctx context.Context, req *QuotationRequest) (json.RawMessage, error)

	// GetQuotationDetails fetches a previously issued quotation.
	// Providers without this call fail with ErrNotSupported.
	GetQuotationDetails(ctx context.Context, quotationID string) (json.RawMessage, error)

	// PlaceOrder books a delivery. Providers that place against a stored
	// quotation use quotationID; providers that require the full payload
	// use req instead. Both are always supplied by the caller.
	PlaceOrder(ctx context.Context, quotationID string, req *QuotationRequest) (json.RawMessage, error)

	// GetOrderDetails fetches the current state of a placed order.
	GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error)

	// CancelOrder cancels a placed order.
	CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error)

	// GetDriverDetails fetches details of an assigned driver.
	// Providers without this call fail with ErrNotSupported.
	GetDriverDetails(ctx context.Context, driverID string) (json.RawMessage, error)
}

// Mapper normalizes one provider's wire payloads into the shared models.
type Mapper interface {
	// QuotationFromResponse parses a provider quotation payload.
	QuotationFromResponse(raw json.RawMessage) (*Quotation, error)

	// OrderFromResponse parses a provider order payload.
	OrderFromResponse(raw json.RawMessage) (*Order, error)
}

// WebhookDecoder is implemented by mappers of providers that push webhook
// events. It translates the provider's native event vocabulary into a
// normalized WebhookEvent.
type WebhookDecoder interface {
	DecodeWebhookEvent(body []byte) (*WebhookEvent, error)
}

// Provider bundles everything the orchestration engine needs to talk to
// one backend.
type Provider struct {
	Descriptor Descriptor
	Client     Client
	Mapper     Mapper

	// PlacementByQuotation is true when the provider books an order against
	// a previously issued quotation id; false when PlaceOrder must carry the
	// full request payload.
	PlacementByQuotation bool

	// DefaultCurrency is applied when the provider omits a currency from a
	// price field.
	DefaultCurrency string
}
