package courier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/tournevent/courierhub/pkg/courier/mock"
)

func TestRegistry_Register(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("test-provider").Courier())

	got, err := registry.Resolve("test-provider")
	require.NoError(t, err, "provider should be registered")
	assert.Equal(t, "test-provider", got.Descriptor.Code)
	assert.NotNil(t, got.Client)
	assert.NotNil(t, got.Mapper)
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("test-provider").Courier())
	assert.Equal(t, 1, registry.Count())

	// Registering the same code again overrides
	registry.Register(mock.New("test-provider").Courier())
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	registry := courier.NewRegistry()
	registry.Register(mock.New("borzo").Courier())
	registry.Register(mock.New("lalamove").Courier())

	_, err := registry.Resolve("unknown-xyz")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, courier.ErrProviderNotSupported))

	// The error enumerates the registered codes for the operator
	assert.Contains(t, err.Error(), "borzo")
	assert.Contains(t, err.Error(), "lalamove")
	assert.Contains(t, err.Error(), "unknown-xyz")
}

func TestRegistry_Resolve_AllRegistered(t *testing.T) {
	registry := courier.NewRegistry()
	for _, code := range []string{"borzo", "lalamove", "pandago"} {
		registry.Register(mock.New(code).Courier())
	}

	for _, code := range registry.Codes() {
		p, err := registry.Resolve(code)
		require.NoError(t, err)
		assert.NotNil(t, p.Client)
		assert.NotNil(t, p.Mapper)
	}
}

func TestRegistry_Codes_Sorted(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("pandago").Courier())
	registry.Register(mock.New("borzo").Courier())
	registry.Register(mock.New("lalamove").Courier())

	assert.Equal(t, []string{"borzo", "lalamove", "pandago"}, registry.Codes())
}

func TestRegistry_Descriptors(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("lalamove").Courier())
	registry.Register(mock.New("borzo").Courier())

	descs := registry.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "borzo", descs[0].Code)
	assert.Equal(t, "lalamove", descs[1].Code)
	assert.NotEmpty(t, descs[0].DisplayName)
}

func TestRegistry_QuoteAll(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("borzo").Courier())
	registry.Register(mock.New("lalamove").Courier())

	req := &courier.QuotationRequest{
		Origin:       courier.Stop{Address: "1 Raffles Place", Coordinate: &courier.GeoPoint{Lat: 1.2847, Lng: 103.8512}},
		Destinations: []courier.Stop{{Address: "30 Victoria St", Coordinate: &courier.GeoPoint{Lat: 1.2976, Lng: 103.8521}}},
		Cargo:        courier.Cargo{Quantity: 1, WeightKG: 2.5},
		Service:      courier.ServiceMotorbike,
		Contact:      courier.Contact{Name: "Ops", Phone: "+6591234567"},
	}

	results, errs := registry.QuoteAll(context.Background(), req)

	assert.Empty(t, errs, "mock providers should not fail")
	require.Len(t, results, 2)
	for _, q := range results {
		assert.NotEmpty(t, q.ID)
		assert.NotEmpty(t, q.ProviderCode)
		assert.True(t, q.Valid)
	}
}

func TestRegistry_QuoteAll_PartialFailure(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New("borzo").Courier())
	failing := mock.New("lalamove")
	failing.SimulateErrors = true
	registry.Register(failing.Courier())

	results, errs := registry.QuoteAll(context.Background(), &courier.QuotationRequest{})

	assert.Len(t, results, 1)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "lalamove")
}

func TestRegistry_QuoteAll_Empty(t *testing.T) {
	registry := courier.NewRegistry()

	results, errs := registry.QuoteAll(context.Background(), &courier.QuotationRequest{})

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], courier.ErrProviderNotSupported))
}
