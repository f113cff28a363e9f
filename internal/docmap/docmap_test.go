package docmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/internal/docmap"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/pkg/courier"
)

func transportJobFields() document.Fields {
	return document.Fields{
		"pickupAddress": "1 Fullerton Rd",
		"pickupLat":     1.2862,
		"pickupLng":     103.8545,
		"dropoffs": []any{
			map[string]any{"address": "88 Market St", "lat": 1.2846, "lng": 103.8500},
		},
		"quantity":      2,
		"weightKg":      7.5,
		"declaredValue": 200.0,
		"vehicleType":   "van",
		"contactName":   "Ops Desk",
		"contactPhone":  "+6591234567",
		"handlingFlags": []string{"fragile"},
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := docmap.NewRegistry()
	r.Register(docmap.TransportJobMapping())

	m, err := r.Resolve(docmap.TransportJobType)
	require.NoError(t, err)
	assert.Equal(t, "deliveryOrderId", m.OrderLinkField)

	_, err = r.Resolve("WarehouseJob")
	require.Error(t, err)
	assert.ErrorIs(t, err, courier.ErrUnsupportedDocumentType)
	assert.Contains(t, err.Error(), docmap.TransportJobType)
}

func TestTransportJobMapping_BuildRequest(t *testing.T) {
	m := docmap.TransportJobMapping()

	req, err := m.BuildRequest(transportJobFields())
	require.NoError(t, err)

	assert.Equal(t, "1 Fullerton Rd", req.Origin.Address)
	require.NotNil(t, req.Origin.Coordinate)
	assert.Equal(t, 1.2862, req.Origin.Coordinate.Lat)

	require.Len(t, req.Destinations, 1)
	assert.Equal(t, "88 Market St", req.Destinations[0].Address)

	assert.Equal(t, 2, req.Cargo.Quantity)
	assert.Equal(t, 7.5, req.Cargo.WeightKG)
	assert.Equal(t, courier.ServiceVan, req.Service)
	assert.Equal(t, []courier.HandlingFlag{courier.HandlingFragile}, req.Handling)
	assert.Equal(t, "Ops Desk", req.Contact.Name)
}

func TestTransportJobMapping_MissingFields(t *testing.T) {
	m := docmap.TransportJobMapping()

	fields := transportJobFields()
	delete(fields, "pickupAddress")
	_, err := m.BuildRequest(fields)
	assert.ErrorIs(t, err, courier.ErrMissingRequiredField)

	fields = transportJobFields()
	fields["dropoffs"] = []any{}
	_, err = m.BuildRequest(fields)
	assert.ErrorIs(t, err, courier.ErrMissingRequiredField)

	fields = transportJobFields()
	fields["dropoffs"] = []any{map[string]any{"lat": 1.0, "lng": 2.0}}
	_, err = m.BuildRequest(fields)
	assert.ErrorIs(t, err, courier.ErrMissingRequiredField)
}

func TestTransportJobMapping_CoordinatesOptional(t *testing.T) {
	m := docmap.TransportJobMapping()

	fields := transportJobFields()
	delete(fields, "pickupLat")
	delete(fields, "pickupLng")

	req, err := m.BuildRequest(fields)
	require.NoError(t, err)
	assert.Nil(t, req.Origin.Coordinate)
}

func TestTransportJobMapping_DefaultsQuantity(t *testing.T) {
	m := docmap.TransportJobMapping()

	fields := transportJobFields()
	delete(fields, "quantity")

	req, err := m.BuildRequest(fields)
	require.NoError(t, err)
	assert.Equal(t, 1, req.Cargo.Quantity)
}

func TestTransportJobMapping_BadScheduledPickup(t *testing.T) {
	m := docmap.TransportJobMapping()

	fields := transportJobFields()
	fields["scheduledPickup"] = "tomorrow-ish"

	_, err := m.BuildRequest(fields)
	assert.ErrorIs(t, err, courier.ErrInvalidArgument)
}
