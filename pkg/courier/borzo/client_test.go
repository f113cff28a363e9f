package borzo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/tournevent/courierhub/pkg/courier/borzo"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *borzo.MockAPIClient) *borzo.Client {
	logger := otelzap.New(zap.NewNop())
	return borzo.NewWithAPIClient(
		borzo.Config{},
		mockClient,
		logger,
		nil,
	)
}

func quotationRequestFixture() *courier.QuotationRequest {
	return &courier.QuotationRequest{
		Origin: courier.Stop{
			Address:    "Ayala Ave, Makati",
			Coordinate: &courier.GeoPoint{Lat: 14.5547, Lng: 121.0244},
		},
		Destinations: []courier.Stop{
			{Address: "BGC, Taguig"},
		},
		Cargo:   courier.Cargo{Quantity: 1, WeightKG: 2.5, DeclaredValue: 1500},
		Service: courier.ServiceMotorbike,
		Contact: courier.Contact{Name: "Dispatch", Phone: "+639171112222"},
	}
}

func TestClient_GetQuotation_SynthesizesID(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	raw, err := client.GetQuotation(context.Background(), quotationRequestFixture())
	require.NoError(t, err)

	q, err := client.QuotationFromResponse(raw)
	require.NoError(t, err)
	assert.Contains(t, q.ID, "borzo-q-")
	assert.Equal(t, 350.00, q.Price.Amount)
	assert.Equal(t, "PHP", q.Price.Currency)
	assert.Nil(t, q.ExpiresAt)
	assert.True(t, q.Valid)
}

func TestClient_GetQuotation_ValidationErrors(t *testing.T) {
	mockAPI := borzo.NewMockAPIClient()
	mockAPI.OnCalculateOrder = func(ctx context.Context, req *borzo.OrderRequest) (*borzo.OrderEnvelope, error) {
		return &borzo.OrderEnvelope{
			IsSuccessful: false,
			ParameterErrors: map[string][]string{
				"points": {"address is required"},
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetQuotation(context.Background(), quotationRequestFixture())
	require.Error(t, err)

	var provErr *courier.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "borzo", provErr.Provider)
	assert.Equal(t, "VALIDATION", provErr.Code)
	assert.Contains(t, provErr.Message, "points")
}

func TestClient_GetQuotationDetails_NotSupported(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	_, err := client.GetQuotationDetails(context.Background(), "borzo-q-abc")
	assert.ErrorIs(t, err, courier.ErrNotSupported)

	_, err = client.GetDriverDetails(context.Background(), "5512")
	assert.ErrorIs(t, err, courier.ErrNotSupported)
}

func TestClient_PlaceOrder_RequiresPayload(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	_, err := client.PlaceOrder(context.Background(), "borzo-q-abc", nil)
	assert.ErrorIs(t, err, courier.ErrInvalidArgument)
}

func TestClient_PlaceOrder_RoundTrip(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	raw, err := client.PlaceOrder(context.Background(), "borzo-q-abc", quotationRequestFixture())
	require.NoError(t, err)

	order, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "981724", order.ID)
	assert.Equal(t, courier.StatusAssigningDriver, order.Status)
	assert.Equal(t, 350.00, order.Price.Amount)
	assert.Equal(t, "PHP", order.Price.Currency)
}

func TestClient_GetOrderDetails_CourierMapped(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	raw, err := client.GetOrderDetails(context.Background(), "981724")
	require.NoError(t, err)

	order, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, courier.StatusOnGoing, order.Status)
	require.NotNil(t, order.Driver)
	assert.Equal(t, "5512", order.Driver.ID)
	assert.Equal(t, "Ramon Cruz", order.Driver.Name)
	require.NotNil(t, order.Vehicle)
	assert.Equal(t, "NCR 4821", order.Vehicle.PlateNumber)
}

func TestClient_CancelOrder(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	raw, err := client.CancelOrder(context.Background(), "981724")
	require.NoError(t, err)

	order, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, courier.StatusCancelled, order.Status)
}

func TestClient_AuthError(t *testing.T) {
	mockAPI := borzo.NewMockAPIClient()
	mockAPI.OnGetOrder = func(ctx context.Context, orderID string) (*borzo.OrderEnvelope, error) {
		return nil, &borzo.APIError{
			HTTPStatus: 401,
			Code:       "UNAUTHORIZED",
			Message:    "invalid auth token",
		}
	}
	client := newTestClient(mockAPI)

	_, err := client.GetOrderDetails(context.Background(), "981724")
	assert.ErrorIs(t, err, courier.ErrAuthFailed)
}

func TestClient_TimeoutError(t *testing.T) {
	mockAPI := borzo.NewMockAPIClient()
	mockAPI.OnCreateOrder = func(ctx context.Context, req *borzo.OrderRequest) (*borzo.OrderEnvelope, error) {
		return nil, &borzo.APIError{
			Code:      "TIMEOUT",
			Message:   "request timed out",
			IsTimeout: true,
		}
	}
	client := newTestClient(mockAPI)

	_, err := client.PlaceOrder(context.Background(), "", quotationRequestFixture())
	require.Error(t, err)
	assert.True(t, courier.IsTimeout(err))
}

func TestClient_DecodeWebhookEvent(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	tests := []struct {
		name     string
		body     string
		wantType courier.EventType
		wantID   string
	}{
		{
			name:     "order changed",
			body:     `{"event_type":"order_changed","order":{"order_id":981724,"status":"completed","payment_amount":"350.00"}}`,
			wantType: courier.EventStatusChanged,
			wantID:   "981724",
		},
		{
			name:     "courier assigned",
			body:     `{"event_type":"courier_assigned","order":{"order_id":981724,"status":"active","payment_amount":"350.00"}}`,
			wantType: courier.EventDriverAssigned,
			wantID:   "981724",
		},
		{
			name:     "unknown event",
			body:     `{"event_type":"buyout_amount_changed"}`,
			wantType: courier.EventUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := client.DecodeWebhookEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ev.Type)
			assert.Equal(t, tt.wantID, ev.OrderID)
		})
	}
}

func TestClient_DecodeWebhookEvent_BadBody(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	_, err := client.DecodeWebhookEvent([]byte("not json"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, courier.ErrNotSupported))
}

func TestClient_Courier(t *testing.T) {
	client := newTestClient(borzo.NewMockAPIClient())

	entry := client.Courier()
	assert.Equal(t, "borzo", entry.Descriptor.Code)
	assert.False(t, entry.PlacementByQuotation)
	assert.Equal(t, "PHP", entry.DefaultCurrency)
}
