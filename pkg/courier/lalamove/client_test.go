package lalamove_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/tournevent/courierhub/pkg/courier/lalamove"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *lalamove.MockAPIClient) *lalamove.Client {
	logger := otelzap.New(zap.NewNop())
	return lalamove.NewWithAPIClient(
		lalamove.Config{},
		mockClient,
		logger,
		nil,
	)
}

func quotationRequestFixture() *courier.QuotationRequest {
	return &courier.QuotationRequest{
		Origin: courier.Stop{
			Address:    "1 Raffles Place",
			Coordinate: &courier.GeoPoint{Lat: 1.2847, Lng: 103.8512},
		},
		Destinations: []courier.Stop{
			{
				Address:    "30 Victoria St",
				Coordinate: &courier.GeoPoint{Lat: 1.2976, Lng: 103.8521},
			},
		},
		Cargo:   courier.Cargo{Quantity: 2, WeightKG: 4.2},
		Service: courier.ServiceMotorbike,
		Contact: courier.Contact{Name: "Ops Desk", Phone: "+6591234567"},
	}
}

func TestClient_GetQuotation_RoundTrip(t *testing.T) {
	mockAPI := lalamove.NewMockAPIClient()
	expiresAt := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	mockAPI.OnCreateQuotation = func(ctx context.Context, req *lalamove.QuotationRequest) (*lalamove.QuotationResponse, error) {
		return &lalamove.QuotationResponse{
			QuotationID: "llm-q-fixture",
			ExpiresAt:   expiresAt.Format(time.RFC3339),
			ServiceType: req.ServiceType,
			PriceBreakdown: lalamove.PriceBreakdown{
				Base:     "12.00",
				Total:    "14.50",
				Currency: "SGD",
			},
		}, nil
	}
	client := newTestClient(mockAPI)

	raw, err := client.GetQuotation(context.Background(), quotationRequestFixture())
	require.NoError(t, err)

	q, err := client.QuotationFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "llm-q-fixture", q.ID)
	assert.Equal(t, 14.50, q.Price.Amount)
	assert.Equal(t, "SGD", q.Price.Currency)
	require.NotNil(t, q.ExpiresAt)
	assert.True(t, q.ExpiresAt.Equal(expiresAt))
	assert.True(t, q.Valid)
}

func TestClient_GetQuotation_MissingCoordinates(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	req := quotationRequestFixture()
	req.Destinations[0].Coordinate = nil

	_, err := client.GetQuotation(context.Background(), req)
	assert.True(t, errors.Is(err, courier.ErrMissingRequiredField))
}

func TestClient_GetQuotation_APIError(t *testing.T) {
	mockAPI := lalamove.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.GetQuotation(context.Background(), quotationRequestFixture())
	require.Error(t, err)

	var provErr *courier.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "lalamove", provErr.Provider)
	assert.Equal(t, 500, provErr.StatusCode)
}

func TestClient_PlaceOrder_Success(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	raw, err := client.PlaceOrder(context.Background(), "llm-q-fixture", quotationRequestFixture())
	require.NoError(t, err)

	o, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "llm-q-fixture", o.QuotationID)
	assert.Equal(t, courier.StatusAssigningDriver, o.Status)
}

func TestClient_PlaceOrder_ExpiredQuotation(t *testing.T) {
	mockAPI := lalamove.NewMockAPIClient()
	mockAPI.OnPlaceOrder = func(ctx context.Context, req *lalamove.OrderRequest) (*lalamove.OrderResponse, error) {
		return nil, &lalamove.APIError{
			HTTPStatus: 422,
			Errors:     []lalamove.Error{{ID: "ERR_QUOTATION_EXPIRED", Message: "quotation has expired"}},
		}
	}
	client := newTestClient(mockAPI)

	_, err := client.PlaceOrder(context.Background(), "llm-q-stale", nil)
	assert.True(t, errors.Is(err, courier.ErrQuotationExpired))
}

func TestClient_PlaceOrder_AuthError(t *testing.T) {
	mockAPI := lalamove.NewMockAPIClient()
	mockAPI.OnPlaceOrder = func(ctx context.Context, req *lalamove.OrderRequest) (*lalamove.OrderResponse, error) {
		return nil, &lalamove.APIError{
			HTTPStatus: 401,
			Errors:     []lalamove.Error{{ID: "ERR_UNAUTHORIZED", Message: "bad signature"}},
		}
	}
	client := newTestClient(mockAPI)

	_, err := client.PlaceOrder(context.Background(), "llm-q-fixture", nil)
	assert.True(t, errors.Is(err, courier.ErrAuthFailed))
}

func TestClient_GetOrderDetails_DriverMapped(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	raw, err := client.GetOrderDetails(context.Background(), "llm-o-9")
	require.NoError(t, err)

	o, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, courier.StatusOnGoing, o.Status)
	require.NotNil(t, o.Driver)
	assert.Equal(t, "llm-d-42", o.Driver.ID)
}

func TestClient_CancelOrder_Success(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	raw, err := client.CancelOrder(context.Background(), "llm-o-9")
	require.NoError(t, err)

	o, err := client.OrderFromResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, courier.StatusCancelled, o.Status)
}

func TestClient_DecodeWebhookEvent_StatusChanged(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	body := []byte(`{"eventType":"ORDER_STATUS_CHANGED","data":{"order":{"orderId":"llm-o-9","status":"PICKED_UP"}}}`)
	ev, err := client.DecodeWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, courier.EventStatusChanged, ev.Type)
	assert.Equal(t, "llm-o-9", ev.OrderID)
}

func TestClient_DecodeWebhookEvent_Replaced(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	body := []byte(`{"eventType":"ORDER_REPLACED","data":{"order":{"orderId":"llm-o-new","previousOrderId":"llm-o-old"}}}`)
	ev, err := client.DecodeWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, courier.EventOrderReplaced, ev.Type)
	assert.Equal(t, "llm-o-old", ev.OrderID)
	assert.Equal(t, "llm-o-new", ev.NewOrderID)
}

func TestClient_DecodeWebhookEvent_Unknown(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	body := []byte(`{"eventType":"WALLET_TOPPED_UP","data":{"order":{"orderId":"llm-o-9"}}}`)
	ev, err := client.DecodeWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, courier.EventUnknown, ev.Type)
}

func TestClient_Courier(t *testing.T) {
	client := newTestClient(lalamove.NewMockAPIClient())

	p := client.Courier()
	assert.Equal(t, "lalamove", p.Descriptor.Code)
	assert.True(t, p.PlacementByQuotation)
}
