package lalamove

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateQuotation func(ctx context.Context, req *QuotationRequest) (*QuotationResponse, error)
	OnGetQuotation    func(ctx context.Context, quotationID string) (*QuotationResponse, error)
	OnPlaceOrder      func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnGetOrder        func(ctx context.Context, orderID string) (*OrderResponse, error)
	OnCancelOrder     func(ctx context.Context, orderID string) (*OrderResponse, error)
	OnGetDriver       func(ctx context.Context, driverID string) (*DriverResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{
			HTTPStatus: 500,
			Errors:     []Error{{ID: "MOCK_ERROR", Message: "simulated API error"}},
		}
	}
	return nil
}

// CreateQuotation returns a mock quotation expiring in 5 minutes.
func (m *MockAPIClient) CreateQuotation(ctx context.Context, req *QuotationRequest) (*QuotationResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateQuotation != nil {
		return m.OnCreateQuotation(ctx, req)
	}

	return &QuotationResponse{
		QuotationID: "llm-q-" + uuid.New().String()[:8],
		ExpiresAt:   time.Now().Add(5 * time.Minute).Format(time.RFC3339),
		ServiceType: req.ServiceType,
		PriceBreakdown: PriceBreakdown{
			Base:     "12.00",
			Total:    "14.50",
			Currency: "SGD",
		},
		Stops: req.Stops,
	}, nil
}

// GetQuotation returns a mock quotation lookup.
func (m *MockAPIClient) GetQuotation(ctx context.Context, quotationID string) (*QuotationResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetQuotation != nil {
		return m.OnGetQuotation(ctx, quotationID)
	}

	return &QuotationResponse{
		QuotationID: quotationID,
		ExpiresAt:   time.Now().Add(5 * time.Minute).Format(time.RFC3339),
		ServiceType: "MOTORCYCLE",
		PriceBreakdown: PriceBreakdown{
			Base:     "12.00",
			Total:    "14.50",
			Currency: "SGD",
		},
	}, nil
}

// PlaceOrder books a mock order.
func (m *MockAPIClient) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnPlaceOrder != nil {
		return m.OnPlaceOrder(ctx, req)
	}

	return &OrderResponse{
		OrderID:     "llm-o-" + uuid.New().String()[:8],
		QuotationID: req.QuotationID,
		Status:      "ASSIGNING_DRIVER",
		PriceBreakdown: PriceBreakdown{
			Base:     "12.00",
			Total:    "14.50",
			Currency: "SGD",
		},
	}, nil
}

// GetOrder returns mock order details with a driver assigned.
func (m *MockAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetOrder != nil {
		return m.OnGetOrder(ctx, orderID)
	}

	return &OrderResponse{
		OrderID:  orderID,
		Status:   "ON_GOING",
		DriverID: "llm-d-42",
		PriceBreakdown: PriceBreakdown{
			Base:     "12.00",
			Total:    "14.50",
			Currency: "SGD",
		},
	}, nil
}

// CancelOrder cancels a mock order.
func (m *MockAPIClient) CancelOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelOrder != nil {
		return m.OnCancelOrder(ctx, orderID)
	}

	return &OrderResponse{
		OrderID: orderID,
		Status:  "CANCELED",
		PriceBreakdown: PriceBreakdown{
			Currency: "SGD",
		},
	}, nil
}

// GetDriver returns mock driver details.
func (m *MockAPIClient) GetDriver(ctx context.Context, driverID string) (*DriverResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetDriver != nil {
		return m.OnGetDriver(ctx, driverID)
	}

	return &DriverResponse{
		DriverID:    driverID,
		Name:        "Wei Ming",
		Phone:       "+6581234567",
		PlateNumber: "FBC1234T",
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
