package pandago

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnEstimateFee func(ctx context.Context, req *OrderRequest) (*FeeEstimate, error)
	OnCreateOrder func(ctx context.Context, req *OrderRequest) (*Order, error)
	OnGetOrder    func(ctx context.Context, orderID string) (*Order, error)
	OnCancelOrder func(ctx context.Context, orderID string) (*Order, error)
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
			Code:       "MOCK_ERROR",
			Message:    "simulated API error",
		}
	}
	return nil
}

// EstimateFee returns a mock fee estimate.
func (m *MockAPIClient) EstimateFee(ctx context.Context, req *OrderRequest) (*FeeEstimate, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnEstimateFee != nil {
		return m.OnEstimateFee(ctx, req)
	}

	return &FeeEstimate{
		ClientOrderID:        req.ClientOrderID,
		EstimatedDeliveryFee: 9.80,
	}, nil
}

// CreateOrder books a mock order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &Order{
		OrderID:       "pdg-" + uuid.New().String()[:8],
		ClientOrderID: req.ClientOrderID,
		Status:        "RECEIVED",
		DeliveryFee:   9.80,
		CreatedAt:     time.Now().Unix(),
	}, nil
}

// GetOrder returns mock order details with a driver assigned.
func (m *MockAPIClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetOrder != nil {
		return m.OnGetOrder(ctx, orderID)
	}

	return &Order{
		OrderID:     orderID,
		Status:      "PICKED_UP",
		DeliveryFee: 9.80,
		Driver: &Driver{
			ID:          "pdg-d-17",
			Name:        "Siti Rahman",
			PhoneNumber: "+6598765432",
		},
		UpdatedAt: time.Now().Unix(),
	}, nil
}

// CancelOrder cancels a mock order.
func (m *MockAPIClient) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelOrder != nil {
		return m.OnCancelOrder(ctx, orderID)
	}

	return &Order{
		OrderID:   orderID,
		Status:    "CANCELLED",
		UpdatedAt: time.Now().Unix(),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
