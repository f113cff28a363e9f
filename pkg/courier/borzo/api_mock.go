package borzo

import (
	"context"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculateOrder func(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error)
	OnCreateOrder    func(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error)
	OnGetOrder       func(ctx context.Context, orderID string) (*OrderEnvelope, error)
	OnCancelOrder    func(ctx context.Context, orderID string) (*OrderEnvelope, error)
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

// CalculateOrder returns a priced, unbooked order preview.
func (m *MockAPIClient) CalculateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCalculateOrder != nil {
		return m.OnCalculateOrder(ctx, req)
	}

	return &OrderEnvelope{
		IsSuccessful: true,
		Order: &Order{
			Status:        "new",
			Matter:        req.Matter,
			PaymentAmount: "350.00",
			Points:        req.Points,
		},
	}, nil
}

// CreateOrder books a mock order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderEnvelope, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderEnvelope{
		IsSuccessful: true,
		Order: &Order{
			OrderID:       "981724",
			Status:        "available",
			Matter:        req.Matter,
			PaymentAmount: "350.00",
			Points:        req.Points,
		},
	}, nil
}

// GetOrder returns mock order details with a courier assigned.
func (m *MockAPIClient) GetOrder(ctx context.Context, orderID string) (*OrderEnvelope, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetOrder != nil {
		return m.OnGetOrder(ctx, orderID)
	}

	return &OrderEnvelope{
		IsSuccessful: true,
		Orders: []Order{{
			OrderID:       "981724",
			Status:        "active",
			PaymentAmount: "350.00",
			Courier: &Courier{
				CourierID: "5512",
				Name:      "Ramon Cruz",
				Phone:     "+639171234567",
				CarPlate:  "NCR 4821",
				CarModel:  "Honda Click",
			},
		}},
	}, nil
}

// CancelOrder cancels a mock order.
func (m *MockAPIClient) CancelOrder(ctx context.Context, orderID string) (*OrderEnvelope, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelOrder != nil {
		return m.OnCancelOrder(ctx, orderID)
	}

	return &OrderEnvelope{
		IsSuccessful: true,
		Order: &Order{
			OrderID:       "981724",
			Status:        "canceled",
			PaymentAmount: "0.00",
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
