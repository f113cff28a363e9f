// Package store persists quotations and orders for audit and lifecycle
// tracking.
package store

import (
	"context"
	"errors"

	"github.com/tournevent/courierhub/pkg/courier"
)

// ErrNotFound is returned when a quotation or order does not exist.
var ErrNotFound = errors.New("not found")

// QuotationStore persists quotations. Quotations are kept after they are
// consumed or superseded.
type QuotationStore interface {
	// SaveQuotation inserts or overwrites a quotation by id.
	SaveQuotation(ctx context.Context, q *courier.Quotation) error

	// GetQuotation fetches a quotation by id.
	GetQuotation(ctx context.Context, id string) (*courier.Quotation, error)

	// LatestQuotation fetches the most recently issued quotation for a
	// document and provider, valid or not.
	LatestQuotation(ctx context.Context, docType, docID, providerCode string) (*courier.Quotation, error)

	// InvalidateQuotation clears the valid flag. Missing ids are not an error.
	InvalidateQuotation(ctx context.Context, id string) error
}

// OrderStore persists delivery orders.
type OrderStore interface {
	// SaveOrder inserts or overwrites an order by id.
	SaveOrder(ctx context.Context, o *courier.Order) error

	// GetOrder fetches an order by id.
	GetOrder(ctx context.Context, id string) (*courier.Order, error)

	// UpdateOrder overwrites an existing order. Fails with ErrNotFound when
	// the order was never saved.
	UpdateOrder(ctx context.Context, o *courier.Order) error

	// RekeyOrder moves an order from oldID to newID, keeping every other
	// field. Fails with ErrNotFound when oldID does not exist.
	RekeyOrder(ctx context.Context, oldID, newID string) error

	// OrdersByDocument lists orders created for a document, newest first.
	OrdersByDocument(ctx context.Context, docType, docID string) ([]*courier.Order, error)
}

// Store combines both stores behind one backend.
type Store interface {
	QuotationStore
	OrderStore

	// Close releases backend resources.
	Close() error
}
