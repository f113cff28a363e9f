// Package document is the boundary to the business-document store. The
// documents being quoted (transport jobs, shipments) live in another system;
// this package only reads their fields and writes back the order link.
package document

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned when a document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Fields is an untyped view of a business document.
type Fields map[string]any

// Store exposes the document system's read/write boundary.
type Store interface {
	// GetDocument fetches a document's fields.
	GetDocument(ctx context.Context, docType, docID string) (Fields, error)

	// SetField writes one field. Used only for the forward order link.
	SetField(ctx context.Context, docType, docID, field string, value any) error
}

// SecretResolver resolves per-provider shared secrets, webhook signing keys
// among them. Missing secrets are reported, never defaulted.
type SecretResolver interface {
	GetSecret(providerCode, secretName string) (string, bool)
}

// StaticSecrets is a SecretResolver backed by a fixed map, keyed by
// "providerCode/secretName".
type StaticSecrets map[string]string

func (s StaticSecrets) GetSecret(providerCode, secretName string) (string, bool) {
	v, ok := s[providerCode+"/"+secretName]
	return v, ok
}
