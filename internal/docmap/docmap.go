// Package docmap translates business documents into provider-agnostic
// quotation requests. Mappings are registered per document type; adding a
// document type means adding one registry entry.
package docmap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/pkg/courier"
)

// Mapping describes how one document type becomes a quotation request and
// where the forward order link is written back.
type Mapping struct {
	// DocumentType is the registry key, e.g. "TransportJob".
	DocumentType string

	// OrderLinkField is the document field that receives the order id.
	OrderLinkField string

	// BuildRequest converts document fields into a quotation request.
	// Fails with ErrMissingRequiredField when the document lacks data a
	// provider cannot do without.
	BuildRequest func(fields document.Fields) (*courier.QuotationRequest, error)
}

// Registry is the document-type mapping table. Registration happens at
// startup; lookups dominate afterwards.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

// NewRegistry creates an empty mapping registry.
func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]Mapping)}
}

// Register adds a mapping, replacing any previous entry for the type.
func (r *Registry) Register(m Mapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.DocumentType] = m
}

// Resolve returns the mapping for a document type. Unknown types fail with
// ErrUnsupportedDocumentType enumerating the registered types.
func (r *Registry) Resolve(docType string) (Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[docType]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: %q (registered: %s)",
			courier.ErrUnsupportedDocumentType, docType, strings.Join(r.typesLocked(), ", "))
	}
	return m, nil
}

// Types returns the registered document types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typesLocked()
}

func (r *Registry) typesLocked() []string {
	types := make([]string, 0, len(r.mappings))
	for t := range r.mappings {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
