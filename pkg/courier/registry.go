package courier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry maps provider codes to their contract implementations. It is
// populated once at startup and read-only thereafter; the mutex exists so a
// hot-reload path stays safe if one is ever added.
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry, keyed by its descriptor code.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Descriptor.Code] = p
}

// Resolve returns the provider for a code. An unknown code fails with
// ErrProviderNotSupported, enumerating the registered codes.
func (r *Registry) Resolve(code string) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[code]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}
	return Provider{}, fmt.Errorf("%w: %q (registered: %s)",
		ErrProviderNotSupported, code, strings.Join(r.Codes(), ", "))
}

// All returns all registered providers.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	return result
}

// Codes returns the registered provider codes, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Descriptors returns the descriptors of all registered providers, sorted by
// code.
func (r *Registry) Descriptors() []Descriptor {
	all := r.All()
	descs := make([]Descriptor, 0, len(all))
	for _, p := range all {
		descs = append(descs, p.Descriptor)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Code < descs[j].Code })
	return descs
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// QuoteAll issues the quotation request against every registered provider in
// parallel and normalizes the responses. Errors from individual providers are
// reported alongside the successful quotations; they don't fail the request.
func (r *Registry) QuoteAll(ctx context.Context, req *QuotationRequest) ([]*Quotation, []error) {
	providers := r.All()
	if len(providers) == 0 {
		return nil, []error{ErrProviderNotSupported}
	}

	results := make([]*Quotation, 0, len(providers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, p := range providers {
		p := p
		g.Go(func() error {
			raw, err := p.Client.GetQuotation(ctx, req)
			if err == nil {
				var q *Quotation
				q, err = p.Mapper.QuotationFromResponse(raw)
				if err == nil {
					q.ProviderCode = p.Descriptor.Code
					mu.Lock()
					results = append(results, q)
					mu.Unlock()
					return nil
				}
			}
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", p.Descriptor.Code, err))
			mu.Unlock()
			return nil // keep quoting the remaining providers
		})
	}

	g.Wait()
	return results, errs
}
