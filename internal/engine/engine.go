// Package engine orchestrates quotation and order lifecycles across the
// registered delivery providers.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/courierhub/internal/docmap"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/internal/events"
	"github.com/tournevent/courierhub/internal/store"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ErrNoDriverAssigned is returned when driver details are requested before a
// provider has assigned one.
var ErrNoDriverAssigned = errors.New("no driver assigned yet")

// Config holds engine configuration, injected at construction.
type Config struct {
	// DefaultProvider is used when a caller does not name one.
	DefaultProvider string
}

// Engine implements the public delivery operations. All collaborator access
// goes through injected interfaces; the engine holds no ambient state.
type Engine struct {
	cfg       Config
	registry  *courier.Registry
	mappings  *docmap.Registry
	store     store.Store
	documents document.Store
	publisher events.Publisher
	metrics   *telemetry.Metrics
	logger    *otelzap.Logger
	now       func() time.Time

	// orderLocks serializes per-order-id mutations: status-sync merges and
	// order_replaced identity migrations.
	orderLocks *keyedMutex
}

// New creates an engine. publisher may be nil; metrics may be nil.
func New(
	cfg Config,
	registry *courier.Registry,
	mappings *docmap.Registry,
	st store.Store,
	documents document.Store,
	publisher events.Publisher,
	metrics *telemetry.Metrics,
	logger *otelzap.Logger,
) *Engine {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		mappings:   mappings,
		store:      st,
		documents:  documents,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		orderLocks: newKeyedMutex(),
	}
}

// GetQuotation obtains a priced quotation for a business document from one
// provider (explicit code, or the configured default) and persists it.
func (e *Engine) GetQuotation(ctx context.Context, docType, docID, providerCode string) (*courier.Quotation, error) {
	code := providerCode
	if code == "" {
		code = e.cfg.DefaultProvider
	}

	prov, err := e.registry.Resolve(code)
	if err != nil {
		return nil, err
	}
	req, _, err := e.buildRequest(ctx, docType, docID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	raw, err := prov.Client.GetQuotation(ctx, req)
	e.observe("get_quotation", code, start, err)
	if err != nil {
		return nil, err
	}

	q, err := prov.Mapper.QuotationFromResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s quotation: %w", code, err)
	}
	q.ProviderCode = code
	q.SourceDocumentType = docType
	q.SourceDocumentID = docID
	if q.Price.Currency == "" {
		q.Price.Currency = prov.DefaultCurrency
	}
	if q.IssuedAt.IsZero() {
		q.IssuedAt = e.now()
	}

	e.bestEffort(ctx, "persist quotation", e.store.SaveQuotation(ctx, q),
		zap.String("quotation_id", q.ID))

	return q, nil
}

// CompareQuotations prices the document against every registered provider in
// parallel. Partial failures are reported per provider; they never fail the
// call. The result informs, it does not select.
func (e *Engine) CompareQuotations(ctx context.Context, docType, docID string) ([]*courier.Quotation, []error) {
	req, _, err := e.buildRequest(ctx, docType, docID)
	if err != nil {
		return nil, []error{err}
	}

	quotations, errs := e.registry.QuoteAll(ctx, req)
	for _, q := range quotations {
		q.SourceDocumentType = docType
		q.SourceDocumentID = docID
		if q.Price.Currency == "" {
			if prov, err := e.registry.Resolve(q.ProviderCode); err == nil {
				q.Price.Currency = prov.DefaultCurrency
			}
		}
		if q.IssuedAt.IsZero() {
			q.IssuedAt = e.now()
		}
		e.bestEffort(ctx, "persist quotation", e.store.SaveQuotation(ctx, q),
			zap.String("quotation_id", q.ID))
	}
	return quotations, errs
}

// CreateOrder books a delivery for a document. With no quotation id and
// autoRequote enabled a fresh quotation is obtained first. A stale or expired
// quotation is transparently replaced at most once per call, whether the
// expiry is detected up front or only when the provider rejects the
// placement; a second expiry surfaces as ErrQuotationExpired.
func (e *Engine) CreateOrder(ctx context.Context, docType, docID, quotationID string, autoRequote bool) (*courier.Order, error) {
	var quote *courier.Quotation
	requoted := false

	switch {
	case quotationID == "" && !autoRequote:
		return nil, fmt.Errorf("%w: quotationId is required when autoRequote is disabled", courier.ErrInvalidArgument)
	case quotationID == "":
		fresh, err := e.GetQuotation(ctx, docType, docID, "")
		if err != nil {
			return nil, err
		}
		quote = fresh
	default:
		cached, err := e.store.GetQuotation(ctx, quotationID)
		switch {
		case err == nil:
			quote = cached
		case errors.Is(err, store.ErrNotFound):
			if !autoRequote {
				return nil, fmt.Errorf("%w: %s", courier.ErrQuotationNotFound, quotationID)
			}
		default:
			return nil, fmt.Errorf("looking up quotation %s: %w", quotationID, err)
		}
	}

	if !quote.IsValid(e.now()) {
		if !autoRequote {
			return nil, fmt.Errorf("%w: %s", courier.ErrQuotationExpired, quotationID)
		}
		fresh, err := e.requote(ctx, docType, docID, quote)
		if err != nil {
			return nil, err
		}
		quote = fresh
		requoted = true
	}

	prov, err := e.registry.Resolve(quote.ProviderCode)
	if err != nil {
		return nil, err
	}
	req, mapping, err := e.buildRequest(ctx, docType, docID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	raw, err := prov.Client.PlaceOrder(ctx, quote.ID, req)
	if err != nil && errors.Is(err, courier.ErrQuotationExpired) && autoRequote && !requoted {
		// expiry detected only at placement time: one more re-quote cycle
		var fresh *courier.Quotation
		fresh, err = e.requote(ctx, docType, docID, quote)
		if err != nil {
			return nil, err
		}
		quote = fresh
		raw, err = prov.Client.PlaceOrder(ctx, quote.ID, req)
	}
	e.observe("create_order", quote.ProviderCode, start, err)
	if err != nil {
		return nil, err
	}

	order, err := prov.Mapper.OrderFromResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s order: %w", quote.ProviderCode, err)
	}
	now := e.now()
	order.ProviderCode = quote.ProviderCode
	order.QuotationID = quote.ID
	order.SourceDocumentType = docType
	order.SourceDocumentID = docID
	if order.Price.Currency == "" {
		order.Price.Currency = prov.DefaultCurrency
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	// The order exists upstream from here on. Bookkeeping failures are
	// logged, never allowed to fail the call.
	e.bestEffort(ctx, "invalidate consumed quotation", e.store.InvalidateQuotation(ctx, quote.ID),
		zap.String("quotation_id", quote.ID))
	e.bestEffort(ctx, "persist order", e.store.SaveOrder(ctx, order),
		zap.String("order_id", order.ID))
	e.bestEffort(ctx, "write document order link",
		e.documents.SetField(ctx, docType, docID, mapping.OrderLinkField, order.ID),
		zap.String("order_id", order.ID),
		zap.String("document", docType+"/"+docID))

	return order, nil
}

// GetOrderDetails fetches the order's current upstream state, normalized.
// It reads, it does not merge; SyncOrderStatus owns the persisted record.
func (e *Engine) GetOrderDetails(ctx context.Context, orderID string) (*courier.Order, error) {
	stored, prov, err := e.resolveOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	raw, err := prov.Client.GetOrderDetails(ctx, orderID)
	e.observe("get_order_details", stored.ProviderCode, start, err)
	if err != nil {
		return nil, err
	}

	fetched, err := prov.Mapper.OrderFromResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s order: %w", stored.ProviderCode, err)
	}
	e.fillIdentity(fetched, stored, prov)
	return fetched, nil
}

// SyncOrderStatus fetches the order's upstream state and merges it into the
// persisted record: status, price, driver, and vehicle only. Identifying
// fields never change here. The merge is idempotent and serialized per order
// id, making it the shared landing point for polling and webhooks.
func (e *Engine) SyncOrderStatus(ctx context.Context, orderID string) (*courier.Order, error) {
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()

	stored, prov, err := e.resolveOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	raw, err := prov.Client.GetOrderDetails(ctx, orderID)
	e.observe("sync_order_status", stored.ProviderCode, start, err)
	if err != nil {
		return nil, err
	}

	fetched, err := prov.Mapper.OrderFromResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s order: %w", stored.ProviderCode, err)
	}

	oldStatus := stored.Status
	stored.Status = fetched.Status
	if fetched.Price.Amount != 0 {
		stored.Price.Amount = fetched.Price.Amount
	}
	if fetched.Price.Currency != "" {
		stored.Price.Currency = fetched.Price.Currency
	}
	if fetched.Driver != nil {
		stored.Driver = fetched.Driver
	}
	if fetched.Vehicle != nil {
		stored.Vehicle = fetched.Vehicle
	}
	stored.Raw = fetched.Raw
	stored.UpdatedAt = e.now()

	if err := e.store.UpdateOrder(ctx, stored); err != nil {
		return nil, fmt.Errorf("persisting sync of order %s: %w", orderID, err)
	}

	if oldStatus != stored.Status {
		e.publisher.PublishStatusChange(ctx, events.StatusEvent{
			OrderID:      stored.ID,
			ProviderCode: stored.ProviderCode,
			OldStatus:    oldStatus,
			NewStatus:    stored.Status,
			OccurredAt:   stored.UpdatedAt,
		})
	}

	return stored, nil
}

// CancelOrder cancels the order upstream and immediately syncs the persisted
// record so it reflects the cancellation without waiting for the next poll.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (*courier.CancellationResult, error) {
	stored, prov, err := e.resolveOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	start := e.now()
	raw, err := prov.Client.CancelOrder(ctx, orderID)
	e.observe("cancel_order", stored.ProviderCode, start, err)
	if err != nil {
		return nil, err
	}

	result := &courier.CancellationResult{
		OrderID: orderID,
		Status:  courier.StatusCancelled,
	}
	if cancelled, err := prov.Mapper.OrderFromResponse(raw); err == nil {
		result.Status = cancelled.Status
	}

	if synced, err := e.SyncOrderStatus(ctx, orderID); err == nil {
		// A lagging read right after the cancel must not downgrade the
		// terminal status the cancel response already reported.
		if result.Status != courier.StatusCancelled || synced.Status == courier.StatusCancelled {
			result.Status = synced.Status
		}
	} else {
		e.bestEffort(ctx, "sync after cancel", err, zap.String("order_id", orderID))
	}

	return result, nil
}

// GetDriverDetails fetches the assigned driver's details from the provider.
// Providers without a standalone driver endpoint fail with ErrNotSupported.
func (e *Engine) GetDriverDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	stored, prov, err := e.resolveOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if stored.Driver == nil || stored.Driver.ID == "" {
		return nil, fmt.Errorf("%w: order %s", ErrNoDriverAssigned, orderID)
	}

	start := e.now()
	raw, err := prov.Client.GetDriverDetails(ctx, stored.Driver.ID)
	e.observe("get_driver_details", stored.ProviderCode, start, err)
	return raw, err
}

// ReplaceOrderID migrates an order to a new provider-issued id. The old id
// stops resolving; callers holding it get ErrOrderNotFound afterwards. The
// migration is serialized against syncs on both ids.
func (e *Engine) ReplaceOrderID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	first, second := oldID, newID
	if second < first {
		first, second = second, first
	}
	unlockFirst := e.orderLocks.Lock(first)
	defer unlockFirst()
	unlockSecond := e.orderLocks.Lock(second)
	defer unlockSecond()

	if err := e.store.RekeyOrder(ctx, oldID, newID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", courier.ErrOrderNotFound, oldID)
		}
		return fmt.Errorf("migrating order %s to %s: %w", oldID, newID, err)
	}

	e.logger.Info("Order id migrated",
		zap.String("old_order_id", oldID),
		zap.String("new_order_id", newID),
	)
	return nil
}

// FindOrder returns the persisted order record.
func (e *Engine) FindOrder(ctx context.Context, orderID string) (*courier.Order, error) {
	o, err := e.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", courier.ErrOrderNotFound, orderID)
	}
	return o, err
}

// ListAvailableProviders returns the registered provider descriptors.
func (e *Engine) ListAvailableProviders() []courier.Descriptor {
	return e.registry.Descriptors()
}

// requote supersedes a stale quotation with a fresh one from the same
// provider (or the default when there is no prior quotation).
func (e *Engine) requote(ctx context.Context, docType, docID string, stale *courier.Quotation) (*courier.Quotation, error) {
	code := ""
	if stale != nil {
		code = stale.ProviderCode
		e.bestEffort(ctx, "invalidate superseded quotation",
			e.store.InvalidateQuotation(ctx, stale.ID),
			zap.String("quotation_id", stale.ID))
	}

	fresh, err := e.GetQuotation(ctx, docType, docID, code)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRequote(fresh.ProviderCode)
	e.logger.Info("Quotation superseded",
		zap.String("document", docType+"/"+docID),
		zap.String("quotation_id", fresh.ID),
	)
	return fresh, nil
}

// buildRequest resolves the document mapping and constructs the
// provider-agnostic quotation request from the document's current fields.
func (e *Engine) buildRequest(ctx context.Context, docType, docID string) (*courier.QuotationRequest, docmap.Mapping, error) {
	mapping, err := e.mappings.Resolve(docType)
	if err != nil {
		return nil, docmap.Mapping{}, err
	}
	fields, err := e.documents.GetDocument(ctx, docType, docID)
	if err != nil {
		return nil, docmap.Mapping{}, fmt.Errorf("loading document %s/%s: %w", docType, docID, err)
	}
	req, err := mapping.BuildRequest(fields)
	if err != nil {
		return nil, docmap.Mapping{}, err
	}
	return req, mapping, nil
}

// resolveOrder loads the persisted order and the provider it belongs to.
func (e *Engine) resolveOrder(ctx context.Context, orderID string) (*courier.Order, courier.Provider, error) {
	stored, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, courier.Provider{}, fmt.Errorf("%w: %s", courier.ErrOrderNotFound, orderID)
		}
		return nil, courier.Provider{}, fmt.Errorf("loading order %s: %w", orderID, err)
	}
	prov, err := e.registry.Resolve(stored.ProviderCode)
	if err != nil {
		return nil, courier.Provider{}, err
	}
	return stored, prov, nil
}

// fillIdentity copies the immutable identifying fields from the persisted
// record onto a freshly normalized snapshot.
func (e *Engine) fillIdentity(fetched, stored *courier.Order, prov courier.Provider) {
	fetched.ID = stored.ID
	fetched.ProviderCode = stored.ProviderCode
	fetched.QuotationID = stored.QuotationID
	fetched.SourceDocumentType = stored.SourceDocumentType
	fetched.SourceDocumentID = stored.SourceDocumentID
	fetched.CreatedAt = stored.CreatedAt
	if fetched.Price.Currency == "" {
		fetched.Price.Currency = prov.DefaultCurrency
	}
}

// bestEffort is the sink for side effects that must not fail the primary
// operation: the provider call already succeeded, so a bookkeeping failure
// is logged at Warn and swallowed.
func (e *Engine) bestEffort(ctx context.Context, step string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	fields = append(fields, zap.String("step", step), zap.Error(err))
	e.logger.Ctx(ctx).Warn("Best-effort step failed", fields...)
}

// observe records request metrics for one provider call.
func (e *Engine) observe(operation, provider string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		e.metrics.RecordError(provider, errorType(err))
	}
	e.metrics.RecordRequest(operation, provider, status, e.now().Sub(start).Seconds())
}

func errorType(err error) string {
	switch {
	case errors.Is(err, courier.ErrAuthFailed):
		return "auth"
	case errors.Is(err, courier.ErrQuotationExpired):
		return "quotation_expired"
	case errors.Is(err, courier.ErrNotSupported):
		return "not_supported"
	case courier.IsTimeout(err):
		return "timeout"
	default:
		return "api"
	}
}
