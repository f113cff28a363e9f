package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/internal/docmap"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/internal/engine"
	"github.com/tournevent/courierhub/internal/server"
	"github.com/tournevent/courierhub/internal/store"
	"github.com/tournevent/courierhub/internal/webhook"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/tournevent/courierhub/pkg/courier/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const webhookSecret = "hub-secret"

type fixture struct {
	handler  http.Handler
	provider *mock.Provider
	store    *store.MemoryStore
}

func newFixture() *fixture {
	provider := mock.New("demo-provider")

	registry := courier.NewRegistry()
	registry.Register(provider.Courier())

	mappings := docmap.NewRegistry()
	mappings.Register(docmap.TransportJobMapping())

	st := store.NewMemoryStore()
	docs := document.NewMemoryStore()
	docs.Put("TransportJob", "TJ-1001", document.Fields{
		"pickupAddress": "1 Fullerton Rd",
		"pickupLat":     1.2862,
		"pickupLng":     103.8545,
		"dropoffs": []any{
			map[string]any{"address": "88 Market St", "lat": 1.2846, "lng": 103.8500},
		},
		"contactName":  "Ops Desk",
		"contactPhone": "+6591234567",
	})

	logger := otelzap.New(zap.NewNop())
	eng := engine.New(
		engine.Config{DefaultProvider: "demo-provider"},
		registry, mappings, st, docs, nil, nil, logger,
	)
	secrets := document.StaticSecrets{"demo-provider/webhook_secret": webhookSecret}
	dispatcher := webhook.NewDispatcher(registry, eng, secrets, nil, logger)

	srv := server.New(server.Config{Port: 8080}, eng, dispatcher, nil, logger)
	return &fixture{handler: srv.Handler(), provider: provider, store: st}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (f *fixture) createOrder(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/orders",
		`{"documentType": "TransportJob", "documentId": "TJ-1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	order, ok := decode(t, rec)["order"].(map[string]any)
	require.True(t, ok)
	id, _ := order["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestServer_Health(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_ListProviders(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/providers", "")

	require.Equal(t, http.StatusOK, rec.Code)
	providers, ok := decode(t, rec)["providers"].([]any)
	require.True(t, ok)
	require.Len(t, providers, 1)
	first, ok := providers[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demo-provider", first["code"])
}

func TestServer_GetQuotation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/quotations",
		`{"documentType": "TransportJob", "documentId": "TJ-1001"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quotation, ok := decode(t, rec)["quotation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demo-provider", quotation["providerCode"])
	assert.NotEmpty(t, quotation["id"])
}

func TestServer_GetQuotation_InvalidJSON(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/quotations", "not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invalid_argument", errObj["kind"])
}

func TestServer_GetQuotation_UnknownProvider(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/quotations",
		`{"documentType": "TransportJob", "documentId": "TJ-1001", "providerCode": "nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "provider_not_supported", errObj["kind"])
}

func TestServer_GetQuotation_UnknownDocumentType(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/quotations",
		`{"documentType": "Invoice", "documentId": "INV-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "unsupported_document_type", errObj["kind"])
}

func TestServer_CompareQuotations(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/quotations/compare",
		`{"documentType": "TransportJob", "documentId": "TJ-1001"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	quotations, ok := resp["quotations"].([]any)
	require.True(t, ok)
	assert.Len(t, quotations, 1)
	assert.Empty(t, resp["failures"])
}

func TestServer_CreateOrder(t *testing.T) {
	f := newFixture()

	id := f.createOrder(t)

	stored, err := f.store.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "demo-provider", stored.ProviderCode)
	assert.Equal(t, 1, f.provider.Calls("PlaceOrder"))
}

func TestServer_CreateOrder_NoAutoRequoteWithoutQuotation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/orders",
		`{"documentType": "TransportJob", "documentId": "TJ-1001", "autoRequote": false}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invalid_argument", errObj["kind"])
	assert.Equal(t, 0, f.provider.Calls("PlaceOrder"))
}

func TestServer_CreateOrder_QuotationNotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/orders",
		`{"documentType": "TransportJob", "documentId": "TJ-1001", "quotationId": "q-gone", "autoRequote": false}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "quotation_not_found", errObj["kind"])
}

func TestServer_GetOrderDetails(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	rec := f.do(t, http.MethodGet, "/v1/orders/"+id, "")

	require.Equal(t, http.StatusOK, rec.Code)
	order, ok := decode(t, rec)["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, order["id"])
}

func TestServer_GetOrderDetails_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/orders/no-such-order", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_not_found", errObj["kind"])
}

func TestServer_SyncAndCancelOrder(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	rec := f.do(t, http.MethodPost, "/v1/orders/"+id+"/sync", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/v1/orders/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancellation, ok := decode(t, rec)["cancellation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(courier.StatusCancelled), cancellation["status"])
}

func TestServer_GetDriverDetails_NoneAssigned(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	rec := f.do(t, http.MethodGet, "/v1/orders/"+id+"/driver", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "no_driver_assigned", errObj["kind"])
}

func TestServer_GetDriverDetails_AfterSync(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	rec := f.do(t, http.MethodPost, "/v1/orders/"+id+"/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/orders/"+id+"/driver", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	driver, ok := decode(t, rec)["driver"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, driver["driver_id"])
}

func TestServer_Webhook_ValidSignature(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	body := fmt.Sprintf(`{"event": "ORDER_STATUS_CHANGED", "order_id": %q}`, id)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/demo-provider", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(webhookSecret, []byte(body)))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["acknowledged"])

	stored, err := f.store.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, courier.StatusOnGoing, stored.Status)
	assert.WithinDuration(t, time.Now(), stored.UpdatedAt, time.Minute)
}

func TestServer_Webhook_BadSignature(t *testing.T) {
	f := newFixture()
	id := f.createOrder(t)

	body := fmt.Sprintf(`{"event": "ORDER_STATUS_CHANGED", "order_id": %q}`, id)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/demo-provider", strings.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	errObj, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invalid_signature", errObj["kind"])
}

func TestServer_Webhook_UnknownProvider(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/v1/webhooks/nope", `{"event": "x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
