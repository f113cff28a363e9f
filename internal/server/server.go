// Package server exposes the delivery operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/courierhub/internal/document"
	"github.com/tournevent/courierhub/internal/engine"
	"github.com/tournevent/courierhub/internal/telemetry"
	"github.com/tournevent/courierhub/internal/webhook"
	"github.com/tournevent/courierhub/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the courier hub service.
type Server struct {
	port       int
	engine     *engine.Engine
	dispatcher *webhook.Dispatcher
	metrics    *telemetry.Metrics
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, eng *engine.Engine, dispatcher *webhook.Dispatcher, metrics *telemetry.Metrics, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		engine:     eng,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", s.handleListProviders)

		r.Post("/quotations", s.handleGetQuotation)
		r.Post("/quotations/compare", s.handleCompareQuotations)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{orderID}", s.handleGetOrderDetails)
		r.Post("/orders/{orderID}/cancel", s.handleCancelOrder)
		r.Post("/orders/{orderID}/sync", s.handleSyncOrderStatus)
		r.Get("/orders/{orderID}/driver", s.handleGetDriverDetails)

		r.Post("/webhooks/{provider}", s.handleWebhook)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.engine.ListAvailableProviders(),
	})
}

type quotationRequest struct {
	DocumentType string `json:"documentType"`
	DocumentID   string `json:"documentId"`
	ProviderCode string `json:"providerCode,omitempty"`
}

func (s *Server) handleGetQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	q, err := s.engine.GetQuotation(r.Context(), req.DocumentType, req.DocumentID, req.ProviderCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"quotation": q})
}

func (s *Server) handleCompareQuotations(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	quotations, errs := s.engine.CompareQuotations(r.Context(), req.DocumentType, req.DocumentID)
	if len(quotations) == 0 && len(errs) == 1 {
		s.writeError(w, r, errs[0])
		return
	}

	failures := make([]string, 0, len(errs))
	for _, err := range errs {
		failures = append(failures, err.Error())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"quotations": quotations,
		"failures":   failures,
	})
}

type createOrderRequest struct {
	DocumentType string `json:"documentType"`
	DocumentID   string `json:"documentId"`
	QuotationID  string `json:"quotationId,omitempty"`
	AutoRequote  *bool  `json:"autoRequote,omitempty"` // defaults to true
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	autoRequote := true
	if req.AutoRequote != nil {
		autoRequote = *req.AutoRequote
	}

	order, err := s.engine.CreateOrder(r.Context(), req.DocumentType, req.DocumentID, req.QuotationID, autoRequote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (s *Server) handleGetOrderDetails(w http.ResponseWriter, r *http.Request) {
	order, err := s.engine.GetOrderDetails(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (s *Server) handleSyncOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, err := s.engine.SyncOrderStatus(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.CancelOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cancellation": result})
}

func (s *Server) handleGetDriverDetails(w http.ResponseWriter, r *http.Request) {
	raw, err := s.engine.GetDriverDetails(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"driver": json.RawMessage(raw)})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	providerCode := chi.URLParam(r, "provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: reading body", courier.ErrInvalidArgument))
		return
	}

	err = s.dispatcher.Handle(r.Context(), providerCode, body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

// errorResponse is the uniform failure shape: a named category callers can
// branch on, plus a human-readable message.
type errorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON body", courier.ErrInvalidArgument))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= 500 {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	var resp errorResponse
	resp.Error.Kind = kind
	resp.Error.Message = err.Error()
	s.writeJSON(w, status, resp)
}

// classify maps the error taxonomy onto HTTP statuses and stable kind tags.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, courier.ErrProviderNotSupported):
		return http.StatusBadRequest, "provider_not_supported"
	case errors.Is(err, courier.ErrUnsupportedDocumentType):
		return http.StatusBadRequest, "unsupported_document_type"
	case errors.Is(err, courier.ErrMissingRequiredField):
		return http.StatusBadRequest, "missing_required_field"
	case errors.Is(err, courier.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, courier.ErrQuotationExpired):
		return http.StatusConflict, "quotation_expired"
	case errors.Is(err, courier.ErrQuotationNotFound):
		return http.StatusNotFound, "quotation_not_found"
	case errors.Is(err, courier.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, engine.ErrNoDriverAssigned):
		return http.StatusNotFound, "no_driver_assigned"
	case errors.Is(err, document.ErrDocumentNotFound):
		return http.StatusNotFound, "document_not_found"
	case errors.Is(err, courier.ErrNotSupported):
		return http.StatusNotImplemented, "not_supported"
	case errors.Is(err, courier.ErrAuthFailed):
		return http.StatusBadGateway, "provider_auth_failed"
	default:
		var provErr *courier.ProviderError
		if errors.As(err, &provErr) {
			return http.StatusBadGateway, "provider_api_error"
		}
		return http.StatusInternalServerError, "internal"
	}
}
