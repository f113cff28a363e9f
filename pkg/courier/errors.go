package courier

import (
	"errors"
	"fmt"
)

// ProviderError represents an upstream failure from a delivery provider API.
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Body       string // raw response snippet, kept for diagnostics
	Timeout    bool
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Provider, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds the upstream HTTP status code.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// WithBody attaches the raw response body.
func (e *ProviderError) WithBody(body string) *ProviderError {
	e.Body = body
	return e
}

// WithTimeout marks the error as a transport timeout.
func (e *ProviderError) WithTimeout() *ProviderError {
	e.Timeout = true
	return e
}

// Sentinel errors for the taxonomy callers branch on.
var (
	// ErrProviderNotSupported indicates an unknown provider code.
	ErrProviderNotSupported = errors.New("provider not supported")

	// ErrAuthFailed indicates bad or expired provider credentials.
	// Surfaced for operator remediation, never retried automatically.
	ErrAuthFailed = errors.New("provider authentication failed")

	// ErrQuotationExpired indicates the quotation can no longer back an
	// order placement. Recoverable: triggers one bounded re-quote.
	ErrQuotationExpired = errors.New("quotation expired")

	// ErrQuotationNotFound indicates the quotation id is unknown.
	ErrQuotationNotFound = errors.New("quotation not found")

	// ErrOrderNotFound indicates the order id is unknown.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUnsupportedDocumentType indicates no mapping exists for the
	// business document type.
	ErrUnsupportedDocumentType = errors.New("unsupported document type")

	// ErrMissingRequiredField indicates the business document lacks a field
	// the mapping requires, e.g. geocoordinates.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrNotSupported indicates the chosen provider's API does not offer
	// the requested operation. Always fatal, never substituted.
	ErrNotSupported = errors.New("operation not supported by provider")

	// ErrInvalidArgument indicates a caller-correctable bad argument.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsTimeout reports whether the error carries a transport timeout marker.
func IsTimeout(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Timeout
	}
	return false
}
