package courier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/courierhub/pkg/courier"
)

func TestProviderError_Error(t *testing.T) {
	err := courier.NewProviderError("borzo", "BAD_ADDRESS", "address could not be geocoded")
	assert.Equal(t, "borzo error (BAD_ADDRESS): address could not be geocoded", err.Error())
}

func TestProviderError_ErrorWithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := courier.NewProviderError("borzo", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := courier.NewProviderError("borzo", "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestProviderError_Is(t *testing.T) {
	err1 := courier.NewProviderError("borzo", "BAD_ADDRESS", "address could not be geocoded")
	err2 := courier.NewProviderError("lalamove", "BAD_ADDRESS", "different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestProviderError_IsNot(t *testing.T) {
	err1 := courier.NewProviderError("borzo", "BAD_ADDRESS", "address could not be geocoded")
	err2 := courier.NewProviderError("borzo", "OTHER_CODE", "different error")

	assert.False(t, errors.Is(err1, err2))
}

func TestProviderError_WithStatusCode(t *testing.T) {
	err := courier.NewProviderError("borzo", "AUTH_ERROR", "unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestProviderError_WithTimeout(t *testing.T) {
	err := courier.NewProviderError("borzo", "TIMEOUT", "deadline exceeded").WithTimeout()
	assert.True(t, err.Timeout)
}

func TestProviderError_AuthSentinel(t *testing.T) {
	err := courier.NewProviderError("borzo", "AUTH_ERROR", "unauthorized").
		WithStatusCode(401).
		WithCause(courier.ErrAuthFailed)
	assert.True(t, errors.Is(err, courier.ErrAuthFailed))
}

func TestIsTimeout(t *testing.T) {
	timedOut := courier.NewProviderError("borzo", "TIMEOUT", "deadline exceeded").WithTimeout()
	assert.True(t, courier.IsTimeout(timedOut))

	plain := courier.NewProviderError("borzo", "API_ERROR", "bad gateway")
	assert.False(t, courier.IsTimeout(plain))

	assert.False(t, courier.IsTimeout(errors.New("something else")))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrProviderNotSupported", courier.ErrProviderNotSupported},
		{"ErrAuthFailed", courier.ErrAuthFailed},
		{"ErrQuotationExpired", courier.ErrQuotationExpired},
		{"ErrQuotationNotFound", courier.ErrQuotationNotFound},
		{"ErrOrderNotFound", courier.ErrOrderNotFound},
		{"ErrUnsupportedDocumentType", courier.ErrUnsupportedDocumentType},
		{"ErrMissingRequiredField", courier.ErrMissingRequiredField},
		{"ErrNotSupported", courier.ErrNotSupported},
		{"ErrInvalidArgument", courier.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
