package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassifierClassifyHTTPError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		name       string
		statusCode int
		wantType   ErrorType
	}{
		{"401 is authentication", 401, ErrorTypeAuthentication},
		{"403 is authentication", 403, ErrorTypeAuthentication},
		{"429 is rate limit", 429, ErrorTypeRateLimit},
		{"400 is bad request", 400, ErrorTypeBadRequest},
		{"404 is not found", 404, ErrorTypeNotFound},
		{"500 is server error", 500, ErrorTypeServerError},
		{"502 is server error", 502, ErrorTypeServerError},
		{"503 is server error", 503, ErrorTypeServerError},
		{"504 is server error", 504, ErrorTypeServerError},
		{"other 4xx is bad request", 418, ErrorTypeBadRequest},
		{"other 5xx is server error", 599, ErrorTypeServerError},
		{"non-error status is unknown", 302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := classifier.ClassifyHTTPError(tt.statusCode, "boom", errors.New("wrapped"))
			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, tt.statusCode, perr.StatusCode)
			assert.Equal(t, "openai", perr.Provider)
		})
	}
}

func TestErrorClassifierClassifyContextError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "anthropic"}

	t.Run("deadline expiry is a timeout", func(t *testing.T) {
		perr := classifier.ClassifyContextError(context.DeadlineExceeded)
		assert.Equal(t, ErrorTypeTimeout, perr.Type)
		assert.True(t, perr.IsRetryable())
		assert.ErrorIs(t, perr, context.DeadlineExceeded)
	})

	t.Run("cancellation is a network error", func(t *testing.T) {
		perr := classifier.ClassifyContextError(context.Canceled)
		assert.Equal(t, ErrorTypeNetwork, perr.Type)
		assert.ErrorIs(t, perr, context.Canceled)
	})

	t.Run("anything else is unknown", func(t *testing.T) {
		perr := classifier.ClassifyContextError(errors.New("weird"))
		assert.Equal(t, ErrorTypeUnknown, perr.Type)
	})
}

func TestProviderErrorIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeNetwork, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeAuthentication, false},
		{ErrorTypeBadRequest, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeContentPolicy, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		perr := &ProviderError{Type: tt.errType}
		assert.Equal(t, tt.retryable, perr.IsRetryable(), "type %d", tt.errType)
	}
}

func TestProviderErrorError(t *testing.T) {
	wrapped := errors.New("connection reset")
	perr := NewProviderError("google", ErrorTypeRateLimit, 429, "quota exhausted", wrapped)

	msg := perr.Error()
	assert.Contains(t, msg, "google")
	assert.Contains(t, msg, "HTTP 429")
	assert.Contains(t, msg, "rate_limit")
	assert.Contains(t, msg, "quota exhausted")
	assert.Contains(t, msg, "connection reset")

	require.ErrorIs(t, perr, wrapped)
	var target *ProviderError
	assert.ErrorAs(t, error(perr), &target)
}

func TestProviderErrorMinimalMessage(t *testing.T) {
	perr := &ProviderError{Type: ErrorTypeUnknown, Provider: "openai"}
	assert.Equal(t, "openai error", perr.Error())
}
