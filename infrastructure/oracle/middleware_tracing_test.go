package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingMiddlewarePassthrough(t *testing.T) {
	mock := NewMockCoreOracle()
	wrapped := TracingMiddleware("anthropic")(mock)

	text, tokensIn, tokensOut, err := wrapped.Generate(context.Background(), "payload", nil)

	require.NoError(t, err)
	assert.Equal(t, mock.Response, text)
	assert.Equal(t, 10, tokensIn)
	assert.Equal(t, 20, tokensOut)
	assert.Equal(t, 1, mock.CallCount)
	assert.Equal(t, "test-model", wrapped.Model())
}

func TestTracingMiddlewarePropagatesErrors(t *testing.T) {
	mock := NewMockCoreOracle()
	mock.Err = errors.New("provider down")
	wrapped := TracingMiddleware("anthropic")(mock)

	_, _, _, err := wrapped.Generate(context.Background(), "payload", nil)

	require.Error(t, err)
	assert.Equal(t, "provider down", err.Error())
}
