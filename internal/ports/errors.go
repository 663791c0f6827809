package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors surfaced by oracle clients.
var (
	// ErrRateLimited indicates the provider rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates the provider is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates an oracle call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates the provider returned an empty or
	// malformed transport-level response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrUnknownModel indicates the registry has no client for the
	// requested model id.
	ErrUnknownModel = errors.New("unknown model")
)

// OracleError wraps a failure from an oracle provider with the model and
// operation involved, so per-call failures can be recorded as data without
// losing their cause.
type OracleError struct {
	// Model is the oracle model id that produced the error.
	Model string

	// Operation names the call that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for OracleError.
func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *OracleError) Unwrap() error { return e.Err }

// IsRetryable reports whether the wrapped failure is transient.
// Only transport/service-level errors are retryable; logic errors are not.
func (e *OracleError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewOracleError creates an OracleError with the given details.
func NewOracleError(model, operation string, err error) *OracleError {
	return &OracleError{Model: model, Operation: operation, Err: err}
}
