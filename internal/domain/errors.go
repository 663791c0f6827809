package domain

import (
	"errors"
	"fmt"
)

// Common domain errors for judging operations.
var (
	// ErrNoCandidates indicates an empty candidate list. It is fatal to
	// the cycle and is raised before any oracle call.
	ErrNoCandidates = errors.New("no candidates to judge")

	// ErrEmptyTally indicates that an evaluation produced no countable
	// verdicts.
	ErrEmptyTally = errors.New("tally contains no votes")
)

// ConfigError reports an invalid evaluation configuration. Configuration
// problems are structural and fail the cycle before any oracle is invoked.
type ConfigError struct {
	// Field is the configuration field that failed validation.
	Field string

	// Err is the underlying validation failure.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field=%s, err=%v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
