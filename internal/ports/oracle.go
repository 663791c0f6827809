// Package ports defines the interfaces the judging engine depends on.
// Implementations live under infrastructure and are injected explicitly;
// no component reads ambient process state.
package ports

import (
	"context"
	"time"
)

// OracleClient is an external judgment capability invoked as a black box.
// Implementations handle provider-specific authentication, request
// formatting, and transport-level error normalization.
type OracleClient interface {
	// Complete sends a judge payload to the oracle and returns its raw
	// text output. The options map carries provider-tunable parameters
	// such as "temperature", "max_tokens", and "response_format".
	Complete(ctx context.Context, payload string, options map[string]any) (string, error)

	// Model returns the model identifier this client invokes, used for
	// vote attribution and audit traces.
	Model() string
}

// OracleRegistry resolves model identifiers to oracle clients.
// The committee and router evaluators address oracles purely by id; the
// registry owns client construction and middleware wiring.
type OracleRegistry interface {
	// Client returns the oracle client for the given model id.
	Client(modelID string) (OracleClient, error)

	// Models lists every registered model id.
	Models() []string
}

// MetricsCollector records operational metrics for judging cycles.
// Implementations integrate with Prometheus or a compatible backend.
type MetricsCollector interface {
	// RecordLatency records the duration of an oracle call or
	// evaluation phase.
	RecordLatency(operation string, d time.Duration, labels map[string]string)

	// RecordCounter increments a counter such as verdicts by parse
	// status or retries performed.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a point-in-time value such as the measured
	// position-bias rate.
	RecordGauge(metric string, value float64, labels map[string]string)
}

// AuditSink receives serialized judging artifacts for append-only trace
// logging. Every Decision and BiasReport is persisted with its full verdict
// evidence, including failed parses.
type AuditSink interface {
	// Event appends one named audit event for the given cycle.
	Event(cycleID, name string, payload any)
}
