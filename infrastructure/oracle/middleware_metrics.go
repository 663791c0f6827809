package oracle

import (
	"context"
	"time"

	"github.com/tribunal-ai/tribunal/internal/ports"
)

// metricsOracle records per-request latency, outcome, and token usage.
type metricsOracle struct {
	next      CoreOracle
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware collects request metrics for the wrapped oracle.
// The provider label distinguishes clients sharing one collector.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreOracle) CoreOracle {
		return &metricsOracle{next: next, provider: provider, collector: collector}
	}
}

// Generate executes the request while recording latency, status, and token
// counters.
func (m *metricsOracle) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	text, tokensIn, tokensOut, err := m.next.Generate(ctx, payload, opts)

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.Model(),
		"status":   "success",
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			labels["status"] = "timeout"
		} else {
			labels["status"] = "error"
		}
	}

	if m.collector != nil {
		m.collector.RecordLatency("oracle_request_seconds", time.Since(start), labels)
		m.collector.RecordCounter("oracle_requests_total", 1, labels)

		if err == nil {
			labels["token_type"] = "input"
			m.collector.RecordCounter("oracle_tokens_total", float64(tokensIn), labels)

			labels["token_type"] = "output"
			m.collector.RecordCounter("oracle_tokens_total", float64(tokensOut), labels)
		}
	}

	return text, tokensIn, tokensOut, err
}

// Model returns the model name from the wrapped implementation.
func (m *metricsOracle) Model() string { return m.next.Model() }
