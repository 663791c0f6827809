package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/ports"
)

// retryable lets provider errors advertise their own transience instead of
// relying on string matching alone.
type retryable interface{ IsRetryable() bool }

// Invoker drives a single oracle call end to end: registry lookup, per-call
// timeout, and bounded retry with exponential backoff on transient failures.
// Every outcome, including exhaustion and timeout, is returned as an
// OracleResponse with Err set rather than an error, so one flaky oracle can
// never abort a whole evaluation.
type Invoker struct {
	registry ports.OracleRegistry
	cfg      InvokerConfig
	metrics  ports.MetricsCollector
}

// NewInvoker creates an Invoker over the given registry.
// metrics may be nil when no collector is wired.
func NewInvoker(registry ports.OracleRegistry, cfg InvokerConfig, metrics ports.MetricsCollector) *Invoker {
	return &Invoker{registry: registry, cfg: cfg, metrics: metrics}
}

// Invoke calls the oracle identified by modelID with the rendered payload.
// Transient failures are retried up to the configured bound with backoff and
// jitter; a timeout or exhausted retry budget yields a response with Err set.
func (inv *Invoker) Invoke(ctx context.Context, modelID, payload string, options map[string]any) domain.OracleResponse {
	start := time.Now()

	client, err := inv.registry.Client(modelID)
	if err != nil {
		return inv.failed(modelID, start, ports.NewOracleError(modelID, "resolve", err))
	}

	var lastErr error
	for attempt := 0; attempt <= inv.cfg.MaxRetries; attempt++ {
		text, err := inv.completeOnce(ctx, client, payload, options)
		if err == nil {
			resp := domain.OracleResponse{
				ModelID: modelID,
				RawText: text,
				Latency: time.Since(start),
			}
			inv.record(modelID, "ok", resp.Latency)
			return resp
		}

		lastErr = err
		if attempt == inv.cfg.MaxRetries || !isTransient(err) {
			break
		}

		select {
		case <-ctx.Done():
			return inv.failed(modelID, start, ports.NewOracleError(modelID, "complete", ctx.Err()))
		case <-time.After(inv.backoff(attempt)):
		}
	}

	return inv.failed(modelID, start, ports.NewOracleError(modelID, "complete", lastErr))
}

// completeOnce performs one oracle call under the per-call deadline.
// The deadline applies to this attempt only; it never cascades to other
// models' in-flight calls.
func (inv *Invoker) completeOnce(ctx context.Context, client ports.OracleClient, payload string, options map[string]any) (string, error) {
	callCtx := ctx
	if inv.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(inv.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	text, err := client.Complete(callCtx, payload, options)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", ports.ErrTimeout
	}
	return text, err
}

// failed builds the error-valued response for a call that did not complete.
func (inv *Invoker) failed(modelID string, start time.Time, err error) domain.OracleResponse {
	latency := time.Since(start)
	inv.record(modelID, "error", latency)
	return domain.OracleResponse{
		ModelID: modelID,
		Latency: latency,
		Err:     err.Error(),
	}
}

func (inv *Invoker) record(modelID, status string, latency time.Duration) {
	if inv.metrics == nil {
		return
	}
	labels := map[string]string{"model": modelID, "status": status}
	inv.metrics.RecordLatency("oracle_invoke", latency, labels)
	inv.metrics.RecordCounter("oracle_invocations_total", 1, labels)
}

// backoff computes the exponential retry delay with jitter.
func (inv *Invoker) backoff(attempt int) time.Duration {
	base := time.Duration(inv.cfg.BackoffMillis) * time.Millisecond
	if base <= 0 {
		return 0
	}
	delay := base * time.Duration(1<<attempt)

	jitter := int64(float64(delay) * 0.1)
	if jitter > 0 {
		//nolint:gosec // G404: math/rand is acceptable for retry jitter timing.
		delay += time.Duration(rand.Int64N(2*jitter) - jitter)
	}
	if delay < base {
		return base
	}
	return delay
}

// isTransient reports whether an oracle failure is worth retrying.
// Typed errors are consulted first; the string patterns cover providers
// that surface raw transport errors.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	if errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrServiceUnavailable) ||
		errors.Is(err, ports.ErrTimeout) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit", "too many requests", "timeout", "connection refused",
		"connection reset", "temporary failure", "service unavailable",
		"internal server error", "bad gateway", "gateway timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
