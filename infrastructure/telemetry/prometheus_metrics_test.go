package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestRecordCounterRouting(t *testing.T) {
	t.Run("oracle invocations", func(t *testing.T) {
		pm, _ := newTestMetrics(t)

		pm.RecordCounter("oracle_invocations_total", 1,
			map[string]string{"model": "openai/gpt-4o", "status": "success"})
		pm.RecordCounter("oracle_requests_total", 2,
			map[string]string{"model": "openai/gpt-4o", "status": "success"})

		got := testutil.ToFloat64(pm.invocations.WithLabelValues("openai/gpt-4o", "success"))
		assert.Equal(t, 3.0, got, "both metric names feed the invocation counter")
	})

	t.Run("token usage", func(t *testing.T) {
		pm, _ := newTestMetrics(t)

		pm.RecordCounter("oracle_tokens_total", 120, map[string]string{
			"provider": "openai", "model": "gpt-4o", "token_type": "input",
		})

		got := testutil.ToFloat64(pm.tokens.WithLabelValues("openai", "gpt-4o", "input"))
		assert.Equal(t, 120.0, got)
	})

	t.Run("verdicts and decisions", func(t *testing.T) {
		pm, _ := newTestMetrics(t)

		pm.RecordCounter("verdicts_total", 1,
			map[string]string{"model": "m1", "parse_status": "failed"})
		pm.RecordCounter("decisions_total", 1,
			map[string]string{"status": "auto_accept"})

		assert.Equal(t, 1.0, testutil.ToFloat64(pm.verdicts.WithLabelValues("m1", "failed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(pm.decisions.WithLabelValues("auto_accept")))
	})

	t.Run("unrecognized counters land in the catch-all", func(t *testing.T) {
		pm, _ := newTestMetrics(t)

		pm.RecordCounter("something_else", 5, nil)

		assert.Equal(t, 5.0, testutil.ToFloat64(pm.counterOther.WithLabelValues("something_else")))
	})

	t.Run("missing labels fall back to unknown", func(t *testing.T) {
		pm, _ := newTestMetrics(t)

		pm.RecordCounter("decisions_total", 1, nil)

		assert.Equal(t, 1.0, testutil.ToFloat64(pm.decisions.WithLabelValues("unknown")))
	})
}

func TestRecordGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge("position_bias_rate", 0.25, nil)
	assert.Equal(t, 0.25, testutil.ToFloat64(pm.positionBias))

	pm.RecordGauge("queue_depth", 7, nil)
	assert.Equal(t, 7.0, testutil.ToFloat64(pm.gaugeOther.WithLabelValues("queue_depth")))
}

func TestRecordLatency(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency("invoke", 250*time.Millisecond,
		map[string]string{"model": "m1", "status": "success"})

	count, err := testutil.GatherAndCount(reg, "tribunal_oracle_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsRegisterOncePerRegistry(t *testing.T) {
	// Two collectors must not collide as long as they use separate
	// registries.
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(regA)
		NewPrometheusMetrics(regB)
	})
}
