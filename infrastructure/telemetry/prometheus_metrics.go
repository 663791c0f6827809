// Package telemetry provides metrics backends for the judging engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tribunal-ai/tribunal/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It exposes oracle call latency, invocation and verdict outcomes, decision
// statuses, and the measured position-bias rate.
type PrometheusMetrics struct {
	latency      *prometheus.HistogramVec
	invocations  *prometheus.CounterVec
	tokens       *prometheus.CounterVec
	verdicts     *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	counterOther *prometheus.CounterVec
	positionBias prometheus.Gauge
	gaugeOther   *prometheus.GaugeVec
}

// NewPrometheusMetrics registers all engine metrics in the given registerer
// and returns the collector. Pass prometheus.DefaultRegisterer for the
// process-global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tribunal_oracle_latency_seconds",
				Help:    "Latency of oracle calls by model and outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model", "status"},
		),
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_oracle_invocations_total",
				Help: "Oracle invocations by model and outcome, after retries.",
			},
			[]string{"model", "status"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_oracle_tokens_total",
				Help: "Token usage reported by oracle providers.",
			},
			[]string{"provider", "model", "token_type"},
		),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_verdicts_total",
				Help: "Parsed verdicts by model and parse status.",
			},
			[]string{"model", "parse_status"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_decisions_total",
				Help: "Judging decisions by final status.",
			},
			[]string{"status"},
		),
		counterOther: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tribunal_operations_total",
				Help: "Uncategorized engine operations.",
			},
			[]string{"operation"},
		),
		positionBias: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tribunal_position_bias_rate",
				Help: "Most recent measured position-bias flip rate.",
			},
		),
		gaugeOther: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tribunal_system_state",
				Help: "Point-in-time engine state values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records oracle call durations in the latency histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	pm.latency.WithLabelValues(
		operation,
		labelOr(labels, "model", "unknown"),
		labelOr(labels, "status", "unknown"),
	).Observe(d.Seconds())
}

// RecordCounter routes counters to their typed vectors by metric name.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "oracle_invocations_total", "oracle_requests_total":
		pm.invocations.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "oracle_tokens_total":
		pm.tokens.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	case "verdicts_total":
		pm.verdicts.WithLabelValues(
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "parse_status", "unknown"),
		).Add(value)
	case "decisions_total":
		pm.decisions.WithLabelValues(labelOr(labels, "status", "unknown")).Add(value)
	default:
		pm.counterOther.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets gauge values, routing the bias rate to its own gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	if metric == "position_bias_rate" {
		pm.positionBias.Set(value)
		return
	}
	pm.gaugeOther.WithLabelValues(metric).Set(value)
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
