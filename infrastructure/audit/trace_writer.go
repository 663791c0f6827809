// Package audit persists judging artifacts as an append-only JSON event
// trail. Every decision, vote tally, and bias report passes through here so
// a cycle can be reconstructed after the fact, failed parses included.
package audit

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tribunal-ai/tribunal/internal/ports"
)

// ZapSink implements ports.AuditSink on a zap logger. Each event becomes
// one structured log entry carrying the cycle id, event name, and payload.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps an existing logger as an audit sink.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

// NewFileSink builds a sink that appends JSON lines to the given path.
// The file is created if missing and never truncated.
func NewFileSink(path string) (*ZapSink, func() error, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("audit: build logger: %w", err)
	}
	return NewZapSink(logger), logger.Sync, nil
}

// Event appends one audit event. Payloads are serialized with zap's
// reflection encoder, so any JSON-marshalable value works.
func (s *ZapSink) Event(cycleID, name string, payload any) {
	s.logger.Info(name,
		zap.String("cycle_id", cycleID),
		zap.String("event", name),
		zap.Any("payload", payload),
	)
}

// Compile-time verification that ZapSink implements AuditSink.
var _ ports.AuditSink = (*ZapSink)(nil)
