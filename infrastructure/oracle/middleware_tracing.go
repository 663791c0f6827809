package oracle

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedOracle wraps each request in an OpenTelemetry span.
type tracedOracle struct {
	next     CoreOracle
	provider string
	tracer   trace.Tracer
}

// TracingMiddleware adds a span per oracle request carrying the provider,
// model, payload size, and token usage.
func TracingMiddleware(provider string) Middleware {
	tracer := otel.Tracer("oracle-client")

	return func(next CoreOracle) CoreOracle {
		return &tracedOracle{next: next, provider: provider, tracer: tracer}
	}
}

// Generate executes the request within a span, recording token counts on
// success and the error status on failure.
func (t *tracedOracle) Generate(ctx context.Context, payload string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "oracle.generate",
		trace.WithAttributes(
			attribute.String("oracle.provider", t.provider),
			attribute.String("oracle.model", t.next.Model()),
			attribute.Int("oracle.payload_bytes", len(payload)),
		))
	defer span.End()

	text, tokensIn, tokensOut, err := t.next.Generate(ctx, payload, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("oracle.tokens.input", tokensIn),
			attribute.Int("oracle.tokens.output", tokensOut),
		)
		span.SetStatus(codes.Ok, "")
	}

	return text, tokensIn, tokensOut, err
}

// Model returns the model name from the wrapped implementation.
func (t *tracedOracle) Model() string { return t.next.Model() }
