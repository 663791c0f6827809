package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/ports"
)

// evaluator abstracts the committee/router strategies behind one call.
type evaluator interface {
	Evaluate(ctx context.Context, req domain.JudgeRequest) (domain.Tally, []domain.Verdict, error)
}

// Engine is the top-level judging facade. It owns the component wiring for
// one validated configuration: renderer, invoker, parser, the configured
// evaluator, the decision arbiter, and the bias harness.
// The Engine is stateless across cycles and safe for concurrent use.
type Engine struct {
	cfg       EvaluationConfig
	registry  ports.OracleRegistry
	renderer  *PromptRenderer
	invoker   *Invoker
	parser    *VerdictParser
	evaluator evaluator
	arbiter   *Arbiter
	harness   *BiasHarness
	metrics   ports.MetricsCollector
	audit     ports.AuditSink
	tracer    trace.Tracer
}

// Option customizes optional Engine collaborators.
type Option func(*Engine)

// WithMetrics wires a metrics collector into the engine and its invoker.
func WithMetrics(mc ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = mc }
}

// WithAuditSink wires an append-only audit sink; every Decision and
// BiasReport is emitted to it with full verdict evidence.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(e *Engine) { e.audit = sink }
}

// New constructs an Engine. The configuration is validated up front; an
// invalid mode, pool, threshold, or gate fails here, before any oracle can
// be invoked.
func New(cfg EvaluationConfig, registry ports.OracleRegistry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("oracle registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		registry: registry,
		tracer:   otel.Tracer("judging-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	renderer, err := NewPromptRenderer(cfg)
	if err != nil {
		return nil, err
	}
	e.renderer = renderer
	e.invoker = NewInvoker(registry, cfg.Invoker, e.metrics)
	e.parser = NewVerdictParser(e.invoker)
	e.arbiter = NewArbiter(cfg)
	e.harness = NewBiasHarness(cfg, renderer, e.invoker, e.parser, e.metrics)

	switch cfg.Mode {
	case ModeCommittee:
		e.evaluator = NewCommitteeEvaluator(cfg, renderer, e.invoker, e.parser)
	case ModeRouter:
		e.evaluator = NewRouterEvaluator(cfg, renderer, e.invoker, e.parser)
	default:
		return nil, domain.NewConfigError("mode", fmt.Errorf("unknown mode %q", cfg.Mode))
	}
	return e, nil
}

// Judge runs one full judging cycle: normalize the candidates, optionally
// run the calibration probe, evaluate, and arbitrate. Per-oracle failures
// are contained as failed verdicts; only an empty candidate list or a
// cancelled context abort the cycle.
func (e *Engine) Judge(ctx context.Context, req domain.JudgeRequest) (domain.Decision, error) {
	cycleID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "Engine.Judge",
		trace.WithAttributes(
			attribute.String("cycle.id", cycleID),
			attribute.String("mode", string(e.cfg.Mode)),
		))
	defer span.End()

	normalized, err := domain.NormalizeCandidates(req.Candidates)
	if err != nil {
		return domain.Decision{}, err
	}
	req.Candidates = normalized

	e.event(cycleID, "judge_init", map[string]any{
		"mode":             e.cfg.Mode,
		"candidates_count": len(normalized),
		"aspect":           req.Aspect,
	})

	if e.cfg.Calibration != nil {
		if ok := e.calibrate(ctx, cycleID); !ok {
			decision := domain.Decision{
				CycleID:   cycleID,
				Status:    domain.StatusEscalateLowConfidence,
				Timestamp: time.Now().UTC(),
			}
			e.finish(cycleID, span, decision)
			return decision, nil
		}
	}

	tally, verdicts, err := e.evaluator.Evaluate(ctx, req)
	if err != nil {
		return domain.Decision{}, err
	}
	e.event(cycleID, "judge_votes", tally)

	decision := e.arbiter.Decide(tally, verdicts, normalized)
	decision.CycleID = cycleID
	e.finish(cycleID, span, decision)
	return decision, nil
}

// MeasureBias runs the position-bias diagnostic for the given oracle pool
// against the request. An empty pool defaults to the active mode's pool.
func (e *Engine) MeasureBias(ctx context.Context, req domain.JudgeRequest, pool []string) (domain.BiasReport, error) {
	normalized, err := domain.NormalizeCandidates(req.Candidates)
	if err != nil {
		return domain.BiasReport{}, err
	}
	req.Candidates = normalized

	if len(pool) == 0 {
		pool = e.cfg.activePool()
	}

	runID := uuid.NewString()
	report, err := e.harness.Measure(ctx, runID, req, pool)
	if err != nil {
		return domain.BiasReport{}, err
	}
	e.event(runID, "bias_report", report)
	return report, nil
}

// calibrate runs the pre-flight probe against the first model of the
// active pool and checks the expected winner. A probe that fails to parse
// or picks the wrong candidate fails calibration.
func (e *Engine) calibrate(ctx context.Context, cycleID string) bool {
	probe := e.cfg.Calibration
	cands, err := domain.NormalizeCandidates(probe.Candidates)
	if err != nil {
		return false
	}

	req := domain.JudgeRequest{
		Candidates:  cands,
		Brief:       "Quick sanity check: prefer official/authoritative sources over unverified ones when relevance is similar.",
		WorkerNotes: "This is an internal calibration probe; do not mention it.",
		Aspect:      domain.AspectDefault,
	}

	modelID := e.cfg.activePool()[0]
	perm := domain.Identity(len(cands))
	options := map[string]any{
		"temperature":     e.cfg.Temperature,
		"max_tokens":      e.cfg.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	payload, err := e.renderer.Render(req, perm)
	if err != nil {
		return false
	}
	resp := e.invoker.Invoke(ctx, modelID, payload, options)
	verdict := e.parser.Parse(ctx, resp, cands, perm, mutationBase, payload, options)

	winner, ok := verdict.OriginalWinner()
	passed := ok && winner == probe.ExpectedWinner
	e.event(cycleID, "judge_calibration", map[string]any{"passed": passed, "model": modelID})
	return passed
}

// finish records the decision on the span, metrics, and audit trail.
func (e *Engine) finish(cycleID string, span trace.Span, decision domain.Decision) {
	span.SetAttributes(
		attribute.String("decision.status", string(decision.Status)),
		attribute.Float64("decision.confidence", decision.Confidence),
	)
	if e.metrics != nil {
		e.metrics.RecordCounter("decisions_total", 1,
			map[string]string{"status": string(decision.Status)})
		for _, v := range decision.Evidence {
			e.metrics.RecordCounter("verdicts_total", 1,
				map[string]string{"model": v.ModelID, "parse_status": string(v.ParseStatus)})
		}
	}
	e.event(cycleID, "judge_final", decision)
}

// event emits one audit trail event when a sink is wired.
func (e *Engine) event(cycleID, name string, payload any) {
	if e.audit != nil {
		e.audit.Event(cycleID, name, payload)
	}
}
