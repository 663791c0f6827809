package engine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/ports"
)

// BiasHarness measures position bias: for every oracle in a pool it runs
// one base evaluation and one swap evaluation of the same request, then
// counts how often the de-mapped winner flips. The harness reuses the live
// render/invoke/parse pipeline but is an offline diagnostic; it never
// influences a Decision.
type BiasHarness struct {
	cfg      EvaluationConfig
	renderer *PromptRenderer
	invoker  *Invoker
	parser   *VerdictParser
	metrics  ports.MetricsCollector
	tracer   trace.Tracer
}

// NewBiasHarness builds a harness over the shared pipeline components.
// metrics may be nil.
func NewBiasHarness(cfg EvaluationConfig, renderer *PromptRenderer, invoker *Invoker, parser *VerdictParser, metrics ports.MetricsCollector) *BiasHarness {
	return &BiasHarness{
		cfg:      cfg,
		renderer: renderer,
		invoker:  invoker,
		parser:   parser,
		metrics:  metrics,
		tracer:   otel.Tracer("bias-harness"),
	}
}

// Measure runs the paired probes for every model in pool and folds the
// outcomes into a BiasReport. Pairs across models execute concurrently, but
// a model only contributes once both of its runs have completed; a pair
// with a failed side is recorded yet excluded from the rate.
func (h *BiasHarness) Measure(ctx context.Context, runID string, req domain.JudgeRequest, pool []string) (domain.BiasReport, error) {
	ctx, span := h.tracer.Start(ctx, "BiasHarness.Measure",
		trace.WithAttributes(
			attribute.Int("pool.size", len(pool)),
			attribute.Int("candidates.count", len(req.Candidates)),
		))
	defer span.End()

	perModel := make(map[string][]domain.SwapPair, len(pool))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.MaxConcurrency)

	for _, modelID := range pool {
		g.Go(func() error {
			pair, err := h.probePair(gctx, req, modelID)
			if err != nil {
				return err
			}
			mu.Lock()
			perModel[modelID] = append(perModel[modelID], pair)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.BiasReport{}, err
	}

	report := domain.ComputeBiasReport(runID, perModel, h.cfg.FlipAlarmThreshold)
	if report.PositionBiasRate != nil {
		span.SetAttributes(attribute.Float64("bias.position_rate", *report.PositionBiasRate))
		if h.metrics != nil {
			h.metrics.RecordGauge("position_bias_rate", *report.PositionBiasRate, nil)
		}
	}
	span.SetStatus(codes.Ok, "bias measurement completed")
	return report, nil
}

// probePair runs the base and swap evaluations for one model. The two calls
// may execute concurrently with each other; both must finish before the
// pair is recorded.
func (h *BiasHarness) probePair(ctx context.Context, req domain.JudgeRequest, modelID string) (domain.SwapPair, error) {
	n := len(req.Candidates)
	options := map[string]any{
		"temperature":     h.cfg.Temperature,
		"max_tokens":      h.cfg.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	var base, swap domain.Verdict
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = h.probe(gctx, req, modelID, domain.Identity(n), mutationBase, options)
		return err
	})
	g.Go(func() error {
		var err error
		swap, err = h.probe(gctx, req, modelID, domain.SwapFirstTwo(n), mutationSwap, options)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SwapPair{}, err
	}

	var pair domain.SwapPair
	if orig, ok := base.OriginalWinner(); ok {
		pair.BaseWinner = &orig
	}
	if orig, ok := swap.OriginalWinner(); ok {
		pair.SwapWinner = &orig
	}
	return pair, nil
}

// probe renders, invokes, and parses one harness run.
func (h *BiasHarness) probe(
	ctx context.Context,
	req domain.JudgeRequest,
	modelID string,
	perm domain.Permutation,
	mutation string,
	options map[string]any,
) (domain.Verdict, error) {
	payload, err := h.renderer.Render(req, perm)
	if err != nil {
		return domain.Verdict{}, err
	}
	resp := h.invoker.Invoke(ctx, modelID, payload, options)
	if ctx.Err() != nil {
		return domain.Verdict{}, ctx.Err()
	}
	return h.parser.Parse(ctx, resp, req.Candidates, perm, mutation, payload, options), nil
}
