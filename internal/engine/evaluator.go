package engine

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// Mutation labels for the audit trace.
const (
	mutationBase = "base"
	mutationSwap = "swap"
)

// runSpec is one planned oracle invocation: a model, an explicit order
// mutation, and the probe label it belongs to.
type runSpec struct {
	modelID  string
	perm     domain.Permutation
	mutation string
}

// evalRunner executes a matrix of oracle runs and collects verdicts.
// It is shared by the committee and router evaluators, which differ only in
// how they choose the model set.
type evalRunner struct {
	cfg      EvaluationConfig
	renderer *PromptRenderer
	invoker  *Invoker
	parser   *VerdictParser
	tracer   trace.Tracer
}

func newEvalRunner(cfg EvaluationConfig, renderer *PromptRenderer, invoker *Invoker, parser *VerdictParser) *evalRunner {
	return &evalRunner{
		cfg:      cfg,
		renderer: renderer,
		invoker:  invoker,
		parser:   parser,
		tracer:   otel.Tracer("judging-engine"),
	}
}

// callOptions returns the per-call oracle options for judging.
func (r *evalRunner) callOptions() map[string]any {
	return map[string]any{
		"temperature":     r.cfg.Temperature,
		"max_tokens":      r.cfg.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
}

// buildSpecs expands models into the full run matrix: one base run per
// self-consistency repetition, plus a swap run layered on the same shuffle
// when swap mitigation is on. Each repetition uses an independent,
// deterministic shuffle seed so the cycle can be replayed.
func (r *evalRunner) buildSpecs(models []string, candidateCount int) []runSpec {
	runs := 1
	if r.cfg.EnableSelfConsistency {
		runs = r.cfg.SelfConsistencyRuns
	}

	var specs []runSpec
	for m, modelID := range models {
		for rep := 0; rep < runs; rep++ {
			base := domain.Identity(candidateCount)
			if r.cfg.EnableSelfConsistency {
				base = domain.Shuffle(candidateCount, r.shuffleSeed(m, rep))
			}
			specs = append(specs, runSpec{modelID: modelID, perm: base, mutation: mutationBase})

			// Position bias only exists with two or more candidates.
			if r.cfg.EnableSwap && candidateCount >= 2 {
				swapped := base.Compose(domain.SwapFirstTwo(candidateCount))
				specs = append(specs, runSpec{modelID: modelID, perm: swapped, mutation: mutationSwap})
			}
		}
	}
	return specs
}

// shuffleSeed derives the deterministic seed for one (model, repetition)
// cell from the cycle's anchor seed.
func (r *evalRunner) shuffleSeed(modelIdx, rep int) uint64 {
	seed := r.cfg.ShuffleSeed
	seed ^= uint64(modelIdx+1) * 0xbf58476d1ce4e5b9
	seed ^= uint64(rep+1) * 0x94d049bb133111eb
	return seed
}

// run executes the specs with bounded concurrency and returns one verdict
// per completed run. A verdict from a cancelled call is dropped, never
// partially counted; per-call failures surface as failed verdicts.
func (r *evalRunner) run(ctx context.Context, req domain.JudgeRequest, specs []runSpec) ([]domain.Verdict, error) {
	ctx, span := r.tracer.Start(ctx, "evalRunner.run",
		trace.WithAttributes(
			attribute.Int("runs.planned", len(specs)),
			attribute.Int("candidates.count", len(req.Candidates)),
		))
	defer span.End()

	verdicts := make([]domain.Verdict, len(specs))
	completed := make([]bool, len(specs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	options := r.callOptions()
	for i, spec := range specs {
		g.Go(func() error {
			payload, err := r.renderer.Render(req, spec.perm)
			if err != nil {
				return fmt.Errorf("render for %s: %w", spec.modelID, err)
			}

			resp := r.invoker.Invoke(gctx, spec.modelID, payload, options)
			if gctx.Err() != nil {
				// Cycle aborted; drop this run rather than counting
				// a verdict produced under cancellation.
				return gctx.Err()
			}
			verdict := r.parser.Parse(gctx, resp, req.Candidates, spec.perm, spec.mutation, payload, options)

			mu.Lock()
			verdicts[i] = verdict
			completed[i] = true
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Verdict, 0, len(specs))
	for i, v := range verdicts {
		if completed[i] {
			out = append(out, v)
		}
	}
	span.SetAttributes(attribute.Int("runs.completed", len(out)))
	return out, nil
}

// tallyOf reduces verdicts into a Tally. The reduction is commutative, so
// any run completion order yields the same result.
func tallyOf(verdicts []domain.Verdict) domain.Tally {
	tally := domain.NewTally()
	for _, v := range verdicts {
		tally.Add(v)
	}
	return tally
}
