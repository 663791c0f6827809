package engine

import (
	"context"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// RouterEvaluator selects exactly one oracle for the request's aspect by
// cost and gating policy, then runs it like a single-model committee.
// Swap mitigation and self-consistency still apply when configured.
type RouterEvaluator struct {
	runner *evalRunner
}

// NewRouterEvaluator builds a router evaluator over the shared runner
// components.
func NewRouterEvaluator(cfg EvaluationConfig, renderer *PromptRenderer, invoker *Invoker, parser *VerdictParser) *RouterEvaluator {
	return &RouterEvaluator{runner: newEvalRunner(cfg, renderer, invoker, parser)}
}

// Evaluate routes the request to the cheapest eligible oracle and tallies
// its verdicts.
func (e *RouterEvaluator) Evaluate(ctx context.Context, req domain.JudgeRequest) (domain.Tally, []domain.Verdict, error) {
	model := e.selectModel(req.Aspect)
	specs := e.runner.buildSpecs([]string{model}, len(req.Candidates))
	verdicts, err := e.runner.run(ctx, req, specs)
	if err != nil {
		return nil, nil, err
	}
	return tallyOf(verdicts), verdicts, nil
}

// selectModel picks the gated shortlist for the aspect (or the full pool
// when no gate exists) and returns its cheapest member. Cost ties break by
// pool declaration order: the first listed model wins.
func (e *RouterEvaluator) selectModel(aspect domain.Aspect) string {
	cfg := e.runner.cfg

	if aspect == "" {
		aspect = domain.AspectDefault
	}

	allowed := func(string) bool { return true }
	if gate, ok := cfg.AspectGates[aspect]; ok {
		set := make(map[string]struct{}, len(gate))
		for _, id := range gate {
			set[id] = struct{}{}
		}
		allowed = func(id string) bool {
			_, ok := set[id]
			return ok
		}
	}

	best := ""
	bestCost := 0.0
	for _, m := range cfg.RouterModels {
		if !allowed(m.ID) {
			continue
		}
		if best == "" || m.CostWeight < bestCost {
			best, bestCost = m.ID, m.CostWeight
		}
	}
	// Config validation guarantees a non-empty pool and non-empty gates,
	// so best is always set.
	return best
}
