package engine

import (
	"context"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// CommitteeEvaluator runs the whole oracle pool against the request and
// combines verdicts by simple majority: every completed run casts exactly
// one vote regardless of model. Ties are handed to the arbiter untouched.
type CommitteeEvaluator struct {
	runner *evalRunner
}

// NewCommitteeEvaluator builds a committee evaluator over the shared runner
// components.
func NewCommitteeEvaluator(cfg EvaluationConfig, renderer *PromptRenderer, invoker *Invoker, parser *VerdictParser) *CommitteeEvaluator {
	return &CommitteeEvaluator{runner: newEvalRunner(cfg, renderer, invoker, parser)}
}

// Evaluate executes the pool x mutation x repetition matrix and tallies the
// de-mapped votes. The returned verdict slice is the complete evidence set,
// failed parses included.
func (e *CommitteeEvaluator) Evaluate(ctx context.Context, req domain.JudgeRequest) (domain.Tally, []domain.Verdict, error) {
	specs := e.runner.buildSpecs(e.runner.cfg.CommitteeModels, len(req.Candidates))
	verdicts, err := e.runner.run(ctx, req, specs)
	if err != nil {
		return nil, nil, err
	}
	return tallyOf(verdicts), verdicts, nil
}
