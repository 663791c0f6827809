package engine

import (
	"time"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// Arbiter merges an evaluation's tally and evidence against the configured
// thresholds to produce the cycle's terminal Decision. Escalation is a
// valid outcome, not an error: any single escalation trigger dominates, in
// the order parse failure, tie, low confidence or margin.
type Arbiter struct {
	pauseThreshold float64
	deltaThreshold float64
}

// NewArbiter builds an arbiter from the configured thresholds.
func NewArbiter(cfg EvaluationConfig) *Arbiter {
	return &Arbiter{
		pauseThreshold: cfg.PauseThreshold,
		deltaThreshold: cfg.DeltaThreshold,
	}
}

// Decide arbitrates one evaluation. candidates is the normalized original
// list; verdicts is the complete evidence set, retained on the Decision
// (failed parses included) for post-hoc audit.
func (a *Arbiter) Decide(tally domain.Tally, verdicts []domain.Verdict, candidates []domain.Candidate) domain.Decision {
	decision := domain.Decision{
		Ranking:   tally.Ranking(candidates),
		Evidence:  verdicts,
		Timestamp: time.Now().UTC(),
	}

	// No countable votes at all: nothing to decide automatically.
	if tally.TotalVotes() == 0 {
		decision.Status = domain.StatusEscalateParseFailure
		return decision
	}

	winner, ok := tally.Winner()
	if !ok {
		// Two or more candidates share the top vote count.
		decision.Status = domain.StatusEscalateTie
		return decision
	}

	winnerVotes := tally[winner].Votes
	runnerUpVotes := tally.RunnerUpVotes(winner)
	confidence := tally.MeanConfidence(winner)
	delta := float64(winnerVotes-runnerUpVotes) / float64(tally.TotalVotes())

	decision.WinnerIndex = &winner
	decision.Confidence = confidence
	decision.Delta = delta

	// Either gate failing escalates: pause threshold on absolute
	// confidence, delta threshold on closeness of the top two. When both
	// hold the winner is accepted whether or not it clears the autopass
	// bar; acceptance is the default, not a reward.
	if confidence < a.pauseThreshold || delta < a.deltaThreshold {
		decision.Status = domain.StatusEscalateLowConfidence
		return decision
	}

	decision.Status = domain.StatusAutoAccept
	return decision
}
