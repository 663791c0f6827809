package domain

import "time"

// DecisionStatus is the terminal outcome of a judging cycle.
// The escalate statuses are valid outcomes meaning "a human must decide";
// they are not errors and must never be reported as hard failures.
type DecisionStatus string

const (
	// StatusAutoAccept means the tallied winner stands without review.
	StatusAutoAccept DecisionStatus = "auto_accept"

	// StatusEscalateTie means two or more candidates share the top vote
	// count and no automatic pick is allowed.
	StatusEscalateTie DecisionStatus = "escalate_tie"

	// StatusEscalateLowConfidence means the winner's confidence or margin
	// fell below the configured thresholds.
	StatusEscalateLowConfidence DecisionStatus = "escalate_low_confidence"

	// StatusEscalateParseFailure means no oracle produced a usable
	// verdict.
	StatusEscalateParseFailure DecisionStatus = "escalate_parse_failure"
)

// Escalated reports whether this status requires human adjudication.
func (s DecisionStatus) Escalated() bool { return s != StatusAutoAccept }

// RankingEntry is one row of the vote-ordered candidate ranking kept for
// the audit trace.
type RankingEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// Decision is the final, persisted outcome of one judging cycle. It carries
// the full verdict evidence (including failed parses) so the cycle can be
// audited after the fact.
type Decision struct {
	// CycleID correlates the decision with its audit trail events.
	CycleID string `json:"cycle_id"`

	// Status is the terminal outcome.
	Status DecisionStatus `json:"status"`

	// WinnerIndex is the original index of the tallied winner, or nil
	// when the cycle escalated without one.
	WinnerIndex *int `json:"winner_index,omitempty"`

	// Confidence is the mean confidence of the verdicts that voted for
	// the winner.
	Confidence float64 `json:"confidence"`

	// Delta is the normalized vote margin between the top two candidates.
	Delta float64 `json:"delta"`

	// Ranking orders all candidates by received votes.
	Ranking []RankingEntry `json:"ranking"`

	// Evidence is the ordered sequence of verdicts behind the decision.
	Evidence []Verdict `json:"evidence"`

	// Timestamp records when the decision was produced.
	Timestamp time.Time `json:"timestamp"`
}
