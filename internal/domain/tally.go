package domain

import "sort"

// VoteCount accumulates the votes and confidence mass one candidate has
// received during an evaluation.
type VoteCount struct {
	// Votes is the number of verdicts naming this candidate the winner.
	Votes int `json:"votes"`

	// ConfidenceSum is the summed confidence of those verdicts.
	ConfidenceSum float64 `json:"confidence_sum"`
}

// Tally maps original candidate indices to accumulated votes.
// Accumulation is commutative and associative over verdicts, so partial
// tallies from concurrent runs can be merged in any completion order.
type Tally map[int]VoteCount

// NewTally returns an empty tally.
func NewTally() Tally { return make(Tally) }

// Add records one verdict. The winner position is de-mapped through the
// verdict's permutation first; verdicts without a resolvable winner
// contribute nothing.
func (t Tally) Add(v Verdict) {
	orig, ok := v.OriginalWinner()
	if !ok {
		return
	}
	vc := t[orig]
	vc.Votes++
	vc.ConfidenceSum += v.Confidence
	t[orig] = vc
}

// Merge folds other into t and returns t. Used to combine per-goroutine
// partial tallies; the result is independent of merge order.
func (t Tally) Merge(other Tally) Tally {
	for idx, vc := range other {
		cur := t[idx]
		cur.Votes += vc.Votes
		cur.ConfidenceSum += vc.ConfidenceSum
		t[idx] = cur
	}
	return t
}

// TotalVotes returns the number of counted votes across all candidates.
func (t Tally) TotalVotes() int {
	total := 0
	for _, vc := range t {
		total += vc.Votes
	}
	return total
}

// Leaders returns the candidate indices holding the maximum vote count,
// sorted ascending. More than one entry signals an outright tie.
func (t Tally) Leaders() []int {
	best := 0
	for _, vc := range t {
		if vc.Votes > best {
			best = vc.Votes
		}
	}
	if best == 0 {
		return nil
	}

	var leaders []int
	for idx, vc := range t {
		if vc.Votes == best {
			leaders = append(leaders, idx)
		}
	}
	sort.Ints(leaders)
	return leaders
}

// Winner returns the unique candidate with the most votes. The second
// return is false when the tally is empty or the lead is shared.
func (t Tally) Winner() (int, bool) {
	leaders := t.Leaders()
	if len(leaders) != 1 {
		return 0, false
	}
	return leaders[0], true
}

// RunnerUpVotes returns the vote count of the best candidate other than
// winner, or zero when no other candidate received votes.
func (t Tally) RunnerUpVotes(winner int) int {
	best := 0
	for idx, vc := range t {
		if idx == winner {
			continue
		}
		if vc.Votes > best {
			best = vc.Votes
		}
	}
	return best
}

// MeanConfidence returns the mean confidence of the verdicts that voted for
// idx, or zero when the candidate received no votes.
func (t Tally) MeanConfidence(idx int) float64 {
	vc, ok := t[idx]
	if !ok || vc.Votes == 0 {
		return 0
	}
	return vc.ConfidenceSum / float64(vc.Votes)
}

// Ranking orders all n candidates by descending vote count, breaking count
// ties by ascending index for determinism.
func (t Tally) Ranking(cands []Candidate) []RankingEntry {
	entries := make([]RankingEntry, len(cands))
	for i, c := range cands {
		entries[i] = RankingEntry{Index: c.Index, Name: c.Name, Votes: t[c.Index].Votes}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Votes != entries[b].Votes {
			return entries[a].Votes > entries[b].Votes
		}
		return entries[a].Index < entries[b].Index
	})
	return entries
}
