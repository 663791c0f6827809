package domain

import (
	"fmt"
	"math/rand/v2"
)

// Permutation describes an explicit candidate order mutation.
// Element p[pos] is the original candidate index shown at rendered position
// pos. A nil Permutation is not valid; use Identity for the no-op order.
//
// Keeping the mutation as a first-class value lets verdicts be mapped back
// to original candidate indices no matter how the prompt was reordered.
type Permutation []int

// Identity returns the permutation that leaves n candidates in place.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// SwapFirstTwo returns the permutation that exchanges the first two
// positions, the classic probe for position bias. For n < 2 it degenerates
// to the identity.
func SwapFirstTwo(n int) Permutation {
	p := Identity(n)
	if n >= 2 {
		p[0], p[1] = p[1], p[0]
	}
	return p
}

// Shuffle returns a deterministic pseudo-random permutation of n positions
// derived from seed. The same (n, seed) pair always yields the same order,
// which keeps self-consistency runs reproducible for auditing.
func Shuffle(n int, seed uint64) Permutation {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return Permutation(rng.Perm(n))
}

// Apply reorders candidates so that result[pos] = cands[p[pos]].
// The input slice is never mutated.
func (p Permutation) Apply(cands []Candidate) []Candidate {
	out := make([]Candidate, len(p))
	for pos, orig := range p {
		out[pos] = cands[orig]
	}
	return out
}

// Demap resolves a rendered position back to the original candidate index.
// It returns false when pos does not refer to a rendered slot.
func (p Permutation) Demap(pos int) (int, bool) {
	if pos < 0 || pos >= len(p) {
		return 0, false
	}
	return p[pos], true
}

// Compose returns the permutation equivalent to applying p first and then
// next on the already-reordered sequence: result[pos] = p[next[pos]].
// This is how a swap probe is layered on top of a self-consistency shuffle.
func (p Permutation) Compose(next Permutation) Permutation {
	out := make(Permutation, len(next))
	for pos, mid := range next {
		out[pos] = p[mid]
	}
	return out
}

// IsIdentity reports whether the permutation leaves every position in place.
func (p Permutation) IsIdentity() bool {
	for pos, orig := range p {
		if pos != orig {
			return false
		}
	}
	return true
}

// Validate checks that the permutation is a bijection over [0, n).
func (p Permutation) Validate(n int) error {
	if len(p) != n {
		return fmt.Errorf("permutation length %d does not match candidate count %d", len(p), n)
	}
	seen := make([]bool, n)
	for _, orig := range p {
		if orig < 0 || orig >= n {
			return fmt.Errorf("permutation element %d out of range [0, %d)", orig, n)
		}
		if seen[orig] {
			return fmt.Errorf("permutation repeats element %d", orig)
		}
		seen[orig] = true
	}
	return nil
}
