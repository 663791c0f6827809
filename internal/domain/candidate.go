// Package domain contains pure, dependency-light domain models and types
// for the candidate judging engine.
package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// foldCaser is a package-level Unicode case folder.
// This avoids creating a new caser for each normalization pass.
var foldCaser = cases.Fold()

// Candidate is a single answer produced by the upstream research process.
// Identity is the stable Index assigned at normalization, never the position
// a candidate happens to occupy in a rendered prompt.
type Candidate struct {
	// Index is the permanent, 0-based identity of this candidate.
	// It is assigned once during normalization and survives any order
	// mutation applied for bias testing.
	Index int `json:"index"`

	// Name is the human-readable label of the candidate.
	Name string `json:"name"`

	// URL is the canonical link for the candidate, used for deduplication
	// and for resolving winner references returned by an oracle.
	URL string `json:"url"`

	// Rationale explains why the upstream worker proposed this candidate.
	Rationale string `json:"rationale"`
}

// NormalizeCandidates cleans a raw candidate list into an index-stable
// sequence: fields are whitespace-trimmed, duplicates are detected by
// case-folded URL with the first occurrence kept, and permanent indices are
// assigned in input order. Candidates without a URL are never treated as
// duplicates of each other.
// Returns ErrNoCandidates if the input is empty or reduces to nothing.
func NormalizeCandidates(raw []Candidate) ([]Candidate, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Candidate, 0, len(raw))

	for _, c := range raw {
		url := strings.TrimSpace(c.URL)
		if url != "" {
			key := foldCaser.String(url)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		out = append(out, Candidate{
			Index:     len(out),
			Name:      strings.TrimSpace(c.Name),
			URL:       url,
			Rationale: strings.TrimSpace(c.Rationale),
		})
	}

	if len(out) == 0 {
		return nil, ErrNoCandidates
	}
	return out, nil
}
