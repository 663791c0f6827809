package domain

// Aspect hints at which evaluation dimension a judging cycle cares about.
// The router uses it to select a gated oracle shortlist.
type Aspect string

// Supported evaluation aspects.
const (
	AspectDefault    Aspect = "default"
	AspectRelevance  Aspect = "relevance"
	AspectFactuality Aspect = "factuality"
	AspectSafety     Aspect = "safety"
)

// Valid reports whether the aspect is one of the supported values.
// An empty aspect is treated as AspectDefault by callers, not here.
func (a Aspect) Valid() bool {
	switch a {
	case AspectDefault, AspectRelevance, AspectFactuality, AspectSafety:
		return true
	}
	return false
}

// JudgeRequest carries everything one judging cycle needs: the complete,
// normalized candidate list, the research brief, and the accumulated worker
// notes. It is created once per cycle and read-only thereafter; candidates
// must never be truncated before judging.
type JudgeRequest struct {
	// Candidates is the normalized, index-stable candidate sequence.
	Candidates []Candidate `json:"candidates"`

	// Brief is the research brief the candidates answer.
	Brief string `json:"brief"`

	// WorkerNotes is the free-form evidence gathered by upstream workers.
	WorkerNotes string `json:"worker_notes"`

	// Aspect selects the evaluation dimension for router-mode judging.
	Aspect Aspect `json:"aspect"`
}
