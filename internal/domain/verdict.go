package domain

import "time"

// ParseStatus records how a verdict was recovered from oracle output.
type ParseStatus string

const (
	// ParseOK means the oracle reply parsed directly as structured JSON.
	ParseOK ParseStatus = "ok"

	// ParseRecovered means the verdict required a fallback stage: either
	// extraction of an embedded JSON block or a strict-format re-ask.
	// Recovered verdicts are evidence of oracle instability and are kept
	// in the audit trace.
	ParseRecovered ParseStatus = "recovered"

	// ParseFailed means every parser stage was exhausted; the verdict
	// carries no winner and zero confidence.
	ParseFailed ParseStatus = "failed"
)

// OracleResponse is the raw outcome of a single oracle invocation.
// A failed call is represented as data (Err set) rather than an exception so
// one flaky oracle never aborts a whole evaluation.
type OracleResponse struct {
	// ModelID identifies the oracle that produced this response.
	ModelID string `json:"model_id"`

	// RawText is the unparsed oracle output.
	RawText string `json:"raw_text"`

	// Latency measures the wall-clock duration of the call.
	Latency time.Duration `json:"latency_ns"`

	// Err holds the failure description when the call did not complete,
	// empty otherwise.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the invocation itself failed (timeout, retries
// exhausted). A well-formed-but-unhelpful reply is not a failure here; that
// is the parser's concern.
func (r OracleResponse) Failed() bool { return r.Err != "" }

// Verdict is the structured judgment extracted from one oracle invocation.
// WinnerIndex refers to a position in the rendered candidate order; it must
// be de-mapped through Permutation before tallying so votes always name the
// original candidate. A Verdict is produced for every invocation, including
// failed ones.
type Verdict struct {
	// ModelID identifies the oracle that cast this vote.
	ModelID string `json:"model_id"`

	// WinnerIndex is the winning position in the rendered order, or nil
	// when no winner could be extracted.
	WinnerIndex *int `json:"winner_index,omitempty"`

	// Confidence is the oracle's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Permutation is the order mutation that was applied when rendering
	// the prompt this verdict answers.
	Permutation Permutation `json:"permutation"`

	// Mutation labels the probe that produced this verdict ("base",
	// "swap"), kept for the audit trace.
	Mutation string `json:"mutation,omitempty"`

	// ParseStatus records which parser stage produced this verdict.
	ParseStatus ParseStatus `json:"parse_status"`
}

// OriginalWinner de-maps the rendered winner position through the applied
// permutation, returning the original candidate index. The second return is
// false for failed verdicts and out-of-range positions.
func (v Verdict) OriginalWinner() (int, bool) {
	if v.WinnerIndex == nil {
		return 0, false
	}
	return v.Permutation.Demap(*v.WinnerIndex)
}

// FailedVerdict builds the fail-safe verdict for an invocation whose output
// could not be parsed: no winner, zero confidence, ParseFailed.
func FailedVerdict(modelID string, perm Permutation, mutation string) Verdict {
	return Verdict{
		ModelID:     modelID,
		Confidence:  0,
		Permutation: perm,
		Mutation:    mutation,
		ParseStatus: ParseFailed,
	}
}
