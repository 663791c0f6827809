package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// strictRetryInstruction is appended to the original payload for the single
// stage-three re-ask.
const strictRetryInstruction = "\n\nIMPORTANT: Respond with ONLY a strict minified JSON object. No markdown, no commentary."

// maxNameDistance is the Levenshtein tolerance when resolving a winner
// reference by candidate name.
const maxNameDistance = 2

// foldCaser folds candidate names and URLs for reference resolution.
var foldCaser = cases.Fold()

// oracleReply is the JSON shape expected from a judge oracle. Winner may
// reference the candidate by rendered position, URL, or name; unresolvable
// references are parse failures.
type oracleReply struct {
	// WinnerIndex is the 0-based rendered position of the winner.
	WinnerIndex *int `json:"winner_index"`

	// Winner optionally names the winner by URL or name when the oracle
	// ignores the positional format.
	Winner string `json:"winner,omitempty"`

	// Confidence is the oracle's self-reported confidence.
	Confidence float64 `json:"confidence"`

	// Reasoning is free text and is not interpreted.
	Reasoning string `json:"reasoning,omitempty"`
}

// parseStage is one pure step of the fallback chain: text in, reply out.
// Stages are tried in declared order until one succeeds.
type parseStage struct {
	name string
	fn   func(text string) (oracleReply, bool)
}

// VerdictParser extracts a structured Verdict from oracle free text using a
// declared, ordered fallback chain:
//
//  1. direct structured parse of the whole text,
//  2. extraction of the first balanced JSON block (fences included),
//  3. exactly one re-invocation with a strict-format instruction,
//  4. fail-safe Verdict with no winner and zero confidence.
//
// Stage 2 and 3 successes are marked ParseRecovered and preserved in the
// audit trace as evidence of oracle instability.
type VerdictParser struct {
	invoker *Invoker
	stages  []parseStage
}

// NewVerdictParser creates a parser that uses invoker for the stage-three
// re-ask.
func NewVerdictParser(invoker *Invoker) *VerdictParser {
	return &VerdictParser{
		invoker: invoker,
		stages: []parseStage{
			{name: "direct", fn: parseDirect},
			{name: "embedded", fn: parseEmbedded},
		},
	}
}

// Parse turns one oracle response into a Verdict. candidates is the
// original normalized list; perm is the order mutation used to render the
// payload. A failed invocation, an irrecoverable reply, or a winner that
// cannot be de-mapped all yield a failed Verdict, never an error.
func (p *VerdictParser) Parse(
	ctx context.Context,
	resp domain.OracleResponse,
	candidates []domain.Candidate,
	perm domain.Permutation,
	mutation string,
	payload string,
	options map[string]any,
) domain.Verdict {
	if resp.Failed() {
		return domain.FailedVerdict(resp.ModelID, perm, mutation)
	}

	reply, status, ok := p.extract(ctx, resp, payload, options)
	if !ok {
		return domain.FailedVerdict(resp.ModelID, perm, mutation)
	}

	pos, ok := resolveWinner(reply, perm.Apply(candidates))
	if !ok {
		return domain.FailedVerdict(resp.ModelID, perm, mutation)
	}
	if _, ok := perm.Demap(pos); !ok {
		return domain.FailedVerdict(resp.ModelID, perm, mutation)
	}

	return domain.Verdict{
		ModelID:     resp.ModelID,
		WinnerIndex: &pos,
		Confidence:  clampUnit(reply.Confidence),
		Permutation: perm,
		Mutation:    mutation,
		ParseStatus: status,
	}
}

// extract walks the stage chain. The pure stages run on the original text;
// if both fail, the single re-ask runs the same pure stages on a fresh
// response.
func (p *VerdictParser) extract(
	ctx context.Context,
	resp domain.OracleResponse,
	payload string,
	options map[string]any,
) (oracleReply, domain.ParseStatus, bool) {
	for i, stage := range p.stages {
		if reply, ok := stage.fn(resp.RawText); ok {
			status := domain.ParseOK
			if i > 0 {
				status = domain.ParseRecovered
			}
			return reply, status, true
		}
	}

	// Stage 3: one strict-format re-ask, bounded to exactly one extra call.
	retry := p.invoker.Invoke(ctx, resp.ModelID, payload+strictRetryInstruction, options)
	if retry.Failed() {
		return oracleReply{}, domain.ParseFailed, false
	}
	for _, stage := range p.stages {
		if reply, ok := stage.fn(retry.RawText); ok {
			return reply, domain.ParseRecovered, true
		}
	}
	return oracleReply{}, domain.ParseFailed, false
}

// parseDirect attempts a structured parse of the entire text.
func parseDirect(text string) (oracleReply, bool) {
	var reply oracleReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reply); err != nil {
		return oracleReply{}, false
	}
	return reply, reply.WinnerIndex != nil || reply.Winner != ""
}

// parseEmbedded extracts the first balanced JSON object from text that may
// contain surrounding prose or markdown fences, then parses it.
func parseEmbedded(text string) (oracleReply, bool) {
	block := extractJSONBlock(text)
	if block == "" {
		return oracleReply{}, false
	}
	return parseDirect(block)
}

// extractJSONBlock locates the first balanced {...} block, preferring the
// contents of a ```json fence when present. Braces inside strings are
// ignored while matching.
func extractJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// resolveWinner maps the oracle's winner reference to a rendered position.
// Resolution order: positional index, exact case-folded URL, exact
// case-folded name, then the closest name within a small edit distance.
func resolveWinner(reply oracleReply, rendered []domain.Candidate) (int, bool) {
	if reply.WinnerIndex != nil {
		pos := *reply.WinnerIndex
		if pos < 0 || pos >= len(rendered) {
			return 0, false
		}
		return pos, true
	}

	ref := strings.TrimSpace(reply.Winner)
	if ref == "" {
		return 0, false
	}

	// Some oracles echo the position as a bare number.
	if pos, err := strconv.Atoi(ref); err == nil {
		if pos >= 0 && pos < len(rendered) {
			return pos, true
		}
		return 0, false
	}

	folded := foldCaser.String(ref)
	for pos, c := range rendered {
		if c.URL != "" && foldCaser.String(c.URL) == folded {
			return pos, true
		}
	}
	for pos, c := range rendered {
		if c.Name != "" && foldCaser.String(c.Name) == folded {
			return pos, true
		}
	}

	// Fuzzy matching needs names longer than the tolerance, otherwise a
	// couple of edits can rewrite a short reference into any candidate.
	if utf8.RuneCountInString(folded) <= maxNameDistance {
		return 0, false
	}
	bestPos, bestDist := -1, maxNameDistance+1
	for pos, c := range rendered {
		if c.Name == "" || utf8.RuneCountInString(c.Name) <= maxNameDistance {
			continue
		}
		dist := levenshtein.ComputeDistance(foldCaser.String(c.Name), folded)
		if dist < bestDist {
			bestPos, bestDist = pos, dist
		}
	}
	if bestPos >= 0 {
		return bestPos, true
	}
	return 0, false
}

// clampUnit bounds a confidence value to [0, 1].
func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
