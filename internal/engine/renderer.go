package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// defaultJudgeTemplate is the structured judge query. The entire candidate
// list is always embedded; only worker notes are subject to a byte cap.
const defaultJudgeTemplate = `You are an impartial judge selecting the single best candidate for a research brief.

RESEARCH BRIEF:
{{.Brief}}

CANDIDATES (JSON, positions are 0-based):
{{.CandidatesJSON}}

WORKER NOTES:
{{.Notes}}

Evaluation aspect: {{.Aspect}}

Respond with valid JSON in exactly this format:
{"winner_index": <0-based position of the best candidate>, "confidence": <0.0-1.0>, "reasoning": "<one short paragraph>"}`

// renderedCandidate is the shape each candidate takes inside the prompt.
// It deliberately exposes the display position, never the stable index, so
// an oracle cannot anchor on identity instead of content.
type renderedCandidate struct {
	Position  int    `json:"position"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Rationale string `json:"rationale"`
}

// PromptRenderer serializes a JudgeRequest plus an explicit order mutation
// into a judge query. Rendering is deterministic for a given request and
// permutation, which keeps shuffle runs reproducible for auditing.
type PromptRenderer struct {
	tmpl           *template.Template
	rubric         string
	notesByteLimit int
}

// NewPromptRenderer builds a renderer from the evaluation configuration.
// The template is compiled once so malformed templates fail at construction.
func NewPromptRenderer(cfg EvaluationConfig) (*PromptRenderer, error) {
	tmpl, err := template.New("judgePrompt").Parse(defaultJudgeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse judge prompt template: %w", err)
	}
	return &PromptRenderer{
		tmpl:           tmpl,
		rubric:         cfg.Rubric,
		notesByteLimit: cfg.NotesByteLimit,
	}, nil
}

// Render produces the judge payload for req with candidates reordered by
// perm. The full candidate list is embedded untruncated; worker notes are
// capped at the configured byte budget with the optional rubric injected
// ahead of them.
func (r *PromptRenderer) Render(req domain.JudgeRequest, perm domain.Permutation) (string, error) {
	if err := perm.Validate(len(req.Candidates)); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	ordered := perm.Apply(req.Candidates)
	rendered := make([]renderedCandidate, len(ordered))
	for pos, c := range ordered {
		rendered[pos] = renderedCandidate{
			Position:  pos,
			Name:      c.Name,
			URL:       c.URL,
			Rationale: c.Rationale,
		}
	}

	candidatesJSON, err := json.Marshal(rendered)
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	aspect := req.Aspect
	if aspect == "" {
		aspect = domain.AspectDefault
	}

	var buf bytes.Buffer
	data := struct {
		Brief          string
		CandidatesJSON string
		Notes          string
		Aspect         domain.Aspect
	}{
		Brief:          req.Brief,
		CandidatesJSON: string(candidatesJSON),
		Notes:          r.composeNotes(req.WorkerNotes),
		Aspect:         aspect,
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute judge prompt template: %w", err)
	}
	return buf.String(), nil
}

// composeNotes injects the rubric and applies the notes byte cap.
// Truncation backs up to a rune boundary so the prompt stays valid UTF-8.
func (r *PromptRenderer) composeNotes(notes string) string {
	if r.rubric != "" {
		notes = "[RUBRIC]\n" + r.rubric + "\n[/RUBRIC]\n" + notes
	}
	if r.notesByteLimit > 0 && len(notes) > r.notesByteLimit {
		cut := r.notesByteLimit
		for cut > 0 && !utf8.RuneStart(notes[cut]) {
			cut--
		}
		notes = notes[:cut]
	}
	return notes
}
