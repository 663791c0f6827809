// Package engine implements the candidate judging engine: prompt rendering,
// oracle invocation, verdict parsing, committee and router evaluation,
// position-bias diagnostics, and final decision arbitration.
package engine

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tribunal-ai/tribunal/internal/domain"
)

// Mode selects the judging strategy for a cycle.
type Mode string

const (
	// ModeCommittee runs the full oracle pool and combines verdicts by
	// simple majority vote.
	ModeCommittee Mode = "committee"

	// ModeRouter selects a single oracle per aspect by cost and gating
	// policy.
	ModeRouter Mode = "router"
)

// Default configuration values, carried over from the original deployment.
const (
	DefaultPauseThreshold       = 0.60
	DefaultDeltaThreshold       = 0.08
	DefaultAutopassConfidence   = 0.75
	DefaultSelfConsistencyRuns  = 2
	DefaultMaxTokens            = 2048
	DefaultMaxConcurrency       = 5
	DefaultNotesByteLimit       = 12000
	DefaultFlipAlarmThreshold   = 0.20
	DefaultInvokerMaxRetries    = 2
	DefaultInvokerTimeoutSecs   = 60
	DefaultInvokerBackoffMillis = 500
)

// RouterModel is one entry of the router pool with its relative cost weight.
// Declaration order matters: cost ties are broken by the first listed model.
type RouterModel struct {
	// ID is the oracle model identifier.
	ID string `yaml:"id" json:"id" validate:"required"`

	// CostWeight is the relative cost of invoking this model.
	CostWeight float64 `yaml:"cost_weight" json:"cost_weight" validate:"gt=0"`
}

// CalibrationProbe is an optional pre-flight sanity check: a tiny candidate
// set with a known correct winner. A failed probe escalates the cycle
// instead of trusting an oracle that cannot answer the obvious.
type CalibrationProbe struct {
	Candidates     []domain.Candidate `yaml:"candidates" json:"candidates" validate:"min=2"`
	ExpectedWinner int                `yaml:"expected_winner" json:"expected_winner" validate:"min=0"`
}

// EvaluationConfig is the complete, immutable configuration for one judging
// cycle. It is constructed once, validated at load time, and passed by value
// into every component; nothing reads environment state afterwards.
type EvaluationConfig struct {
	// Mode selects committee or router judging.
	Mode Mode `yaml:"mode" json:"mode" validate:"required,oneof=committee router"`

	// CommitteeModels is the oracle pool for committee mode.
	CommitteeModels []string `yaml:"committee_models" json:"committee_models" validate:"dive,min=1"`

	// RouterModels is the oracle pool for router mode, with cost weights.
	RouterModels []RouterModel `yaml:"router_models" json:"router_models" validate:"dive"`

	// AspectGates optionally shortlists router models per aspect. Every
	// gate entry must name a model present in RouterModels.
	AspectGates map[domain.Aspect][]string `yaml:"aspect_gates" json:"aspect_gates"`

	// EnableSwap turns on the swap-first-two bias mitigation probe.
	EnableSwap bool `yaml:"enable_swap" json:"enable_swap"`

	// EnableSelfConsistency repeats each evaluation with independently
	// shuffled candidate order.
	EnableSelfConsistency bool `yaml:"enable_self_consistency" json:"enable_self_consistency"`

	// SelfConsistencyRuns is the repetition count when self-consistency
	// is enabled.
	SelfConsistencyRuns int `yaml:"self_consistency_runs" json:"self_consistency_runs" validate:"min=1,max=16"`

	// ShuffleSeed anchors the deterministic shuffle sequence so a cycle
	// can be replayed for audit. Zero means the engine picks one.
	ShuffleSeed uint64 `yaml:"shuffle_seed" json:"shuffle_seed"`

	// PauseThreshold escalates when the winner's mean confidence falls
	// below it.
	PauseThreshold float64 `yaml:"pause_threshold" json:"pause_threshold" validate:"min=0,max=1"`

	// DeltaThreshold escalates when the normalized vote margin between
	// the top two candidates falls below it.
	DeltaThreshold float64 `yaml:"delta_threshold" json:"delta_threshold" validate:"min=0,max=1"`

	// MinConfidenceForAutopass is the bar for an unreserved autopass.
	// A winner below it that clears the pause and delta gates is still
	// accepted; the bar never escalates on its own.
	MinConfidenceForAutopass float64 `yaml:"min_confidence_for_autopass" json:"min_confidence_for_autopass" validate:"min=0,max=1"`

	// MaxTokens caps oracle reply length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=1"`

	// Temperature is passed to every oracle call; judging wants
	// deterministic output, so it defaults to zero.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=1"`

	// MaxConcurrency bounds simultaneous outstanding oracle calls.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=1,max=64"`

	// Rubric, when set, is injected ahead of the worker notes inside
	// [RUBRIC] markers.
	Rubric string `yaml:"rubric" json:"rubric"`

	// NotesByteLimit caps worker notes in the rendered prompt.
	// Candidates are never truncated, only notes.
	NotesByteLimit int `yaml:"notes_byte_limit" json:"notes_byte_limit" validate:"min=0"`

	// FlipAlarmThreshold raises the BiasReport alarm when the measured
	// position-bias rate meets or exceeds it.
	FlipAlarmThreshold float64 `yaml:"flip_alarm_threshold" json:"flip_alarm_threshold" validate:"min=0,max=1"`

	// Calibration, when non-nil and enabled, runs a pre-flight probe
	// with a known winner before the live evaluation.
	Calibration *CalibrationProbe `yaml:"calibration" json:"calibration,omitempty"`

	// Invoker tunes retry and timeout behavior for oracle calls.
	Invoker InvokerConfig `yaml:"invoker" json:"invoker"`
}

// InvokerConfig controls per-call resilience of the oracle invoker.
type InvokerConfig struct {
	// MaxRetries is the number of additional attempts after the first
	// failed transient call.
	MaxRetries int `yaml:"max_retries" json:"max_retries" validate:"min=0,max=5"`

	// TimeoutSeconds is the per-call deadline. A timeout is recorded on
	// the response, never propagated as a panic or cycle abort.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=1,max=600"`

	// BackoffMillis is the base delay for exponential retry backoff.
	BackoffMillis int `yaml:"backoff_ms" json:"backoff_ms" validate:"min=0,max=60000"`
}

// DefaultConfig returns an EvaluationConfig with the original deployment
// defaults: committee mode off the shelf is left to the caller, thresholds
// and budgets match the source system.
func DefaultConfig() EvaluationConfig {
	return EvaluationConfig{
		Mode:                     ModeCommittee,
		EnableSwap:               true,
		EnableSelfConsistency:    false,
		SelfConsistencyRuns:      DefaultSelfConsistencyRuns,
		PauseThreshold:           DefaultPauseThreshold,
		DeltaThreshold:           DefaultDeltaThreshold,
		MinConfidenceForAutopass: DefaultAutopassConfidence,
		MaxTokens:                DefaultMaxTokens,
		Temperature:              0,
		MaxConcurrency:           DefaultMaxConcurrency,
		NotesByteLimit:           DefaultNotesByteLimit,
		FlipAlarmThreshold:       DefaultFlipAlarmThreshold,
		Invoker: InvokerConfig{
			MaxRetries:     DefaultInvokerMaxRetries,
			TimeoutSeconds: DefaultInvokerTimeoutSecs,
			BackoffMillis:  DefaultInvokerBackoffMillis,
		},
	}
}

// validate is the package-level struct validator shared by config loading.
var validate = validator.New()

// LoadConfig reads and validates an EvaluationConfig from a YAML file.
// Missing fields inherit DefaultConfig values.
func LoadConfig(path string) (EvaluationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EvaluationConfig{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes over DefaultConfig and validates the
// result. Any structural problem fails fast before an oracle is invoked.
func ParseConfig(data []byte) (EvaluationConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EvaluationConfig{}, domain.NewConfigError("yaml", err)
	}
	if err := cfg.Validate(); err != nil {
		return EvaluationConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and mode consistency: the pool for the
// active mode must be non-empty, gate entries must reference router pool
// models, and a committee cycle must not be asked to route.
func (c EvaluationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return domain.NewConfigError("struct", err)
	}

	switch c.Mode {
	case ModeCommittee:
		if len(c.CommitteeModels) == 0 {
			return domain.NewConfigError("committee_models",
				fmt.Errorf("committee mode requires a non-empty model pool"))
		}
		if len(c.AspectGates) > 0 {
			return domain.NewConfigError("aspect_gates",
				fmt.Errorf("aspect gates only apply to router mode"))
		}
	case ModeRouter:
		if len(c.RouterModels) == 0 {
			return domain.NewConfigError("router_models",
				fmt.Errorf("router mode requires a non-empty model pool"))
		}
		pool := make(map[string]struct{}, len(c.RouterModels))
		for _, m := range c.RouterModels {
			pool[m.ID] = struct{}{}
		}
		for aspect, gate := range c.AspectGates {
			if !aspect.Valid() {
				return domain.NewConfigError("aspect_gates",
					fmt.Errorf("unknown aspect %q", aspect))
			}
			if len(gate) == 0 {
				return domain.NewConfigError("aspect_gates",
					fmt.Errorf("aspect %q has an empty gate", aspect))
			}
			for _, id := range gate {
				if _, ok := pool[id]; !ok {
					return domain.NewConfigError("aspect_gates",
						fmt.Errorf("aspect %q gates unknown model %q", aspect, id))
				}
			}
		}
	}

	if c.Calibration != nil {
		if c.Calibration.ExpectedWinner >= len(c.Calibration.Candidates) {
			return domain.NewConfigError("calibration",
				fmt.Errorf("expected winner %d out of range for %d candidates",
					c.Calibration.ExpectedWinner, len(c.Calibration.Candidates)))
		}
	}
	return nil
}

// activePool returns the model ids the configured mode draws from.
func (c EvaluationConfig) activePool() []string {
	if c.Mode == ModeRouter {
		ids := make([]string, len(c.RouterModels))
		for i, m := range c.RouterModels {
			ids[i] = m.ID
		}
		return ids
	}
	return c.CommitteeModels
}
