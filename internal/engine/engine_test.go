package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/testutils"
)

// recordingSink captures audit events for assertion.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	cycles map[string]struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{cycles: make(map[string]struct{})}
}

func (s *recordingSink) Event(cycleID, name string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	s.cycles[cycleID] = struct{}{}
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

func engineConfig() EvaluationConfig {
	cfg := DefaultConfig()
	cfg.EnableSwap = false
	cfg.CommitteeModels = []string{"m1", "m2", "m3"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}
	return cfg
}

func unanimousRegistry() *testutils.MockRegistry {
	registry := testutils.NewMockRegistry()
	for _, m := range []string{"m1", "m2", "m3"} {
		registry.Register(m, testutils.NewScriptedOracle(m, reply(0, 0.95)))
	}
	return registry
}

func TestEngineNew(t *testing.T) {
	t.Run("rejects a nil registry", func(t *testing.T) {
		_, err := New(engineConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("rejects an invalid config before any oracle call", func(t *testing.T) {
		cfg := engineConfig()
		cfg.CommitteeModels = nil
		_, err := New(cfg, unanimousRegistry())
		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestEngineJudge(t *testing.T) {
	t.Run("unanimous committee auto-accepts", func(t *testing.T) {
		sink := newRecordingSink()
		eng, err := New(engineConfig(), unanimousRegistry(), WithAuditSink(sink))
		require.NoError(t, err)

		decision, err := eng.Judge(context.Background(), testRequest())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusAutoAccept, decision.Status)
		require.NotNil(t, decision.WinnerIndex)
		assert.Equal(t, 0, *decision.WinnerIndex)
		assert.NotEmpty(t, decision.CycleID)
		assert.Len(t, decision.Evidence, 3)

		names := sink.names()
		assert.Contains(t, names, "judge_init")
		assert.Contains(t, names, "judge_votes")
		assert.Contains(t, names, "judge_final")
	})

	t.Run("candidates are normalized before judging", func(t *testing.T) {
		eng, err := New(engineConfig(), unanimousRegistry())
		require.NoError(t, err)

		req := testRequest()
		// Duplicate of the first candidate by case-folded URL.
		req.Candidates = append(req.Candidates, domain.Candidate{
			Name: "go.dev copy", URL: "HTTPS://GO.DEV/DOC",
		})

		decision, err := eng.Judge(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, decision.Ranking, 3, "the duplicate must be dropped")
	})

	t.Run("empty candidate list fails fast", func(t *testing.T) {
		eng, err := New(engineConfig(), unanimousRegistry())
		require.NoError(t, err)

		_, err = eng.Judge(context.Background(), domain.JudgeRequest{Brief: "b"})
		assert.ErrorIs(t, err, domain.ErrNoCandidates)
	})

	t.Run("distinct cycles get distinct ids", func(t *testing.T) {
		eng, err := New(engineConfig(), unanimousRegistry())
		require.NoError(t, err)

		a, err := eng.Judge(context.Background(), testRequest())
		require.NoError(t, err)
		b, err := eng.Judge(context.Background(), testRequest())
		require.NoError(t, err)
		assert.NotEqual(t, a.CycleID, b.CycleID)
	})
}

func TestEngineCalibration(t *testing.T) {
	calibrated := func(expected int) EvaluationConfig {
		cfg := engineConfig()
		cfg.Calibration = &CalibrationProbe{
			Candidates: []domain.Candidate{
				{Name: "official docs", URL: "https://docs.example"},
				{Name: "random forum", URL: "https://forum.example"},
			},
			ExpectedWinner: expected,
		}
		return cfg
	}

	t.Run("passing probe proceeds to the live evaluation", func(t *testing.T) {
		// Every scripted oracle answers position 0, matching the probe.
		eng, err := New(calibrated(0), unanimousRegistry())
		require.NoError(t, err)

		decision, err := eng.Judge(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAutoAccept, decision.Status)
	})

	t.Run("failing probe escalates without a live evaluation", func(t *testing.T) {
		sink := newRecordingSink()
		eng, err := New(calibrated(1), unanimousRegistry(), WithAuditSink(sink))
		require.NoError(t, err)

		decision, err := eng.Judge(context.Background(), testRequest())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusEscalateLowConfidence, decision.Status)
		assert.Nil(t, decision.WinnerIndex)
		assert.Contains(t, sink.names(), "judge_calibration")
		assert.NotContains(t, sink.names(), "judge_votes",
			"a failed probe must short-circuit the evaluation")
	})
}

func TestEngineMeasureBias(t *testing.T) {
	registry := testutils.NewMockRegistry()
	for _, m := range []string{"m1", "m2", "m3"} {
		registry.Register(m, testutils.NewScriptedOracle(m, `{"winner_index": 0, "confidence": 0.9}`))
	}

	eng, err := New(engineConfig(), registry)
	require.NoError(t, err)

	t.Run("empty pool defaults to the active mode's pool", func(t *testing.T) {
		report, err := eng.MeasureBias(context.Background(), testRequest(), nil)
		require.NoError(t, err)

		assert.Equal(t, 3, report.SwapTotal, "one pair per committee model")
		assert.Equal(t, 3, report.SwapFlips, "position-anchored oracles always flip")
		require.NotNil(t, report.PositionBiasRate)
		assert.InDelta(t, 1.0, *report.PositionBiasRate, 1e-9)
		assert.True(t, report.Alarm)
	})

	t.Run("explicit pool restricts the probes", func(t *testing.T) {
		report, err := eng.MeasureBias(context.Background(), testRequest(), []string{"m1"})
		require.NoError(t, err)
		assert.Equal(t, 1, report.SwapTotal)
	})
}
