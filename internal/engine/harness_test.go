package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-ai/tribunal/internal/testutils"
)

func newHarness(t *testing.T, registry *testutils.MockRegistry) *BiasHarness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CommitteeModels = []string{"steady", "biased"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	renderer, err := NewPromptRenderer(cfg)
	require.NoError(t, err)
	invoker := NewInvoker(registry, cfg.Invoker, nil)
	return NewBiasHarness(cfg, renderer, invoker, NewVerdictParser(invoker), nil)
}

func TestBiasHarnessMeasure(t *testing.T) {
	t.Run("position-anchored oracles flip, content-anchored ones do not", func(t *testing.T) {
		registry := testutils.NewMockRegistry()
		// "steady" picks by URL, so the swap does not move its vote.
		registry.Register("steady", testutils.NewScriptedOracle("steady",
			`{"winner": "https://go.dev/doc", "confidence": 0.9}`))
		// "biased" always answers position 0, so the swap flips it.
		registry.Register("biased", testutils.NewScriptedOracle("biased",
			`{"winner_index": 0, "confidence": 0.9}`))

		h := newHarness(t, registry)
		report, err := h.Measure(context.Background(), "run-1", testRequest(),
			[]string{"steady", "biased"})
		require.NoError(t, err)

		assert.Equal(t, "run-1", report.RunID)
		assert.Equal(t, 2, report.SwapTotal)
		assert.Equal(t, 1, report.SwapFlips)
		require.NotNil(t, report.PositionBiasRate)
		assert.InDelta(t, 0.5, *report.PositionBiasRate, 1e-9)
		assert.True(t, report.Alarm, "0.5 exceeds the 0.2 default alarm threshold")

		require.Len(t, report.PerModel["biased"], 1)
		pair := report.PerModel["biased"][0]
		require.True(t, pair.Counted())
		assert.Equal(t, 0, *pair.BaseWinner)
		assert.Equal(t, 1, *pair.SwapWinner)
	})

	t.Run("a failed side excludes the pair from the rate", func(t *testing.T) {
		registry := testutils.NewMockRegistry()
		// First call (whichever probe wins the race) parses; the second
		// returns garbage twice, so its pair side is nil.
		registry.Register("flaky", testutils.NewScriptedOracle("flaky",
			"not json at all", "still not json", "nope"))

		h := newHarness(t, registry)
		report, err := h.Measure(context.Background(), "run-2", testRequest(),
			[]string{"flaky"})
		require.NoError(t, err)

		assert.Zero(t, report.SwapTotal)
		assert.Nil(t, report.PositionBiasRate, "no counted pairs means an undefined rate")
		assert.False(t, report.Alarm)
		assert.Len(t, report.PerModel["flaky"], 1, "the pair itself is still recorded")
	})
}
