package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/testutils"
)

// committeeFixture wires a committee evaluator over scripted oracles.
// Each entry of responses maps a model id to its constant reply.
func committeeFixture(t *testing.T, cfg EvaluationConfig, responses map[string]string) *CommitteeEvaluator {
	t.Helper()

	registry := testutils.NewMockRegistry()
	for model, response := range responses {
		registry.Register(model, testutils.NewScriptedOracle(model, response))
	}

	renderer, err := NewPromptRenderer(cfg)
	require.NoError(t, err)
	invoker := NewInvoker(registry, cfg.Invoker, nil)
	parser := NewVerdictParser(invoker)
	return NewCommitteeEvaluator(cfg, renderer, invoker, parser)
}

func reply(pos int, conf float64) string {
	return fmt.Sprintf(`{"winner_index": %d, "confidence": %.2f, "reasoning": "scripted"}`, pos, conf)
}

func TestCommitteeEvaluatorMajority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSwap = false
	cfg.CommitteeModels = []string{"m1", "m2", "m3"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	eval := committeeFixture(t, cfg, map[string]string{
		"m1": reply(0, 0.9),
		"m2": reply(0, 0.8),
		"m3": reply(1, 0.7),
	})

	tally, verdicts, err := eval.Evaluate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, verdicts, 3, "one verdict per committee member")

	winner, ok := tally.Winner()
	require.True(t, ok)
	assert.Equal(t, 0, winner)
	assert.Equal(t, 2, tally[0].Votes)
	assert.Equal(t, 1, tally[1].Votes)
	assert.InDelta(t, 0.85, tally.MeanConfidence(0), 1e-9)
}

func TestCommitteeEvaluatorTie(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSwap = false
	cfg.CommitteeModels = []string{"m1", "m2", "m3", "m4"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	eval := committeeFixture(t, cfg, map[string]string{
		"m1": reply(0, 0.9),
		"m2": reply(0, 0.9),
		"m3": reply(1, 0.9),
		"m4": reply(1, 0.9),
	})

	tally, _, err := eval.Evaluate(context.Background(), testRequest())
	require.NoError(t, err)

	_, ok := tally.Winner()
	assert.False(t, ok, "a 2-2 split has no unique winner")
	assert.Equal(t, []int{0, 1}, tally.Leaders())
}

func TestCommitteeEvaluatorSwapDemapsVotes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSwap = true
	cfg.CommitteeModels = []string{"m1"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	// The oracle always answers position 0. Under the base order that is
	// candidate 0; under the swapped order it is candidate 1. A position-
	// anchored oracle therefore splits its own votes.
	eval := committeeFixture(t, cfg, map[string]string{"m1": reply(0, 0.9)})

	tally, verdicts, err := eval.Evaluate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, verdicts, 2, "base run plus swap run")

	assert.Equal(t, 1, tally[0].Votes)
	assert.Equal(t, 1, tally[1].Votes)

	mutations := map[string]bool{}
	for _, v := range verdicts {
		mutations[v.Mutation] = true
	}
	assert.True(t, mutations["base"])
	assert.True(t, mutations["swap"])
}

func TestCommitteeEvaluatorFailedOracleIsContained(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSwap = false
	cfg.CommitteeModels = []string{"m1", "m2"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	registry := testutils.NewMockRegistry()
	registry.Register("m1", testutils.NewScriptedOracle("m1", reply(1, 0.8)))
	// m2 is absent from the registry, so its invocation fails outright.

	renderer, err := NewPromptRenderer(cfg)
	require.NoError(t, err)
	invoker := NewInvoker(registry, cfg.Invoker, nil)
	eval := NewCommitteeEvaluator(cfg, renderer, invoker, NewVerdictParser(invoker))

	tally, verdicts, err := eval.Evaluate(context.Background(), testRequest())
	require.NoError(t, err, "a failed member must not abort the committee")
	require.Len(t, verdicts, 2)

	failed := 0
	for _, v := range verdicts {
		if v.ParseStatus == domain.ParseFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, tally.TotalVotes(), "only m1's vote counts")
}

func TestCommitteeEvaluatorSelfConsistency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableSwap = false
	cfg.EnableSelfConsistency = true
	cfg.SelfConsistencyRuns = 3
	cfg.ShuffleSeed = 99
	cfg.CommitteeModels = []string{"m1"}
	cfg.Invoker = InvokerConfig{MaxRetries: 0, TimeoutSeconds: 5}

	eval := committeeFixture(t, cfg, map[string]string{"m1": reply(0, 0.9)})

	_, verdicts, err := eval.Evaluate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, verdicts, 3, "one run per self-consistency repetition")

	// Each repetition uses its own deterministic shuffle.
	for _, v := range verdicts {
		require.NoError(t, v.Permutation.Validate(3))
	}
}
