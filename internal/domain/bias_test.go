package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestSwapPair(t *testing.T) {
	assert.True(t, SwapPair{BaseWinner: intp(0), SwapWinner: intp(1)}.Flipped())
	assert.False(t, SwapPair{BaseWinner: intp(1), SwapWinner: intp(1)}.Flipped())
	assert.False(t, SwapPair{BaseWinner: intp(0)}.Counted(), "missing swap side is not counted")
	assert.False(t, SwapPair{SwapWinner: intp(0)}.Counted(), "missing base side is not counted")
}

func TestComputeBiasReport(t *testing.T) {
	t.Run("rate is flips over counted pairs", func(t *testing.T) {
		perModel := map[string][]SwapPair{
			"m1": {
				{BaseWinner: intp(0), SwapWinner: intp(1)},
				{BaseWinner: intp(0), SwapWinner: intp(0)},
				{BaseWinner: intp(1), SwapWinner: intp(1)},
				{BaseWinner: intp(2), SwapWinner: intp(0)},
			},
			"m2": {
				{BaseWinner: intp(0), SwapWinner: intp(0)},
				{BaseWinner: intp(1), SwapWinner: intp(0)},
				{BaseWinner: intp(2), SwapWinner: intp(2)},
				{BaseWinner: intp(0), SwapWinner: intp(0)},
				{BaseWinner: intp(1), SwapWinner: intp(1)},
				{BaseWinner: intp(2), SwapWinner: intp(2)},
			},
		}

		report := ComputeBiasReport("run-1", perModel, 0.20)
		assert.Equal(t, "run-1", report.RunID)
		assert.Equal(t, 10, report.SwapTotal)
		assert.Equal(t, 3, report.SwapFlips)
		require.NotNil(t, report.PositionBiasRate)
		assert.InDelta(t, 0.3, *report.PositionBiasRate, 1e-9)
		assert.True(t, report.Alarm, "0.3 meets the 0.2 alarm threshold")
	})

	t.Run("pairs with a failed side are recorded but not counted", func(t *testing.T) {
		perModel := map[string][]SwapPair{
			"m1": {
				{BaseWinner: intp(0), SwapWinner: nil},
				{BaseWinner: nil, SwapWinner: intp(1)},
				{BaseWinner: intp(0), SwapWinner: intp(0)},
			},
		}

		report := ComputeBiasReport("run-2", perModel, 0.20)
		assert.Equal(t, 1, report.SwapTotal)
		assert.Equal(t, 0, report.SwapFlips)
		require.NotNil(t, report.PositionBiasRate)
		assert.Zero(t, *report.PositionBiasRate)
		assert.False(t, report.Alarm)
		assert.Len(t, report.PerModel["m1"], 3, "raw pairs stay in the report")
	})

	t.Run("rate is nil when nothing could be counted", func(t *testing.T) {
		report := ComputeBiasReport("run-3", map[string][]SwapPair{
			"m1": {{BaseWinner: nil, SwapWinner: nil}},
		}, 0.20)

		assert.Nil(t, report.PositionBiasRate, "undefined rate must be nil, not zero")
		assert.False(t, report.Alarm)
	})

	t.Run("non-positive threshold disables the alarm", func(t *testing.T) {
		report := ComputeBiasReport("run-4", map[string][]SwapPair{
			"m1": {{BaseWinner: intp(0), SwapWinner: intp(1)}},
		}, 0)

		require.NotNil(t, report.PositionBiasRate)
		assert.InDelta(t, 1.0, *report.PositionBiasRate, 1e-9)
		assert.False(t, report.Alarm)
	})
}
