package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictOriginalWinner(t *testing.T) {
	t.Run("de-maps through the applied permutation", func(t *testing.T) {
		pos := 0
		v := Verdict{
			ModelID:     "m1",
			WinnerIndex: &pos,
			Permutation: SwapFirstTwo(3),
			ParseStatus: ParseOK,
		}

		orig, ok := v.OriginalWinner()
		require.True(t, ok)
		assert.Equal(t, 1, orig, "rendered position 0 under a swap is original candidate 1")
	})

	t.Run("no winner on failed verdicts", func(t *testing.T) {
		v := FailedVerdict("m1", Identity(2), "base")
		_, ok := v.OriginalWinner()
		assert.False(t, ok)
		assert.Equal(t, ParseFailed, v.ParseStatus)
		assert.Zero(t, v.Confidence)
	})

	t.Run("out-of-range position yields no winner", func(t *testing.T) {
		pos := 5
		v := Verdict{WinnerIndex: &pos, Permutation: Identity(2)}
		_, ok := v.OriginalWinner()
		assert.False(t, ok)
	})
}

func TestOracleResponseFailed(t *testing.T) {
	assert.False(t, OracleResponse{RawText: "{}"}.Failed())
	assert.True(t, OracleResponse{Err: "timeout"}.Failed())
}

func TestDecisionStatusEscalated(t *testing.T) {
	assert.False(t, StatusAutoAccept.Escalated())
	assert.True(t, StatusEscalateTie.Escalated())
	assert.True(t, StatusEscalateLowConfidence.Escalated())
	assert.True(t, StatusEscalateParseFailure.Escalated())
}
