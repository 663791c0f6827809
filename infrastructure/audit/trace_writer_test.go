package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSinkEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewZapSink(zap.New(core))

	sink.Event("cycle-42", "judge_final", map[string]any{"status": "auto_accept"})

	entries := logs.All()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "judge_final", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "cycle-42", fields["cycle_id"])
	assert.Equal(t, "judge_final", fields["event"])
	require.Contains(t, fields, "payload")
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	sink, closeSink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.Event("cycle-1", "judge_init", map[string]any{"candidates_count": 3})
	sink.Event("cycle-1", "judge_final", map[string]any{"status": "escalate_tie"})
	_ = closeSink()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "one JSON line per event")

	for _, line := range lines {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		assert.Equal(t, "cycle-1", record["cycle_id"])
		assert.Contains(t, record, "ts")
		assert.Contains(t, record, "payload")
	}
}
