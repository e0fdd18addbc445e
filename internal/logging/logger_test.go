package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("record added", "category", "IT")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "record added", entry["msg"])
	assert.Equal(t, "IT", entry["category"])
	assert.Len(t, entry["run"], 36)
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "warn", "text").Warn("failed to save category")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "run=")
}
