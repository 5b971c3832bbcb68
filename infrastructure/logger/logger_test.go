package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return Wrap(zap.New(core)), logs
}

func TestLogEventUsesSchemaLevel(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.LogEvent("fetch_error", map[string]interface{}{"tick": 1, "error": "boom"})
	l.LogEvent("batch_applied", map[string]interface{}{"tick": 2, "rows": 1, "applied": 1})
	l.LogEvent("store_unavailable", map[string]interface{}{"reason": "no worker"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "fetch_error", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "fetch_error", entries[0].ContextMap()["event"])
	_, bad := entries[0].ContextMap()["schema_error"]
	assert.False(t, bad)
}

func TestLogEventFlagsMissingFields(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	fields := map[string]interface{}{"session": "s1"}
	l.LogEvent("stream_started", fields)
	entry := logs.All()[0]
	msg, ok := entry.ContextMap()["schema_error"].(string)
	require.True(t, ok)
	assert.Contains(t, msg, "maxTicks")
	_, mutated := fields["event"]
	assert.False(t, mutated, "caller fields must not be modified")
}

func TestLogError(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)
	l.LogError(errors.New("apply failed"), map[string]interface{}{"tick": 4})
	entry := logs.All()[0]
	assert.Equal(t, "error_event", entry.Message)
	assert.Equal(t, "apply failed", entry.ContextMap()["error"])
	assert.EqualValues(t, 4, entry.ContextMap()["tick"])
}

func TestSetLevel(t *testing.T) {
	l, err := New(Config{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	assert.Error(t, l.SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestFileOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:      "info",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "app.log"),
		ErrorFile:  filepath.Join(dir, "errors.log"),
		Format:     "json",
	}
	l, err := New(cfg)
	require.NoError(t, err)
	l.LogEvent("graph_visible", map[string]interface{}{"tick": 1})
	l.LogEvent("store_unavailable", map[string]interface{}{"reason": "runtime unavailable"})
	require.NoError(t, l.Close())

	all, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(all), "\n"))
	errs, err := os.ReadFile(cfg.ErrorFile)
	require.NoError(t, err)
	assert.Contains(t, string(errs), "store_unavailable")
	assert.NotContains(t, string(errs), "graph_visible")
}
