package logger

import (
	"context"
	"path/filepath"
	"testing"

	"gpuprices/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	prev := Log
	core, logs := observer.New(lvl)
	setLogger(zap.New(core))
	t.Cleanup(func() { setLogger(prev) })
	return logs
}

func TestCtxHelpers_PrefixTraceID(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	ctx := WithTraceID(context.Background(), "req-42")
	InfoCtx(ctx, "ingested %d records", 3)
	WarnCtx(context.Background(), "no trace")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42\tingested 3 records", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "0\tno trace", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestLevelFiltering(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	Debugf("hidden")
	Infof("hidden")
	Errorf("shown %s", "error")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "0\tshown error", entries[0].Message)
}

func TestWarn_AddsTraceField(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	Warn("lock disabled", zap.String("key", "collector"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "0", fields["trace_id"])
	assert.Equal(t, "collector", fields["key"])
}

func TestTraceID(t *testing.T) {
	assert.Equal(t, "0", TraceID(nil))
	assert.Equal(t, "0", TraceID(WithTraceID(context.Background(), "")))
	assert.Equal(t, "abc", TraceID(WithTraceID(nil, "abc")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestInit_FileOutput(t *testing.T) {
	prev := Log
	t.Cleanup(func() { setLogger(prev) })

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(config.LoggerConfig{
		Level:  "info",
		Output: "file",
		File:   config.LoggerFileConfig{Path: path},
	}))
	Infof("written to %s", "file")
	require.NoError(t, Sync())
	assert.FileExists(t, path)
}
