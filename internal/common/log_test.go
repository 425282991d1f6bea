package common

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingHandlerRecordsComponentAndAttributes(t *testing.T) {
	local := newLogSink(10)
	var buf bytes.Buffer
	handler := &capturingHandler{handler: slog.NewTextHandler(&buf, nil), sink: local}
	log := slog.New(handler)

	log.Info("agent: question answered", "rows", 2, "error", errors.New("boom"))

	entries := local.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "agent", entries[0].Component)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, int64(2), entries[0].Attributes["rows"])
	assert.Equal(t, "boom", entries[0].Attributes["error"])
	assert.Contains(t, buf.String(), "question answered")
}

func TestCapturingHandlerKeepsWithAttrs(t *testing.T) {
	local := newLogSink(10)
	handler := &capturingHandler{handler: slog.NewTextHandler(&bytes.Buffer{}, nil), sink: local}
	log := slog.New(handler).With("component", "sqlite")

	log.Warn("load stopped")

	entries := local.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "sqlite", entries[0].Component)
	assert.Equal(t, "warn", entries[0].Level)
}

func TestLogSinkTrimsHistory(t *testing.T) {
	local := newLogSink(2)
	handler := &capturingHandler{handler: slog.NewTextHandler(&bytes.Buffer{}, nil), sink: local}
	log := slog.New(handler)
	log.Info("one")
	log.Info("two")
	log.Info("three")

	entries := local.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, slog.LevelDebug, levelFromEnv())
	t.Setenv("LOG_LEVEL", "warning")
	assert.Equal(t, slog.LevelWarn, levelFromEnv())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, levelFromEnv())
}
