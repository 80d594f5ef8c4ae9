package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop, OrNop(nil))

	z := NewZap(zap.NewNop())
	assert.Equal(t, Logger(z), OrNop(z))

	// Must not panic.
	Nop.Debug("x", "k", 1)
	Nop.Info("x")
	Nop.Error("x")
}

func TestZap_KeysAndValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZap(zap.New(core))

	l.Debug("frame sent", "seq", 3, "len", 12)
	l.With("port", "/dev/ttyACM0").Info("connected")
	l.Error("failed", "err", "boom")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "frame sent", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["seq"])
	assert.Equal(t, "/dev/ttyACM0", entries[1].ContextMap()["port"])
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewConsole(&buf, "info")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown", "k", "v")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "info")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"k": "v"`)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewJSON(&buf, "debug")
	require.NoError(t, err)

	l.Debug("chunk", "off", 128)
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "chunk", entry["message"])
	assert.Equal(t, float64(128), entry["off"])
}

func TestNewConsole_BadLevel(t *testing.T) {
	_, err := NewConsole(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
