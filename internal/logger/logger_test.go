package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := New(Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.With(String("component", "ingest")).Info("converted", Int("records", 3))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"converted"`)
	assert.Contains(t, string(data), `"component":"ingest"`)
	assert.Contains(t, string(data), `"records":3`)
}

func TestNewFromZap_Observer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewFromZap(zap.New(core))

	log.Info("dropped")
	log.Warn("kept", String("path", "a.wiki"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "a.wiki", entry.ContextMap()["path"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.With(Bool("x", true)).Error("ignored")
	assert.NoError(t, log.Sync())
}
