package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
	assert.Equal(t, 100, cfg.MaxSizeMB)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Compress)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			logger, err := NewForEnvironment(env)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNew_FileOutputIsRotatedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("sync finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "sync finished", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_ConsoleToFileHasNoColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	logger, err := New(&Config{Level: "info", Format: "console", Output: path})
	require.NoError(t, err)
	logger.Warn("plain")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WARN")
	assert.NotContains(t, string(data), "\x1b[")
}
