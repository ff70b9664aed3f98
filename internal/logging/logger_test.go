package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harrylevesque/nutritrack/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, atom, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("meal logged", zap.String("meal_type", "lunch"))

	require.NoError(t, SetLevel(atom, "debug"))
	logger.Debug("now visible")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"meal logged"`)
	assert.Contains(t, out, `"meal_type":"lunch"`)
	assert.Contains(t, out, "now visible")
	assert.False(t, strings.Contains(out, "hidden"), "debug entries must be filtered at info level")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)

	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	assert.Error(t, SetLevel(atom, "chatty"))
	assert.Equal(t, zapcore.InfoLevel, atom.Level())
}
