package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/pkg/config"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "warn", Format: "json"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestNewQueryLogWritesSideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.log")
	l := NewQueryLog(path)
	l.Debug("exec", zap.String("query", "DELETE FROM buses WHERE id = ?"))
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "DELETE FROM buses")
}

func TestNewQueryLogDisabled(t *testing.T) {
	l := NewQueryLog("")
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
