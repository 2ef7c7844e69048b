package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/engine"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/gtx/gtx.db", cfg.DatabasePath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, engine.ModeAtomic, cfg.RecalcMode)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialDelay)
	assert.True(t, cfg.AutoCheckpoint)
}

func TestLoadFrom_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/gtx-test.db
logging:
  level: debug
  format: json
recalc:
  mode: best-effort
retry:
  max_attempts: 5
  initial_delay: 250ms
checkpoint:
  auto: false
`), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/gtx-test.db", cfg.DatabasePath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, engine.ModeBestEffort, cfg.RecalcMode)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.False(t, cfg.AutoCheckpoint)

	ec := cfg.Engine()
	assert.Equal(t, engine.ModeBestEffort, ec.Mode)
	assert.NotNil(t, ec.Clock)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"log level", "logging.level", "verbose"},
		{"log format", "logging.format", "xml"},
		{"recalc mode", "recalc.mode", "lazy"},
		{"retry attempts", "retry.max_attempts", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("GTX_DATA", "/srv/gtx")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", "/home/tester"},
		{"~/gtx.db", "/home/tester/gtx.db"},
		{"$GTX_DATA/gtx.db", "/srv/gtx/gtx.db"},
		{"/abs/gtx.db", "/abs/gtx.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}
