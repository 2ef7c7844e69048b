package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/gtxlabs/gtxips/internal/common"
	"github.com/gtxlabs/gtxips/internal/engine"
	"github.com/gtxlabs/gtxips/internal/service"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/gtx/gtx.db"

// Config is the typed view of the application settings.
type Config struct {
	DatabasePath   string
	LogFormat      string
	RecalcMode     engine.RecalcMode
	Retry          service.RetryOptions
	LogLevel       slog.Level
	AutoCheckpoint bool
}

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("recalc.mode", string(engine.ModeAtomic))
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", 100*time.Millisecond)
	v.SetDefault("checkpoint.auto", true)
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a Config from v, applying defaults and validating values.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	level, err := common.ParseLevel(v.GetString("logging.level"))
	if err != nil {
		return nil, err
	}

	format := v.GetString("logging.format")
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, format)
	}

	mode, err := engine.ParseRecalcMode(v.GetString("recalc.mode"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	attempts := v.GetInt("retry.max_attempts")
	if attempts < 1 {
		return nil, fmt.Errorf("%w: retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}

	path := ExpandPath(v.GetString("database.path"))
	if path == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}

	retry := engine.DefaultConfig().Retry
	retry.MaxAttempts = attempts
	retry.InitialDelay = v.GetDuration("retry.initial_delay")

	return &Config{
		DatabasePath:   path,
		LogLevel:       level,
		LogFormat:      format,
		RecalcMode:     mode,
		Retry:          retry,
		AutoCheckpoint: v.GetBool("checkpoint.auto"),
	}, nil
}

// Engine returns the engine configuration for these settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Clock: engine.SystemClock{},
		Mode:  c.RecalcMode,
		Retry: c.Retry,
	}
}
