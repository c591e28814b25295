// Package config reads the hecate settings from the environment.
package config

import (
	"time"

	"github.com/xyproto/env/v2"

	"github.com/njchilds90/hecate/internal/logger"
)

// Config holds the settings the CLI starts from. Flags override them.
type Config struct {
	LogLevel  logger.Level
	LogFormat string

	MPI        bool
	MatrixFree bool
	Debug      bool

	// OutDir is where generated files are written.
	OutDir string
	// WatchDebounce is how long a schema file must stay unchanged before a
	// regeneration.
	WatchDebounce time.Duration
}

// Default values.
const (
	DefaultOutDir          = "build"
	DefaultWatchDebounceMS = 300
)

// Load reads HECATE_* variables.
func Load() Config {
	debounce := env.Int("HECATE_WATCH_DEBOUNCE_MS", DefaultWatchDebounceMS)
	if debounce < 0 {
		debounce = DefaultWatchDebounceMS
	}
	format := env.Str("HECATE_LOG_FORMAT", "text")
	if format != "json" {
		format = "text"
	}
	return Config{
		LogLevel:      logger.ParseLevel(env.Str("HECATE_LOG_LEVEL", "info")),
		LogFormat:     format,
		MPI:           env.Bool("HECATE_MPI"),
		MatrixFree:    env.Bool("HECATE_MATRIX_FREE"),
		Debug:         env.Bool("HECATE_DEBUG"),
		OutDir:        env.Str("HECATE_OUT_DIR", DefaultOutDir),
		WatchDebounce: time.Duration(debounce) * time.Millisecond,
	}
}

// Logger returns the logger configuration for c.
func (c Config) Logger() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}
