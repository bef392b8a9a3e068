// Package config holds the book builder settings.
package config

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/engine"
)

// Config is the book builder configuration. It is loaded from JSON and may
// be overridden by command-line flags.
type Config struct {
	MinDepth     int    `json:"min_depth"`     // Smallest empty count stored for game positions
	SolveDepth   int    `json:"solve_depth"`   // Largest empty count solved exactly
	MidgameDepth int    `json:"midgame_depth"` // Plies per midgame search
	MidgameWidth int    `json:"midgame_width"` // MPC width, 0..4
	Workers      int    `json:"workers"`
	BookPath     string `json:"book_path"` // Book file, ".zst" for compressed; empty for the data directory
	UseDatabase  bool   `json:"use_database"`
	DataDir      string `json:"data_dir"` // Database directory; empty for the platform default
	LogLevel     string `json:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	ec := engine.DefaultConfig()
	return Config{
		MinDepth:     36,
		SolveDepth:   ec.SolveDepth,
		MidgameDepth: ec.MidgameDepth,
		MidgameWidth: ec.MidgameWidth,
		Workers:      runtime.NumCPU(),
		LogLevel:     "info",
	}
}

// Load reads a JSON configuration file over the defaults. Fields missing
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks that every setting is in range.
func (c Config) Validate() error {
	switch {
	case c.MinDepth < 0 || c.MinDepth > 60:
		return errors.Errorf("config: min_depth %d out of range 0..60", c.MinDepth)
	case c.SolveDepth < 0 || c.SolveDepth > 60:
		return errors.Errorf("config: solve_depth %d out of range 0..60", c.SolveDepth)
	case c.MidgameDepth < 1 || c.MidgameDepth > engine.MaxDepth:
		return errors.Errorf("config: midgame_depth %d out of range 1..%d", c.MidgameDepth, engine.MaxDepth)
	case c.MidgameWidth < 0 || c.MidgameWidth > engine.MaxWidth:
		return errors.Errorf("config: midgame_width %d out of range 0..%d", c.MidgameWidth, engine.MaxWidth)
	case c.Workers < 0:
		return errors.Errorf("config: negative worker count %d", c.Workers)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config: log_level")
	}
	return nil
}

// Engine returns the search settings.
func (c Config) Engine() engine.Config {
	return engine.Config{
		MidgameDepth: c.MidgameDepth,
		MidgameWidth: c.MidgameWidth,
		SolveDepth:   c.SolveDepth,
	}
}

// Level returns the configured log level, or info if it does not parse.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
