// Package config loads the simulation settings shared by every frontend.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olivierh59500/particle-bounce-go/engine"
	"github.com/olivierh59500/particle-bounce-go/physics"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath = "PARTICLES_CONFIG"
	EnvLogLevel   = "PARTICLES_LOG_LEVEL"
)

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds every tunable of a session.
type Config struct {
	WindowWidth  int     `json:"window_width"`
	WindowHeight int     `json:"window_height"`
	TPS          int     `json:"tps"`
	GridCellSize float64 `json:"grid_cell_size"`
	Offload      bool    `json:"offload"`
	LogLevel     string  `json:"log_level"`

	Physics physics.Params     `json:"physics"`
	Spawn   engine.SpawnConfig `json:"spawn"`
}

// Default returns the shipped settings.
func Default() Config {
	return Config{
		WindowWidth:  800,
		WindowHeight: 600,
		TPS:          60,
		GridCellSize: 64,
		Offload:      true,
		LogLevel:     "info",
		Physics:      physics.DefaultParams(),
		Spawn:        engine.DefaultSpawnConfig(),
	}
}

// Load reads a JSON file over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by PARTICLES_CONFIG and applies
// PARTICLES_LOG_LEVEL on top.
func FromEnv() (Config, error) {
	cfg, err := Load(GetEnvDefault(EnvConfigPath, ""))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = GetEnvDefault(EnvLogLevel, cfg.LogLevel)
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the engine relies on.
func (c Config) Validate() error {
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidConfig, c.WindowWidth, c.WindowHeight)
	}
	if c.TPS <= 0 {
		return fmt.Errorf("%w: tps %d", ErrInvalidConfig, c.TPS)
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Spawn.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	// Neighbour checks only cover the 3x3 block around a cell
	if c.GridCellSize < c.Spawn.MaxSize {
		return fmt.Errorf("%w: grid cell size %v smaller than max particle size %v",
			ErrInvalidConfig, c.GridCellSize, c.Spawn.MaxSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Save writes the config as indented JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// GetEnvDefault returns the variable or def when unset or empty.
func GetEnvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseLevel maps a level name to slog.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidConfig, name)
}

// NewLogger builds a text logger at the configured level. A nil writer
// discards output.
func NewLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
