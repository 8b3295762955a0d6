// Package config handles relmap configuration: canvas geometry, simulation
// tuning, theme, data source, HTTP server and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TFMV/relmap/physics"
	"github.com/TFMV/relmap/render"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "relmap"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"

	// EnvConfig overrides the config file location.
	EnvConfig = "RELMAP_CONFIG"
	// EnvLogLevel overrides log.level.
	EnvLogLevel = "RELMAP_LOG_LEVEL"
)

// Config holds relmap configuration.
type Config struct {
	Canvas    CanvasConfig    `yaml:"canvas"`
	Physics   physics.Params  `yaml:"physics"`
	Theme     render.Theme    `yaml:"theme"`
	Directory DirectoryConfig `yaml:"directory"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// CanvasConfig sets the logical canvas size. Density 0 means "ask the
// display" in the viewer and 1 everywhere else.
type CanvasConfig struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Density float64 `yaml:"density"`
}

// DirectoryConfig selects the people/teams/repos fixture.
type DirectoryConfig struct {
	File    string        `yaml:"file"`    // empty uses the built-in fixture
	Latency time.Duration `yaml:"latency"` // artificial delay per lookup
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Port      int `yaml:"port"`
	SettleMax int `yaml:"settle_max_ticks"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // "warn", "info", "debug", "trace"
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:  1020,
			Height: 800,
		},
		Physics: physics.DefaultParams(),
		Theme:   render.DefaultTheme(),
		Server: ServerConfig{
			Port:      8080,
			SettleMax: physics.DefaultMaxTicks,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location. RELMAP_CONFIG wins; otherwise
// XDG_CONFIG_HOME is respected, defaulting to ~/.config/relmap/config.yml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads the config file at path over the defaults.
// Returns defaults (not an error) if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %gx%g", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Density < 0 {
		return fmt.Errorf("canvas density must not be negative, got %g", c.Canvas.Density)
	}

	p := c.Physics
	if p.AlphaDecay <= 0 || p.AlphaDecay > 1 {
		return fmt.Errorf("physics.alpha_decay must be in (0, 1], got %g", p.AlphaDecay)
	}
	if p.AlphaStart < 0 || p.AlphaStart > 1 {
		return fmt.Errorf("physics.alpha_start must be in [0, 1], got %g", p.AlphaStart)
	}
	if p.DragAlphaTarget < 0 || p.DragAlphaTarget > 1 {
		return fmt.Errorf("physics.drag_alpha_target must be in [0, 1], got %g", p.DragAlphaTarget)
	}
	if p.VelocityDecay < 0 || p.VelocityDecay > 1 {
		return fmt.Errorf("physics.velocity_decay must be in [0, 1], got %g", p.VelocityDecay)
	}
	if p.AlphaMin <= 0 {
		return fmt.Errorf("physics.alpha_min must be positive, got %g", p.AlphaMin)
	}
	if p.CollideIterations < 0 {
		return fmt.Errorf("physics.collide_iterations must not be negative, got %d", p.CollideIterations)
	}

	if c.Directory.Latency < 0 {
		return fmt.Errorf("directory.latency must not be negative, got %s", c.Directory.Latency)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "warn", "warning", "info", "debug", "trace":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
