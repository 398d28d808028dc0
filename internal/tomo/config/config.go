// Package config assembles the Tomo runtime configuration from environment
// variables plus an optional YAML file for the pieces that are awkward as env
// vars (the persona text and the model fallback chain).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Tomo/common/environment"
	"github.com/bdobrica/Tomo/internal/tomo/gateway"
	"github.com/bdobrica/Tomo/internal/tomo/memory"
)

// Config holds everything the Tomo application needs to start.
type Config struct {
	// LLM holds the backend provider settings.
	LLM LLMConfig

	// Matrix holds the homeserver connection settings.
	Matrix MatrixConfig

	// MemoryFile is the path of the durable memory snapshot (JSON).
	MemoryFile string

	// DatabasePath is the path of the SQLite database holding Matrix sync
	// state. Empty disables persistence (history replays on restart).
	DatabasePath string

	// Models is the fallback chain, most capable first. Empty selects
	// gateway.DefaultModels.
	Models []string

	// Persona replaces the default system preamble when non-empty.
	Persona string

	// ShortTermTurns is the number of exchanges kept per user in the
	// short-term window. Non-positive selects memory.DefaultShortTermTurns.
	ShortTermTurns int

	// LogLevel is "debug", "info", "warn", or "error". Defaults to "info".
	LogLevel string
	// LogFormat is "text" or "json". Defaults to "text".
	LogFormat string
}

// LLMConfig configures the OpenAI-compatible backend.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// MatrixConfig configures the homeserver connection.
type MatrixConfig struct {
	Homeserver   string
	UserID       string
	AccessToken  string
	AllowedRooms []string
}

// fileConfig is the shape of the optional YAML file referenced by TOMO_CONFIG.
type fileConfig struct {
	Persona        string   `yaml:"persona"`
	Models         []string `yaml:"models"`
	ShortTermTurns int      `yaml:"short_term_turns"`
}

// Load builds the configuration from the environment, then overlays the YAML
// file named by TOMO_CONFIG when present. Environment variables win over the
// file for the values both can set.
func Load() (*Config, error) {
	cfg := &Config{
		LLM: LLMConfig{
			APIKey:  os.Getenv("TOMO_API_KEY"),
			BaseURL: os.Getenv("TOMO_BASE_URL"),
			Timeout: environment.DurationOr("TOMO_TIMEOUT", 2*time.Minute),
		},
		MemoryFile:   environment.StringOr("TOMO_MEMORY_FILE", "memories.json"),
		DatabasePath: os.Getenv("DATABASE_PATH"),
		LogLevel:     environment.StringOr("LOG_LEVEL", "info"),
		LogFormat:    environment.StringOr("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.Matrix.Homeserver, err = environment.RequiredString("MATRIX_HOMESERVER"); err != nil {
		return nil, err
	}
	if cfg.Matrix.UserID, err = environment.RequiredString("MATRIX_USER_ID"); err != nil {
		return nil, err
	}
	if cfg.Matrix.AccessToken, err = environment.RequiredString("MATRIX_ACCESS_TOKEN"); err != nil {
		return nil, err
	}
	cfg.Matrix.AllowedRooms = environment.StringSliceOr("MATRIX_ALLOWED_ROOMS", nil)

	if path := os.Getenv("TOMO_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Env overrides apply after the file so the environment always wins.
	if models := environment.StringSliceOr("TOMO_MODELS", nil); len(models) > 0 {
		cfg.Models = models
	}
	if turns := environment.IntOr("TOMO_SHORT_TERM_TURNS", 0); turns > 0 {
		cfg.ShortTermTurns = turns
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyFile overlays values from the YAML file at path. A referenced file
// that cannot be read or parsed is a configuration error, not a soft default:
// the operator named it explicitly.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.Persona != "" {
		c.Persona = fc.Persona
	}
	if len(fc.Models) > 0 {
		c.Models = fc.Models
	}
	if fc.ShortTermTurns > 0 {
		c.ShortTermTurns = fc.ShortTermTurns
	}
	return nil
}

// applyDefaults fills the remaining zero values.
func (c *Config) applyDefaults() {
	if len(c.Models) == 0 {
		c.Models = gateway.DefaultModels
	}
	if c.ShortTermTurns <= 0 {
		c.ShortTermTurns = memory.DefaultShortTermTurns
	}
}
