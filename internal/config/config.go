// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Provider     string        `env:"SPRITEFORGE_PROVIDER" envDefault:"gemini"`
	Model        string        `env:"SPRITEFORGE_MODEL"`
	BaseURL      string        `env:"SPRITEFORGE_BASE_URL"`
	Timeout      time.Duration `env:"SPRITEFORGE_TIMEOUT" envDefault:"120s"`
	Parallelism  int           `env:"SPRITEFORGE_PARALLELISM" envDefault:"4"`
	OutputDir    string        `env:"SPRITEFORGE_OUTPUT_DIR" envDefault:"."`
	SpriteSize   int           `env:"SPRITEFORGE_SPRITE_SIZE" envDefault:"128"`
	DBPath       string        `env:"SPRITEFORGE_DB"`
	LogLevel     string        `env:"SPRITEFORGE_LOG_LEVEL" envDefault:"warn"`
	OTelEndpoint string        `env:"SPRITEFORGE_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config. A non-nil environ replaces the process environment.
func Load(environ map[string]string) (*Config, error) {
	var cfg Config
	if environ == nil {
		if err := ParseEnv(&cfg); err != nil {
			return nil, err
		}
	} else if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if c.SpriteSize <= 0 || c.SpriteSize > 1024 {
		return fmt.Errorf("invalid sprite size %d", c.SpriteSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
