package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EMDC_CONFIG is set
//  3. env (prefix EMDC_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("EMDC_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: EMDC_ADDR, EMDC_QUEUE_SIZE, ...
	// Map env keys like EMDC_QUEUE_SIZE -> queue_size (flat keys).
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("EMDC_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "emdc_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
