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
//  2. file (YAML) if WEIGHBRIDGE_CONFIG is set
//  3. env (prefix WEIGHBRIDGE_, "__" separates nesting: WEIGHBRIDGE_SCALE__PORT)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("WEIGHBRIDGE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// WEIGHBRIDGE_ADDR -> addr, WEIGHBRIDGE_SCALE__POLL_INTERVAL_MS ->
	// scale.poll_interval_ms. Underscores inside a segment are preserved to
	// match the koanf tags on the structs.
	envProvider := env.Provider("WEIGHBRIDGE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "weighbridge_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("%w: history_limit must be positive", ErrInvalidConfig)
	case c.Scale.PollIntervalMS <= 0:
		return fmt.Errorf("%w: scale.poll_interval_ms must be positive", ErrInvalidConfig)
	case c.Scale.StabilityDwellMS <= 0:
		return fmt.Errorf("%w: scale.stability_dwell_ms must be positive", ErrInvalidConfig)
	case c.Scale.StabilityToleranceKg <= 0:
		return fmt.Errorf("%w: scale.stability_tolerance_kg must be positive", ErrInvalidConfig)
	case c.Sync.BatchLimit <= 0:
		return fmt.Errorf("%w: sync.batch_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
