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

const (
	envPrefix  = "PITWALL_"
	envConfig  = "PITWALL_CONFIG"
	keyDelim   = "."
	sectionSep = "_"
)

// sections are the nested config blocks; their env vars carry the section
// name as the first underscore-separated segment.
var sections = map[string]struct{}{ //nolint:gochecknoglobals // static lookup
	"window":    {},
	"split":     {},
	"warehouse": {},
	"output":    {},
	"toy":       {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PITWALL_CONFIG is set
//  3. env (prefix PITWALL_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(keyDelim)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PITWALL_WINDOW_RECENT -> window.recent, PITWALL_WORKER_COUNT -> worker_count.
	if err := k.Load(env.Provider(envPrefix, keyDelim, envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a koanf key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	head, tail, ok := strings.Cut(s, sectionSep)
	if !ok {
		return s
	}
	if _, nested := sections[head]; nested {
		return head + keyDelim + tail
	}
	return s
}
