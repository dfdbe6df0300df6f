package config

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"boolnet/internal/errors"
	"boolnet/internal/hypothesis"
	"boolnet/internal/synthesis"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path cannot be empty for the sqlite store")
		}
	default:
		return errors.WithHint(
			errors.Newf("store.kind must be memory or sqlite, got %q", c.Store.Kind),
			"set store.kind in boolnet.toml or BOOLNET_STORE_KIND",
		)
	}

	if c.Log.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
			return errors.Newf("log.level %q is not a known level", c.Log.Level)
		}
	}

	// 0 selects the hard limit.
	if c.Enumeration.MaxOptional < 0 || c.Enumeration.MaxOptional > hypothesis.MaxOptionalLimit {
		return errors.Newf("enumeration.max_optional must be within [0, %d], got %d",
			hypothesis.MaxOptionalLimit, c.Enumeration.MaxOptional)
	}
	if c.Enumeration.Workers < 1 {
		return errors.Newf("enumeration.workers must be >= 1, got %d", c.Enumeration.Workers)
	}

	if _, err := synthesis.ParseReferenceMode(c.Synthesis.Reference); err != nil {
		return errors.Wrap(err, "synthesis.reference")
	}
	return nil
}

// ReferenceMode returns the parsed synthesis reference mode. Validate must
// have succeeded.
func (c *Config) ReferenceMode() synthesis.ReferenceMode {
	mode, _ := synthesis.ParseReferenceMode(c.Synthesis.Reference)
	return mode
}
