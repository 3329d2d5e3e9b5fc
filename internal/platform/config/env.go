package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from unprefixed environment variables.
func ParseEnv(target any) error {
	return ParseEnvWithPrefix(target, "")
}

// ParseEnvWithPrefix loads configuration from environment variables whose
// names start with prefix, e.g. "FOLIO_". Variables set to the empty string
// fall back to their envDefault.
func ParseEnvWithPrefix(target any, prefix string) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
