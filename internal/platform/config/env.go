// Package config loads service configuration from the environment.
//
// Services declare their settings as structs with env tags; variable names
// carry the LOCKSTEP_ prefix by convention.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables declared in its env tags.
func ParseEnv(target any) error {
	if target == nil {
		return fmt.Errorf("parse env: target is required")
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
