// Package coordinator parses coordinator service flags and launches the service.
package coordinator

import (
	"context"
	"flag"

	entrypoint "github.com/lockstep-ops/lockstep/internal/platform/cmd"
	server "github.com/lockstep-ops/lockstep/internal/services/coordination/app"
)

// Config holds coordinator command configuration.
type Config struct {
	Port int `env:"LOCKSTEP_COORDINATOR_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The coordinator HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the coordination HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCoordinator, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
