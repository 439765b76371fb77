// Package main runs a seeded acknowledgment simulation against a coordinator.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	simulatecmd "github.com/lockstep-ops/lockstep/internal/cmd/simulate"
	entrypoint "github.com/lockstep-ops/lockstep/internal/platform/cmd"
)

func main() {
	cfg, err := simulatecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SIMULATE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSimulate, func(ctx context.Context) error {
		return simulatecmd.Run(ctx, cfg, os.Stdout)
	})
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
}
