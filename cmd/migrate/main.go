package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"bookcatalog/internal/config"
	"bookcatalog/internal/platform/logging"
	"bookcatalog/internal/store"
)

func main() {
	var (
		command    = flag.String("command", "up", "Migration command: up, down, status, reset")
		configPath = flag.String("config", "", "Path to a YAML config file (defaults to CONFIG_FILE)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Logging, "migrate")

	ctx := context.Background()
	gw, err := store.Open(ctx, store.Config{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns}, store.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to connect to database (%s): %v", store.RedactDSN(cfg.Database.DSN), err)
	}

	err = run(ctx, gw, *command, os.Stdout)
	_ = gw.Close()
	if err != nil {
		log.Fatalf("%s: %v", *command, err)
	}
}

func run(ctx context.Context, gw *store.SQLGateway, command string, out io.Writer) error {
	provider, err := gw.Migrations()
	if err != nil {
		return err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Fprintf(out, "Migrations applied successfully (%d new)\n", len(results))
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		fmt.Fprintf(out, "Rolled back version %d\n", result.Source.Version)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		for _, s := range statuses {
			fmt.Fprintf(out, "%05d  %-8s  %s\n", s.Source.Version, s.State, s.Source.Path)
		}
	case "reset":
		if err := gw.ResetSchema(ctx); err != nil {
			return fmt.Errorf("failed to reset schema: %w", err)
		}
		fmt.Fprintln(out, "Schema reset successfully")
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, reset", command)
	}
	return nil
}
