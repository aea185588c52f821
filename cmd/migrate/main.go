package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"marketplace/internal/config"
	"marketplace/internal/database"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		return errors.New("usage: migrate <up|down|version>")
	}

	cfg, err := config.LoadTool()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = cfg.Database.ConnectionString()
	}

	if args[0] == "up" {
		return database.MigrateUp(databaseURL, logger)
	}

	m, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("no migrations to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		logger.Info().Msg("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info().Msg("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")

	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}

	return nil
}
