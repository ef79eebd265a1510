// Command migrate applies, rolls back or reports goose migrations for the
// audit schema.
//
// Usage:
//
//	migrate [up|down|status]
//
// Reads the database section from CONFIG_PATH or DATABASE_* env vars.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/config"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(cmd, logger); err != nil {
		logger.Error("migrate failed", slog.String("command", cmd), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cmd string, logger *slog.Logger) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	if dbCfg.Driver != config.DriverPostgres {
		return fmt.Errorf("driver %q has no migrations", dbCfg.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m, err := postgres.NewMigrator(dbCfg.DSN)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "up":
		return m.Up(ctx, logger)
	case "down":
		return m.Down(ctx, logger)
	case "status":
		return m.Status(ctx, logger)
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", cmd)
	}
}
