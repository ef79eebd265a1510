// Command reclassify rebuilds item results and discrepancies of a closed
// session from its snapshot and scan log. It is the operator tool for
// recovering a session after a scan log correction.
//
// Usage:
//
//	reclassify -session <uuid> -actor <uuid>
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/app"
	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/pkg/ctxutil"
)

func main() {
	sessionFlag := flag.String("session", "", "audit session id")
	actorFlag := flag.String("actor", "", "user id recorded as the actor")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	sessionID, err := uuid.Parse(*sessionFlag)
	if err != nil {
		log.Fatalf("invalid -session: %v", err)
	}
	actorID, err := uuid.Parse(*actorFlag)
	if err != nil {
		log.Fatalf("invalid -actor: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer c.Close()

	ctx = ctxutil.WithUserID(ctx, actorID)
	res, err := c.Audit.Reclassify(ctx, sessionID)
	if err != nil {
		logger.Error("reclassify", slog.String("session_id", sessionID.String()), slog.String("error", err.Error()))
		c.Close()
		os.Exit(1)
	}

	logger.Info("session reclassified",
		slog.String("session_id", sessionID.String()),
		slog.String("status", string(res.Session.Status)),
		slog.Int("scans", res.Scans),
		slog.Int("results", res.Results),
		slog.Int("new_discrepancies", res.CreatedDiscrepancies),
	)
}
