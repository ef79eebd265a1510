package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/heartmarshall/inventory-audit-backend/internal/auth"
	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
	"github.com/heartmarshall/inventory-audit-backend/internal/transport/middleware"
	"github.com/heartmarshall/inventory-audit-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, wires the
// audit engine, serves the REST API (plus /metrics on a side listener) and
// shuts down gracefully when ctx is canceled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("database_driver", cfg.Database.Driver),
	)

	container, err := Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("close resources", slog.String("error", err.Error()))
		}
	}()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(5 * time.Minute)
		defer limiter.Stop()
	}

	// Tokens are issued by the identity service; the TTL only affects
	// GenerateAccessToken, which the server never calls.
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 0,
		auth.WithAudience(cfg.Auth.JWTAudience),
		auth.WithLeeway(cfg.Auth.JWTLeeway),
	)

	router := rest.NewRouter(rest.RouterDeps{
		Audit:         rest.NewAuditHandler(container.Audit, logger),
		Health:        rest.NewHealthHandler(BuildVersion(), healthChecks(container.Probes)...),
		Tokens:        tokens,
		Limiter:       limiter,
		CORS:          cfg.CORS,
		RateLimit:     cfg.RateLimit,
		ApproverRoles: cfg.Auth.ApproverRoleList(),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	servers := []*http.Server{srv}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		servers = append(servers, &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func() {
			logger.Info("http server listening", slog.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", s.Addr, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", slog.String("error", err.Error()))
		shutdown(servers, cfg.Server.ShutdownTimeout, logger)
		return err
	}

	shutdown(servers, cfg.Server.ShutdownTimeout, logger)
	logger.Info("server stopped gracefully")
	return nil
}

func healthChecks(probes []Probe) []rest.HealthCheck {
	checks := make([]rest.HealthCheck, 0, len(probes))
	for _, p := range probes {
		checks = append(checks, rest.HealthCheck{Name: p.Name, Pinger: p.Pinger, Optional: p.Optional})
	}
	return checks
}

func shutdown(servers []*http.Server, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown", slog.String("addr", s.Addr), slog.String("error", err.Error()))
		}
	}
}
