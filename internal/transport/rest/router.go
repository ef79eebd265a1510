package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/transport/middleware"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// RouterDeps bundles what the HTTP router needs.
type RouterDeps struct {
	Audit     *AuditHandler
	Health    *HealthHandler
	Tokens    tokenValidator
	Limiter   *middleware.RateLimiter // nil disables rate limiting
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	// ApproverRoles may approve, apply, finalize and cancel sessions.
	ApproverRoles []string
	Logger        *slog.Logger
}

// NewRouter builds the chi router for the audit API and health probes.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Auth runs before Logger so access logs carry the user id.
	r.Use(
		middleware.RequestID,
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORS),
		middleware.Auth(d.Tokens),
		middleware.Logger(d.Logger),
		middleware.Metrics(),
	)

	r.Get("/live", d.Health.Live)
	r.Get("/ready", d.Health.Ready)
	r.Get("/health", d.Health.Health)

	h := d.Audit
	approver := middleware.RequireRole(d.ApproverRoles...)

	// Scanners get their own budget so bursts of scans do not starve the rest.
	apiLimit, scanLimit := passthrough, passthrough
	if d.Limiter != nil {
		apiLimit = d.Limiter.Limit("api", d.RateLimit.PerMinute)
		scanLimit = d.Limiter.Limit("scans", d.RateLimit.ScanPerMinute)
	}

	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Route("/plans", func(r chi.Router) {
			r.Use(apiLimit)
			r.Post("/", h.CreatePlan)
			r.Get("/", h.ListPlans)
			r.Get("/{id}", h.GetPlan)
			r.Post("/{id}/schedule", h.TransitionPlan(domain.PlanStatusScheduled))
			r.Post("/{id}/activate", h.TransitionPlan(domain.PlanStatusActive))
			r.Post("/{id}/close", h.TransitionPlan(domain.PlanStatusClosed))
			r.Post("/{id}/cancel", h.TransitionPlan(domain.PlanStatusCanceled))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(apiLimit).Post("/", h.CreateSession)
			r.With(apiLimit).Get("/", h.ListSessions)

			r.Route("/{id}", func(r chi.Router) {
				r.With(scanLimit).Post("/scans", h.IngestScan)
				r.With(scanLimit).Post("/scans/batch", h.IngestScanBatch)

				r.Group(func(r chi.Router) {
					r.Use(apiLimit)
					r.Get("/", h.GetSession)
					r.Get("/scans", h.ListScans)
					r.Get("/expected", h.ListExpected)
					r.Get("/discrepancies", h.ListDiscrepancies)
					r.Get("/results", h.ListResults)
					r.Get("/actions", h.ListActions)
					r.Get("/report", h.SessionReport)

					r.Post("/snapshot", h.BuildSnapshot)
					r.Post("/start", h.StartSession)
					r.Post("/close", h.CloseSession)
					r.Post("/reclassify", h.Reclassify)
					r.Post("/build-actions", h.BuildActions)

					r.With(approver).Post("/approve", h.ApproveSession)
					r.With(approver).Post("/apply", h.ApplySession)
					r.With(approver).Post("/finalize", h.FinalizeSession)
					r.With(approver).Post("/cancel", h.CancelSession)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimit)
			r.Post("/discrepancies/{id}/resolve", h.ResolveDiscrepancy)
			r.Get("/reports/plans/{id}", h.PlanReport)
			r.Get("/reports/plans/{id}/export", h.ExportPlanReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
