package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// maxBodyBytes bounds request bodies; a full scan batch fits comfortably.
const maxBodyBytes = 4 << 20

// auditService defines the engine operations exposed over REST.
type auditService interface {
	CreatePlan(ctx context.Context, input audit.CreatePlanInput) (*domain.AuditPlan, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*domain.AuditPlan, error)
	ListPlans(ctx context.Context, input audit.ListPlansInput) ([]*domain.AuditPlan, int, error)
	TransitionPlan(ctx context.Context, input audit.TransitionPlanInput) (*domain.AuditPlan, error)

	CreateSession(ctx context.Context, input audit.CreateSessionInput) (*domain.AuditSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error)
	ListSessions(ctx context.Context, input audit.ListSessionsInput) ([]*domain.AuditSession, int, error)
	BuildSnapshot(ctx context.Context, sessionID uuid.UUID) (*audit.SnapshotResult, error)
	StartSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error)
	ApproveSession(ctx context.Context, input audit.ApproveInput) (*domain.AuditSession, error)
	BuildActions(ctx context.Context, sessionID uuid.UUID) ([]*domain.Action, error)
	ApplySession(ctx context.Context, sessionID uuid.UUID) (*audit.ApplyResult, error)
	FinalizeSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error)
	CancelSession(ctx context.Context, input audit.CancelInput) (*domain.AuditSession, error)

	IngestScan(ctx context.Context, sessionID uuid.UUID, input audit.ScanInput) (*audit.IngestResult, error)
	IngestScanBatch(ctx context.Context, sessionID uuid.UUID, inputs []audit.ScanInput) ([]audit.BatchItemResult, error)
	ListScans(ctx context.Context, sessionID uuid.UUID) ([]*domain.Scan, error)
	Reclassify(ctx context.Context, sessionID uuid.UUID) (*audit.ReclassifyResult, error)

	ListExpected(ctx context.Context, sessionID uuid.UUID) ([]domain.ExpectedItem, error)
	ListResults(ctx context.Context, sessionID uuid.UUID) ([]*domain.ItemResult, error)
	ListDiscrepancies(ctx context.Context, input audit.ListDiscrepanciesInput) ([]*domain.Discrepancy, error)
	ListActions(ctx context.Context, input audit.ListActionsInput) ([]*domain.Action, error)
	ResolveDiscrepancy(ctx context.Context, input audit.ResolveInput) (*domain.Discrepancy, error)

	SessionReport(ctx context.Context, sessionID uuid.UUID) (*domain.SessionRollup, error)
	PlanReport(ctx context.Context, planID uuid.UUID) (*domain.PlanReport, error)
}

// AuditHandler serves the audit REST endpoints.
type AuditHandler struct {
	svc auditService
	log *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc auditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, log: logger.With("handler", "audit")}
}

func (h *AuditHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	handleError(h.log, w, r, err)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
	return false
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// queryPage reads limit/offset. Malformed numbers are reported as field errors.
func queryPage(r *http.Request) (limit, offset int, errs []domain.FieldError) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "limit", Message: "must be an integer"})
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "offset", Message: "must be an integer"})
		}
		offset = n
	}
	return limit, offset, errs
}

func queryString(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}
