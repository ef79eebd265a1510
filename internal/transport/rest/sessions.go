package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// CreateSession handles POST /audit/sessions.
func (h *AuditHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), audit.CreateSessionInput{
		PlanID:     req.PlanID,
		LocationID: req.LocationID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

// ListSessions handles GET /audit/sessions?plan_id=&location_id=&status=&limit=&offset=.
func (h *AuditHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset, errs := queryPage(r)
	input := audit.ListSessionsInput{Limit: limit, Offset: offset}

	if v := queryString(r, "plan_id"); v != nil {
		id, err := uuid.Parse(*v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "plan_id", Message: "must be a uuid"})
		}
		input.PlanID = &id
	}
	if v := queryString(r, "location_id"); v != nil {
		loc, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "location_id", Message: "must be an integer"})
		}
		input.LocationID = &loc
	}
	if v := queryString(r, "status"); v != nil {
		st := domain.SessionStatus(*v)
		input.Status = &st
	}
	if len(errs) > 0 {
		h.fail(w, r, domain.NewValidationErrors(errs))
		return
	}

	sessions, total, err := h.svc.ListSessions(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[sessionResponse]{
		Items: mapSlice(sessions, toSessionResponse),
		Total: total,
	})
}

// GetSession handles GET /audit/sessions/{id}.
func (h *AuditHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.sessionStep(w, r, h.svc.GetSession)
}

// StartSession handles POST /audit/sessions/{id}/start.
func (h *AuditHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.sessionStep(w, r, h.svc.StartSession)
}

// CloseSession handles POST /audit/sessions/{id}/close.
func (h *AuditHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessionStep(w, r, h.svc.CloseSession)
}

// FinalizeSession handles POST /audit/sessions/{id}/finalize.
func (h *AuditHandler) FinalizeSession(w http.ResponseWriter, r *http.Request) {
	h.sessionStep(w, r, h.svc.FinalizeSession)
}

func (h *AuditHandler) sessionStep(w http.ResponseWriter, r *http.Request, step func(context.Context, uuid.UUID) (*domain.AuditSession, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sess, err := step(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// BuildSnapshot handles POST /audit/sessions/{id}/snapshot.
func (h *AuditHandler) BuildSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.BuildSnapshot(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Session: toSessionResponse(res.Session),
		Items:   mapSlice(res.Items, toExpectedItemResponse),
		Empty:   res.Empty,
	})
}

// ApproveSession handles POST /audit/sessions/{id}/approve.
// Body is optional: {"override": true, "reason": "..."}.
func (h *AuditHandler) ApproveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	sess, err := h.svc.ApproveSession(r.Context(), audit.ApproveInput{
		SessionID: id,
		Override:  req.Override,
		Reason:    req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// CancelSession handles POST /audit/sessions/{id}/cancel.
func (h *AuditHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	sess, err := h.svc.CancelSession(r.Context(), audit.CancelInput{SessionID: id, Reason: req.Reason})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// BuildActions handles POST /audit/sessions/{id}/build-actions.
func (h *AuditHandler) BuildActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	actions, err := h.svc.BuildActions(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[actionResponse]{
		Items: mapSlice(actions, toActionResponse),
		Total: len(actions),
	})
}

// ApplySession handles POST /audit/sessions/{id}/apply. Partial failure is
// not an error: the summary and per-action statuses tell what to retry.
func (h *AuditHandler) ApplySession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ApplySession(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, applyResponse{
		Session: toSessionResponse(res.Session),
		Actions: mapSlice(res.Actions, toActionResponse),
		Done:    res.Summary.Done,
		Failed:  res.Summary.Failed,
		Skipped: res.Summary.Skipped,
	})
}

// Reclassify handles POST /audit/sessions/{id}/reclassify.
func (h *AuditHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Reclassify(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reclassifyResponse{
		Session:              toSessionResponse(res.Session),
		Scans:                res.Scans,
		Results:              res.Results,
		CreatedDiscrepancies: res.CreatedDiscrepancies,
	})
}

// ListExpected handles GET /audit/sessions/{id}/expected.
func (h *AuditHandler) ListExpected(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	items, err := h.svc.ListExpected(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[expectedItemResponse]{
		Items: mapSlice(items, toExpectedItemResponse),
		Total: len(items),
	})
}

// ListResults handles GET /audit/sessions/{id}/results.
func (h *AuditHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	results, err := h.svc.ListResults(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[itemResultResponse]{
		Items: mapSlice(results, toItemResultResponse),
		Total: len(results),
	})
}

// ListActions handles GET /audit/sessions/{id}/actions?status=pending&status=failed.
func (h *AuditHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	input := audit.ListActionsInput{SessionID: id}
	for _, v := range r.URL.Query()["status"] {
		input.Statuses = append(input.Statuses, domain.ActionStatus(v))
	}

	actions, err := h.svc.ListActions(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[actionResponse]{
		Items: mapSlice(actions, toActionResponse),
		Total: len(actions),
	})
}

// SessionReport handles GET /audit/sessions/{id}/report.
func (h *AuditHandler) SessionReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rollup, err := h.svc.SessionReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRollupResponse(*rollup))
}
