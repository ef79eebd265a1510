package rest

import (
	"net/http"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// ListDiscrepancies handles GET /audit/sessions/{id}/discrepancies?type=&status=.
func (h *AuditHandler) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	input := audit.ListDiscrepanciesInput{SessionID: id}
	if v := queryString(r, "type"); v != nil {
		t := domain.DiscrepancyType(*v)
		input.Type = &t
	}
	if v := queryString(r, "status"); v != nil {
		st := domain.ResolutionStatus(*v)
		input.Status = &st
	}

	items, err := h.svc.ListDiscrepancies(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[discrepancyResponse]{
		Items: mapSlice(items, toDiscrepancyResponse),
		Total: len(items),
	})
}

// ResolveDiscrepancy handles POST /audit/discrepancies/{id}/resolve.
func (h *AuditHandler) ResolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	input := audit.ResolveInput{
		DiscrepancyID: id,
		Status:        domain.ResolutionStatus(req.Status),
		Decision:      domain.ResolutionDecision(req.Decision),
		Note:          req.Note,
	}
	if req.Responsible != nil {
		input.Responsible = &domain.ResponsibleChange{UserID: req.Responsible.UserID}
	}

	d, err := h.svc.ResolveDiscrepancy(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDiscrepancyResponse(d))
}
