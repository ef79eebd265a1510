package rest

import (
	"net/http"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// CreatePlan handles POST /audit/plans.
func (h *AuditHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	plan, err := h.svc.CreatePlan(r.Context(), audit.CreatePlanInput{
		Title:     req.Title,
		ScopeType: domain.ScopeType(req.ScopeType),
		Scope: domain.PlanScope{
			LocationIDs:   req.Scope.LocationIDs,
			DepartmentIDs: req.Scope.DepartmentIDs,
			ItemIDs:       req.Scope.ItemIDs,
		},
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlanResponse(plan))
}

// ListPlans handles GET /audit/plans?status=&limit=&offset=.
func (h *AuditHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit, offset, errs := queryPage(r)
	if len(errs) > 0 {
		h.fail(w, r, domain.NewValidationErrors(errs))
		return
	}

	input := audit.ListPlansInput{Limit: limit, Offset: offset}
	if v := queryString(r, "status"); v != nil {
		st := domain.PlanStatus(*v)
		input.Status = &st
	}

	plans, total, err := h.svc.ListPlans(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[planResponse]{
		Items: mapSlice(plans, toPlanResponse),
		Total: total,
	})
}

// GetPlan handles GET /audit/plans/{id}.
func (h *AuditHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	plan, err := h.svc.GetPlan(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

// TransitionPlan returns a handler for POST /audit/plans/{id}/<verb> that
// moves the plan to status to.
func (h *AuditHandler) TransitionPlan(to domain.PlanStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		plan, err := h.svc.TransitionPlan(r.Context(), audit.TransitionPlanInput{PlanID: id, To: to})
		if err != nil {
			h.fail(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toPlanResponse(plan))
	}
}
