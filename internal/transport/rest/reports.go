package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PlanReport handles GET /audit/reports/plans/{id}.
func (h *AuditHandler) PlanReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	report, err := h.svc.PlanReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPlanReportResponse(report))
}

// ExportPlanReport handles GET /audit/reports/plans/{id}/export and returns
// the report as an XLSX workbook.
func (h *AuditHandler) ExportPlanReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	report, err := h.svc.PlanReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Rendered into memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := xlsx.WritePlanReport(&buf, report); err != nil {
		h.fail(w, r, fmt.Errorf("render plan report: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-plan-%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}
