package rest

import (
	"net/http"

	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// IngestScan handles POST /audit/sessions/{id}/scans. A replayed
// client_scan_id answers 200 with the stored scan instead of 201.
func (h *AuditHandler) IngestScan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req scanRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	res, err := h.svc.IngestScan(r.Context(), id, req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toIngestResponse(res))
}

// IngestScanBatch handles POST /audit/sessions/{id}/scans/batch. The batch
// answers 200 whenever it was accepted; each entry carries its own outcome.
func (h *AuditHandler) IngestScanBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req scanBatchRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	inputs := make([]audit.ScanInput, 0, len(req.Scans))
	for _, sc := range req.Scans {
		inputs = append(inputs, sc.toInput())
	}

	results, err := h.svc.IngestScanBatch(r.Context(), id, inputs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]batchItemResponse, 0, len(results))
	for _, res := range results {
		item := batchItemResponse{ClientScanID: res.ClientScanID}
		if res.Err != nil {
			status, body := errorBody(res.Err)
			if status == http.StatusInternalServerError {
				h.log.ErrorContext(r.Context(), "batch scan failed",
					"client_scan_id", res.ClientScanID,
					"error", res.Err.Error(),
				)
			}
			item.Error = &body
		} else {
			ingested := toIngestResponse(res.Result)
			item.Result = &ingested
		}
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, listResponse[batchItemResponse]{Items: out, Total: len(out)})
}

// ListScans handles GET /audit/sessions/{id}/scans.
func (h *AuditHandler) ListScans(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	scans, err := h.svc.ListScans(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[scanResponse]{
		Items: mapSlice(scans, toScanResponse),
		Total: len(scans),
	})
}
