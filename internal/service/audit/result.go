package audit

import "github.com/heartmarshall/inventory-audit-backend/internal/domain"

// SnapshotResult is returned by BuildSnapshot. Empty marks a scope that
// resolved to zero items; the snapshot is still stamped.
type SnapshotResult struct {
	Session *domain.AuditSession
	Items   []domain.ExpectedItem
	Empty   bool
}

// IngestResult is the outcome of one scan. Replayed is set when the
// client_scan_id was already stored and nothing was reclassified.
type IngestResult struct {
	Scan          *domain.Scan
	Result        *domain.ItemResult
	Discrepancies []*domain.Discrepancy
	Replayed      bool
}

// BatchItemResult is the per-scan outcome of a batch ingest.
type BatchItemResult struct {
	ClientScanID string
	Result       *IngestResult
	Err          error
}

// ReclassifyResult summarizes a reclassification run.
type ReclassifyResult struct {
	Session              *domain.AuditSession
	Scans                int
	Results              int
	CreatedDiscrepancies int
}

// ApplySummary counts action outcomes of one apply run. Skipped actions
// were already done before the run.
type ApplySummary struct {
	Done    int
	Failed  int
	Skipped int
}

// ApplyResult is returned by ApplySession.
type ApplyResult struct {
	Session *domain.AuditSession
	Actions []*domain.Action
	Summary ApplySummary
}
