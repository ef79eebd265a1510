package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

type planScopeJSON struct {
	LocationIDs   []int64 `json:"location_ids,omitempty"`
	DepartmentIDs []int64 `json:"department_ids,omitempty"`
	ItemIDs       []int64 `json:"item_ids,omitempty"`
}

type createPlanRequest struct {
	Title     string        `json:"title"`
	ScopeType string        `json:"scope_type"`
	Scope     planScopeJSON `json:"scope"`
	StartDate *time.Time    `json:"start_date"`
	EndDate   *time.Time    `json:"end_date"`
}

type createSessionRequest struct {
	PlanID     *uuid.UUID `json:"plan_id"`
	LocationID int64      `json:"location_id"`
}

type approveRequest struct {
	Override bool   `json:"override"`
	Reason   string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type scanRequest struct {
	ClientScanID    string            `json:"client_scan_id"`
	BarcodeValue    string            `json:"barcode_value"`
	ItemID          *int64            `json:"item_id"`
	FoundLocationID *int64            `json:"found_location_id"`
	ScanTime        *time.Time        `json:"scan_time"`
	Source          string            `json:"source"`
	Notes           *string           `json:"notes"`
	PhotoURL        *string           `json:"photo_url"`
	Metadata        map[string]string `json:"metadata"`
}

func (r scanRequest) toInput() audit.ScanInput {
	return audit.ScanInput{
		ClientScanID:    r.ClientScanID,
		BarcodeValue:    r.BarcodeValue,
		ItemID:          r.ItemID,
		FoundLocationID: r.FoundLocationID,
		ScanTime:        r.ScanTime,
		Source:          domain.ScanSource(r.Source),
		Notes:           r.Notes,
		PhotoURL:        r.PhotoURL,
		Metadata:        r.Metadata,
	}
}

type scanBatchRequest struct {
	Scans []scanRequest `json:"scans"`
}

type responsibleJSON struct {
	UserID *int64 `json:"user_id"`
}

type resolveRequest struct {
	Status      string           `json:"status"`
	Decision    string           `json:"decision"`
	Responsible *responsibleJSON `json:"responsible"`
	Note        string           `json:"note"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type planResponse struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	ScopeType string        `json:"scope_type"`
	Scope     planScopeJSON `json:"scope"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`
	Status    string        `json:"status"`
	CreatedBy uuid.UUID     `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toPlanResponse(p *domain.AuditPlan) planResponse {
	return planResponse{
		ID:        p.ID,
		Title:     p.Title,
		ScopeType: p.ScopeType.String(),
		Scope: planScopeJSON{
			LocationIDs:   p.Scope.LocationIDs,
			DepartmentIDs: p.Scope.DepartmentIDs,
			ItemIDs:       p.Scope.ItemIDs,
		},
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    p.Status.String(),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type sessionResponse struct {
	ID                      uuid.UUID  `json:"id"`
	PlanID                  *uuid.UUID `json:"plan_id,omitempty"`
	LocationID              int64      `json:"location_id"`
	Status                  string     `json:"status"`
	ExpectedSnapshotVersion *string    `json:"expected_snapshot_version,omitempty"`
	SnapshotAt              *time.Time `json:"snapshot_at,omitempty"`
	CreatedBy               uuid.UUID  `json:"created_by"`
	StartedBy               *uuid.UUID `json:"started_by,omitempty"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	ClosedBy                *uuid.UUID `json:"closed_by,omitempty"`
	ClosedAt                *time.Time `json:"closed_at,omitempty"`
	ApprovedBy              *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt              *time.Time `json:"approved_at,omitempty"`
	ApprovalOverride        bool       `json:"approval_override"`
	ApprovalNote            *string    `json:"approval_note,omitempty"`
	AppliedAt               *time.Time `json:"applied_at,omitempty"`
	FinalizedBy             *uuid.UUID `json:"finalized_by,omitempty"`
	FinalizedAt             *time.Time `json:"finalized_at,omitempty"`
	CanceledBy              *uuid.UUID `json:"canceled_by,omitempty"`
	CanceledAt              *time.Time `json:"canceled_at,omitempty"`
	CancelReason            *string    `json:"cancel_reason,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func toSessionResponse(s *domain.AuditSession) sessionResponse {
	return sessionResponse{
		ID:                      s.ID,
		PlanID:                  s.PlanID,
		LocationID:              s.LocationID,
		Status:                  s.Status.String(),
		ExpectedSnapshotVersion: s.ExpectedSnapshotVersion,
		SnapshotAt:              s.SnapshotAt,
		CreatedBy:               s.CreatedBy,
		StartedBy:               s.StartedBy,
		StartedAt:               s.StartedAt,
		ClosedBy:                s.ClosedBy,
		ClosedAt:                s.ClosedAt,
		ApprovedBy:              s.ApprovedBy,
		ApprovedAt:              s.ApprovedAt,
		ApprovalOverride:        s.ApprovalOverride,
		ApprovalNote:            s.ApprovalNote,
		AppliedAt:               s.AppliedAt,
		FinalizedBy:             s.FinalizedBy,
		FinalizedAt:             s.FinalizedAt,
		CanceledBy:              s.CanceledBy,
		CanceledAt:              s.CanceledAt,
		CancelReason:            s.CancelReason,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

type expectedItemResponse struct {
	ItemID                int64     `json:"item_id"`
	Barcode               string    `json:"barcode"`
	Name                  string    `json:"name"`
	ExpectedLocationID    int64     `json:"expected_location_id"`
	ExpectedResponsibleID *int64    `json:"expected_responsible_id,omitempty"`
	DepartmentID          *int64    `json:"department_id,omitempty"`
	CapturedAt            time.Time `json:"captured_at"`
}

func toExpectedItemResponse(e domain.ExpectedItem) expectedItemResponse {
	return expectedItemResponse{
		ItemID:                e.ItemID,
		Barcode:               e.Barcode,
		Name:                  e.Name,
		ExpectedLocationID:    e.ExpectedLocationID,
		ExpectedResponsibleID: e.ExpectedResponsibleID,
		DepartmentID:          e.DepartmentID,
		CapturedAt:            e.CapturedAt,
	}
}

type snapshotResponse struct {
	Session sessionResponse        `json:"session"`
	Items   []expectedItemResponse `json:"items"`
	Empty   bool                   `json:"empty"`
}

type scanResponse struct {
	ID              uuid.UUID         `json:"id"`
	ClientScanID    string            `json:"client_scan_id"`
	ScannerUserID   uuid.UUID         `json:"scanner_user_id"`
	ScanTime        time.Time         `json:"scan_time"`
	Source          string            `json:"source"`
	BarcodeValue    string            `json:"barcode_value"`
	ItemID          *int64            `json:"item_id,omitempty"`
	FoundLocationID int64             `json:"found_location_id"`
	Outcome         string            `json:"outcome"`
	Notes           *string           `json:"notes,omitempty"`
	PhotoURL        *string           `json:"photo_url,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toScanResponse(s *domain.Scan) scanResponse {
	return scanResponse{
		ID:              s.ID,
		ClientScanID:    s.ClientScanID,
		ScannerUserID:   s.ScannerUserID,
		ScanTime:        s.ScanTime,
		Source:          string(s.Source),
		BarcodeValue:    s.BarcodeValue,
		ItemID:          s.ItemID,
		FoundLocationID: s.FoundLocationID,
		Outcome:         string(s.Outcome),
		Notes:           s.Notes,
		PhotoURL:        s.PhotoURL,
		Metadata:        s.Metadata,
		CreatedAt:       s.CreatedAt,
	}
}

type itemResultResponse struct {
	ItemID             int64      `json:"item_id"`
	Status             string     `json:"status"`
	ExpectedLocationID *int64     `json:"expected_location_id,omitempty"`
	FoundLocationID    *int64     `json:"found_location_id,omitempty"`
	FirstFoundAt       *time.Time `json:"first_found_at,omitempty"`
	LastScanAt         *time.Time `json:"last_scan_at,omitempty"`
	ScanCount          int        `json:"scan_count"`
}

func toItemResultResponse(r *domain.ItemResult) itemResultResponse {
	return itemResultResponse{
		ItemID:             r.ItemID,
		Status:             r.Status.String(),
		ExpectedLocationID: r.ExpectedLocationID,
		FoundLocationID:    r.FoundLocationID,
		FirstFoundAt:       r.FirstFoundAt,
		LastScanAt:         r.LastScanAt,
		ScanCount:          r.ScanCount,
	}
}

type resolutionResponse struct {
	Decision    string           `json:"decision,omitempty"`
	Responsible *responsibleJSON `json:"responsible,omitempty"`
	Note        string           `json:"note,omitempty"`
}

type discrepancyResponse struct {
	ID                    uuid.UUID           `json:"id"`
	SessionID             uuid.UUID           `json:"session_id"`
	Type                  string              `json:"type"`
	ItemID                *int64              `json:"item_id,omitempty"`
	BarcodeValue          *string             `json:"barcode_value,omitempty"`
	ExpectedLocationID    *int64              `json:"expected_location_id,omitempty"`
	FoundLocationID       *int64              `json:"found_location_id,omitempty"`
	ExpectedResponsibleID *int64              `json:"expected_responsible_id,omitempty"`
	ScanID                *uuid.UUID          `json:"scan_id,omitempty"`
	ResolutionStatus      string              `json:"resolution_status"`
	Resolution            *resolutionResponse `json:"resolution,omitempty"`
	ResolvedBy            *uuid.UUID          `json:"resolved_by,omitempty"`
	ResolvedAt            *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
}

func toDiscrepancyResponse(d *domain.Discrepancy) discrepancyResponse {
	resp := discrepancyResponse{
		ID:                    d.ID,
		SessionID:             d.SessionID,
		Type:                  d.Type.String(),
		ItemID:                d.ItemID,
		BarcodeValue:          d.BarcodeValue,
		ExpectedLocationID:    d.ExpectedLocationID,
		FoundLocationID:       d.FoundLocationID,
		ExpectedResponsibleID: d.ExpectedResponsibleID,
		ScanID:                d.ScanID,
		ResolutionStatus:      d.ResolutionStatus.String(),
		ResolvedBy:            d.ResolvedBy,
		ResolvedAt:            d.ResolvedAt,
		CreatedAt:             d.CreatedAt,
	}
	if d.Resolution != nil {
		resp.Resolution = &resolutionResponse{
			Decision: d.Resolution.Decision.String(),
			Note:     d.Resolution.Note,
		}
		if d.Resolution.Responsible != nil {
			resp.Resolution.Responsible = &responsibleJSON{UserID: d.Resolution.Responsible.UserID}
		}
	}
	return resp
}

type actionResponse struct {
	ID                uuid.UUID  `json:"id"`
	DiscrepancyID     uuid.UUID  `json:"discrepancy_id"`
	ItemID            int64      `json:"item_id"`
	Type              string     `json:"type"`
	ToLocationID      *int64     `json:"to_location_id,omitempty"`
	ResponsibleUserID *int64     `json:"responsible_user_id,omitempty"`
	Status            string     `json:"status"`
	IdempotencyKey    string     `json:"idempotency_key"`
	Attempts          int        `json:"attempts"`
	LastError         *string    `json:"last_error,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toActionResponse(a *domain.Action) actionResponse {
	return actionResponse{
		ID:                a.ID,
		DiscrepancyID:     a.DiscrepancyID,
		ItemID:            a.ItemID,
		Type:              a.Type.String(),
		ToLocationID:      a.Payload.ToLocationID,
		ResponsibleUserID: a.Payload.ResponsibleUserID,
		Status:            a.Status.String(),
		IdempotencyKey:    a.IdempotencyKey,
		Attempts:          a.Attempts,
		LastError:         a.LastError,
		SentAt:            a.SentAt,
		CompletedAt:       a.CompletedAt,
		CreatedAt:         a.CreatedAt,
	}
}

type ingestResponse struct {
	Scan          scanResponse          `json:"scan"`
	Result        *itemResultResponse   `json:"result,omitempty"`
	Discrepancies []discrepancyResponse `json:"discrepancies"`
	Replayed      bool                  `json:"replayed"`
}

func toIngestResponse(r *audit.IngestResult) ingestResponse {
	resp := ingestResponse{
		Scan:          toScanResponse(r.Scan),
		Discrepancies: mapSlice(r.Discrepancies, toDiscrepancyResponse),
		Replayed:      r.Replayed,
	}
	if r.Result != nil {
		res := toItemResultResponse(r.Result)
		resp.Result = &res
	}
	return resp
}

type batchItemResponse struct {
	ClientScanID string          `json:"client_scan_id"`
	Result       *ingestResponse `json:"result,omitempty"`
	Error        *errorResponse  `json:"error,omitempty"`
}

type reclassifyResponse struct {
	Session              sessionResponse `json:"session"`
	Scans                int             `json:"scans"`
	Results              int             `json:"results"`
	CreatedDiscrepancies int             `json:"created_discrepancies"`
}

type applyResponse struct {
	Session sessionResponse  `json:"session"`
	Actions []actionResponse `json:"actions"`
	Done    int              `json:"done"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
}

type sessionRollupResponse struct {
	SessionID           uuid.UUID      `json:"session_id"`
	LocationID          int64          `json:"location_id"`
	Status              string         `json:"status"`
	ExpectedCount       int            `json:"expected_count"`
	FoundInPlace        int            `json:"found_in_place"`
	FoundMoved          int            `json:"found_moved"`
	Missing             int            `json:"missing"`
	Unexpected          int            `json:"unexpected"`
	ScanCount           int            `json:"scan_count"`
	DiscrepanciesByType map[string]int `json:"discrepancies_by_type"`
	OpenDiscrepancies   int            `json:"open_discrepancies"`
	ActionsByStatus     map[string]int `json:"actions_by_status"`
	FoundRate           string         `json:"found_rate"`
}

func toRollupResponse(r domain.SessionRollup) sessionRollupResponse {
	resp := sessionRollupResponse{
		SessionID:           r.SessionID,
		LocationID:          r.LocationID,
		Status:              r.Status.String(),
		ExpectedCount:       r.ExpectedCount,
		FoundInPlace:        r.FoundInPlace,
		FoundMoved:          r.FoundMoved,
		Missing:             r.Missing,
		Unexpected:          r.Unexpected,
		ScanCount:           r.ScanCount,
		DiscrepanciesByType: make(map[string]int, len(r.DiscrepanciesByType)),
		OpenDiscrepancies:   r.OpenDiscrepancies,
		ActionsByStatus:     make(map[string]int, len(r.ActionsByStatus)),
		FoundRate:           r.FoundRate.StringFixed(4),
	}
	for t, n := range r.DiscrepanciesByType {
		resp.DiscrepanciesByType[t.String()] = n
	}
	for st, n := range r.ActionsByStatus {
		resp.ActionsByStatus[st.String()] = n
	}
	return resp
}

type planReportResponse struct {
	Plan          planResponse            `json:"plan"`
	RoomsTotal    int                     `json:"rooms_total"`
	RoomsDone     int                     `json:"rooms_done"`
	ExpectedTotal int                     `json:"expected_total"`
	FoundTotal    int                     `json:"found_total"`
	FoundRate     string                  `json:"found_rate"`
	Sessions      []sessionRollupResponse `json:"sessions"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

func toPlanReportResponse(r *domain.PlanReport) planReportResponse {
	sessions := make([]sessionRollupResponse, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		sessions = append(sessions, toRollupResponse(s))
	}
	return planReportResponse{
		Plan:          toPlanResponse(r.Plan),
		RoomsTotal:    r.RoomsTotal,
		RoomsDone:     r.RoomsDone,
		ExpectedTotal: r.ExpectedTotal,
		FoundTotal:    r.FoundTotal,
		FoundRate:     r.FoundRate.StringFixed(4),
		Sessions:      sessions,
		GeneratedAt:   r.GeneratedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
