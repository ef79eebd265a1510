package audit

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	maxTitleLength  = 200
	maxNoteLength   = 2000
	maxClientScanID = 128
	maxBarcode      = 256
	maxMetadataKeys = 32

	// maxScanClockSkew is how far a device clock may run ahead of the server.
	maxScanClockSkew = 5 * time.Minute
)

func validatePage(errs []domain.FieldError, limit, offset int) []domain.FieldError {
	if limit < 0 || limit > MaxLimit {
		errs = append(errs, domain.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 0 and %d", MaxLimit)})
	}
	if offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be >= 0"})
	}
	return errs
}

func pageLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

// CreatePlanInput holds the parameters for creating a plan.
type CreatePlanInput struct {
	Title     string
	ScopeType domain.ScopeType
	Scope     domain.PlanScope
	StartDate *time.Time
	EndDate   *time.Time
}

// Validate checks all fields and collects all errors.
func (i CreatePlanInput) Validate() error {
	var errs []domain.FieldError

	title := strings.TrimSpace(i.Title)
	if title == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	}
	if len(title) > maxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: fmt.Sprintf("max %d characters", maxTitleLength)})
	}

	switch i.ScopeType {
	case domain.ScopeTypeLocation:
		if len(i.Scope.LocationIDs) == 0 {
			errs = append(errs, domain.FieldError{Field: "scope.location_ids", Message: "required for location scope"})
		}
	case domain.ScopeTypeDepartment:
		if len(i.Scope.DepartmentIDs) == 0 {
			errs = append(errs, domain.FieldError{Field: "scope.department_ids", Message: "required for department scope"})
		}
	case domain.ScopeTypeCustom:
		if len(i.Scope.ItemIDs) == 0 {
			errs = append(errs, domain.FieldError{Field: "scope.item_ids", Message: "required for custom scope"})
		}
	default:
		errs = append(errs, domain.FieldError{Field: "scope_type", Message: "must be location, department or custom"})
	}

	if i.StartDate != nil && i.EndDate != nil && i.EndDate.Before(*i.StartDate) {
		errs = append(errs, domain.FieldError{Field: "end_date", Message: "must not be before start_date"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListPlansInput holds the parameters for listing plans.
type ListPlansInput struct {
	Status *domain.PlanStatus
	Limit  int
	Offset int
}

// Validate checks all fields and collects all errors.
func (i ListPlansInput) Validate() error {
	var errs []domain.FieldError
	if i.Status != nil && !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "invalid value"})
	}
	errs = validatePage(errs, i.Limit, i.Offset)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// TransitionPlanInput moves a plan to another status.
type TransitionPlanInput struct {
	PlanID uuid.UUID
	To     domain.PlanStatus
}

// Validate checks all fields and collects all errors.
func (i TransitionPlanInput) Validate() error {
	var errs []domain.FieldError
	if i.PlanID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "plan_id", Message: "required"})
	}
	if !i.To.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "invalid value"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSessionInput holds the parameters for opening a session.
type CreateSessionInput struct {
	PlanID     *uuid.UUID
	LocationID int64
}

// Validate checks all fields and collects all errors.
func (i CreateSessionInput) Validate() error {
	var errs []domain.FieldError
	if i.LocationID <= 0 {
		errs = append(errs, domain.FieldError{Field: "location_id", Message: "must be positive"})
	}
	if i.PlanID != nil && *i.PlanID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "plan_id", Message: "invalid value"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListSessionsInput holds the parameters for listing sessions.
type ListSessionsInput struct {
	PlanID     *uuid.UUID
	LocationID *int64
	Status     *domain.SessionStatus
	Limit      int
	Offset     int
}

// Validate checks all fields and collects all errors.
func (i ListSessionsInput) Validate() error {
	var errs []domain.FieldError
	if i.Status != nil && !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "invalid value"})
	}
	errs = validatePage(errs, i.Limit, i.Offset)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ApproveInput approves a session awaiting approval. Override lets an
// approver accept open discrepancies and requires a reason.
type ApproveInput struct {
	SessionID uuid.UUID
	Override  bool
	Reason    string
}

// Validate checks all fields and collects all errors.
func (i ApproveInput) Validate() error {
	var errs []domain.FieldError
	if i.SessionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "session_id", Message: "required"})
	}
	reason := strings.TrimSpace(i.Reason)
	if i.Override && reason == "" {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "required with override"})
	}
	if len(reason) > maxNoteLength {
		errs = append(errs, domain.FieldError{Field: "reason", Message: fmt.Sprintf("max %d characters", maxNoteLength)})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// CancelInput cancels a non-terminal session.
type CancelInput struct {
	SessionID uuid.UUID
	Reason    string
}

// Validate checks all fields and collects all errors.
func (i CancelInput) Validate() error {
	var errs []domain.FieldError
	if i.SessionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "session_id", Message: "required"})
	}
	if len(strings.TrimSpace(i.Reason)) > maxNoteLength {
		errs = append(errs, domain.FieldError{Field: "reason", Message: fmt.Sprintf("max %d characters", maxNoteLength)})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scans
// ---------------------------------------------------------------------------

// ScanInput is one observation sent by a scanner. Either BarcodeValue or
// ItemID (manual entry) identifies the item.
type ScanInput struct {
	ClientScanID    string
	BarcodeValue    string
	ItemID          *int64
	FoundLocationID *int64 // nil = the session location
	ScanTime        *time.Time
	Source          domain.ScanSource
	Notes           *string
	PhotoURL        *string
	Metadata        map[string]string
}

// Validate checks all fields and collects all errors.
func (i ScanInput) Validate() error {
	var errs []domain.FieldError

	clientID := strings.TrimSpace(i.ClientScanID)
	if clientID == "" {
		errs = append(errs, domain.FieldError{Field: "client_scan_id", Message: "required"})
	}
	if len(clientID) > maxClientScanID {
		errs = append(errs, domain.FieldError{Field: "client_scan_id", Message: fmt.Sprintf("max %d characters", maxClientScanID)})
	}

	barcode := strings.TrimSpace(i.BarcodeValue)
	if barcode == "" && i.ItemID == nil {
		errs = append(errs, domain.FieldError{Field: "barcode_value", Message: "barcode_value or item_id is required"})
	}
	if len(barcode) > maxBarcode {
		errs = append(errs, domain.FieldError{Field: "barcode_value", Message: fmt.Sprintf("max %d characters", maxBarcode)})
	}
	if i.ItemID != nil && *i.ItemID <= 0 {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "must be positive"})
	}
	if i.FoundLocationID != nil && *i.FoundLocationID <= 0 {
		errs = append(errs, domain.FieldError{Field: "found_location_id", Message: "must be positive"})
	}
	if i.Source != "" && !i.Source.IsValid() {
		errs = append(errs, domain.FieldError{Field: "source", Message: "must be barcode or manual"})
	}
	if i.Notes != nil && len(*i.Notes) > maxNoteLength {
		errs = append(errs, domain.FieldError{Field: "notes", Message: fmt.Sprintf("max %d characters", maxNoteLength)})
	}
	if len(i.Metadata) > maxMetadataKeys {
		errs = append(errs, domain.FieldError{Field: "metadata", Message: fmt.Sprintf("max %d keys", maxMetadataKeys)})
	}
	if i.ScanTime != nil && i.ScanTime.IsZero() {
		errs = append(errs, domain.FieldError{Field: "scan_time", Message: "must be a valid timestamp"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// checkScanTime bounds a reported scan_time to the session's run: not before
// it started and not past now plus the allowed clock skew.
func (i ScanInput) checkScanTime(startedAt *time.Time, now time.Time) error {
	if i.ScanTime == nil {
		return nil
	}
	at := *i.ScanTime
	if startedAt != nil && at.Before(*startedAt) {
		return domain.NewValidationError("scan_time", "must not be before the session started")
	}
	if at.After(now.Add(maxScanClockSkew)) {
		return domain.NewValidationError("scan_time", fmt.Sprintf("must not be more than %s in the future", maxScanClockSkew))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Discrepancies and actions
// ---------------------------------------------------------------------------

// ResolveInput records an operator decision on a discrepancy. Status open
// reopens it and clears any previous resolution.
type ResolveInput struct {
	DiscrepancyID uuid.UUID
	Status        domain.ResolutionStatus
	Decision      domain.ResolutionDecision
	Responsible   *domain.ResponsibleChange
	Note          string
}

// Validate checks the fields that do not depend on the discrepancy type.
func (i ResolveInput) Validate() error {
	var errs []domain.FieldError

	if i.DiscrepancyID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "discrepancy_id", Message: "required"})
	}
	if !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "must be open, resolved or ignored"})
	}
	switch i.Status {
	case domain.ResolutionResolved:
		if !i.Decision.IsValid() {
			errs = append(errs, domain.FieldError{Field: "decision", Message: "must be relocate, keep or acknowledge"})
		}
	case domain.ResolutionIgnored, domain.ResolutionOpen:
		if i.Decision != "" {
			errs = append(errs, domain.FieldError{Field: "decision", Message: "only allowed when resolved"})
		}
		if i.Responsible != nil {
			errs = append(errs, domain.FieldError{Field: "responsible", Message: "only allowed when resolved"})
		}
	}
	if i.Responsible != nil && i.Responsible.UserID != nil && *i.Responsible.UserID <= 0 {
		errs = append(errs, domain.FieldError{Field: "responsible.user_id", Message: "must be positive"})
	}
	if len(i.Note) > maxNoteLength {
		errs = append(errs, domain.FieldError{Field: "note", Message: fmt.Sprintf("max %d characters", maxNoteLength)})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// validateFor checks the decision against the discrepancy type.
func (i ResolveInput) validateFor(t domain.DiscrepancyType) error {
	if i.Status != domain.ResolutionResolved {
		return nil
	}
	var errs []domain.FieldError
	if !slices.Contains(domain.AllowedDecisions(t), i.Decision) {
		errs = append(errs, domain.FieldError{Field: "decision", Message: fmt.Sprintf("%s is not allowed for %s", i.Decision, t)})
	}
	if i.Responsible != nil && !domain.AllowsResponsibleChange(t) {
		errs = append(errs, domain.FieldError{Field: "responsible", Message: fmt.Sprintf("not allowed for %s", t)})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListDiscrepanciesInput narrows a discrepancy listing.
type ListDiscrepanciesInput struct {
	SessionID uuid.UUID
	Type      *domain.DiscrepancyType
	Status    *domain.ResolutionStatus
}

// Validate checks all fields and collects all errors.
func (i ListDiscrepanciesInput) Validate() error {
	var errs []domain.FieldError
	if i.Type != nil && !i.Type.IsValid() {
		errs = append(errs, domain.FieldError{Field: "type", Message: "invalid value"})
	}
	if i.Status != nil && !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "invalid value"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListActionsInput narrows an action listing.
type ListActionsInput struct {
	SessionID uuid.UUID
	Statuses  []domain.ActionStatus
}

// Validate checks all fields and collects all errors.
func (i ListActionsInput) Validate() error {
	for _, st := range i.Statuses {
		if !st.IsValid() {
			return domain.NewValidationError("status", fmt.Sprintf("invalid value %q", st))
		}
	}
	return nil
}
