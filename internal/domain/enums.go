package domain

// PlanStatus is the lifecycle status of an audit plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusScheduled PlanStatus = "scheduled"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusClosed    PlanStatus = "closed"
	PlanStatusCanceled  PlanStatus = "canceled"
)

func (s PlanStatus) String() string { return string(s) }

func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusScheduled, PlanStatusActive, PlanStatusClosed, PlanStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether the plan can no longer change status.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusClosed || s == PlanStatusCanceled
}

// AcceptsSessions reports whether new sessions may be opened under the plan.
func (s PlanStatus) AcceptsSessions() bool {
	return s == PlanStatusScheduled || s == PlanStatusActive
}

// ScopeType selects how a plan narrows the items expected in a location.
type ScopeType string

const (
	ScopeTypeLocation   ScopeType = "location"
	ScopeTypeDepartment ScopeType = "department"
	ScopeTypeCustom     ScopeType = "custom"
)

func (t ScopeType) String() string { return string(t) }

func (t ScopeType) IsValid() bool {
	switch t {
	case ScopeTypeLocation, ScopeTypeDepartment, ScopeTypeCustom:
		return true
	}
	return false
}

// SessionStatus is the lifecycle status of an audit session.
type SessionStatus string

const (
	SessionStatusDraft            SessionStatus = "draft"
	SessionStatusInProgress       SessionStatus = "in_progress"
	SessionStatusReconciling      SessionStatus = "reconciling"
	SessionStatusAwaitingApproval SessionStatus = "awaiting_approval"
	SessionStatusApproved         SessionStatus = "approved"
	SessionStatusApplied          SessionStatus = "applied"
	SessionStatusClosed           SessionStatus = "closed"
	SessionStatusCanceled         SessionStatus = "canceled"
)

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusInProgress, SessionStatusReconciling,
		SessionStatusAwaitingApproval, SessionStatusApproved, SessionStatusApplied,
		SessionStatusClosed, SessionStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether the session is closed or canceled.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusClosed || s == SessionStatusCanceled
}

// AcceptsResolutions reports whether discrepancies may still be resolved.
func (s SessionStatus) AcceptsResolutions() bool {
	switch s {
	case SessionStatusInProgress, SessionStatusReconciling, SessionStatusAwaitingApproval:
		return true
	}
	return false
}

// ResultStatus is the per-item outcome of a session.
type ResultStatus string

const (
	ResultStatusMissing      ResultStatus = "missing"
	ResultStatusFound        ResultStatus = "found"
	ResultStatusFoundInPlace ResultStatus = "found_in_place"
)

func (s ResultStatus) String() string { return string(s) }

func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultStatusMissing, ResultStatusFound, ResultStatusFoundInPlace:
		return true
	}
	return false
}

// DiscrepancyType classifies a difference between expected and observed state.
type DiscrepancyType string

const (
	DiscrepancyMissing        DiscrepancyType = "missing"
	DiscrepancyMisplaced      DiscrepancyType = "misplaced"
	DiscrepancyUnexpected     DiscrepancyType = "unexpected"
	DiscrepancyDuplicate      DiscrepancyType = "duplicate"
	DiscrepancyUnknownBarcode DiscrepancyType = "unknown_barcode"
)

func (t DiscrepancyType) String() string { return string(t) }

func (t DiscrepancyType) IsValid() bool {
	switch t {
	case DiscrepancyMissing, DiscrepancyMisplaced, DiscrepancyUnexpected,
		DiscrepancyDuplicate, DiscrepancyUnknownBarcode:
		return true
	}
	return false
}

// ResolutionStatus tracks operator handling of a discrepancy.
type ResolutionStatus string

const (
	ResolutionOpen     ResolutionStatus = "open"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionIgnored  ResolutionStatus = "ignored"
)

func (s ResolutionStatus) String() string { return string(s) }

func (s ResolutionStatus) IsValid() bool {
	switch s {
	case ResolutionOpen, ResolutionResolved, ResolutionIgnored:
		return true
	}
	return false
}

// ResolutionDecision is the operator's verdict for a resolved discrepancy.
type ResolutionDecision string

const (
	// DecisionRelocate confirms the found location as the item's new home.
	DecisionRelocate ResolutionDecision = "relocate"
	// DecisionKeep keeps the registry as is; the item goes back physically.
	DecisionKeep ResolutionDecision = "keep"
	// DecisionAcknowledge records the finding without changing the registry.
	DecisionAcknowledge ResolutionDecision = "acknowledge"
)

func (d ResolutionDecision) String() string { return string(d) }

func (d ResolutionDecision) IsValid() bool {
	switch d {
	case DecisionRelocate, DecisionKeep, DecisionAcknowledge:
		return true
	}
	return false
}

// ActionType is the kind of remediation sent to the inventory backend.
type ActionType string

const (
	ActionMove              ActionType = "move"
	ActionAssignResponsible ActionType = "assign_responsible"
	ActionClearResponsible  ActionType = "clear_responsible"
)

func (t ActionType) String() string { return string(t) }

func (t ActionType) IsValid() bool {
	switch t {
	case ActionMove, ActionAssignResponsible, ActionClearResponsible:
		return true
	}
	return false
}

// ActionStatus tracks delivery of a remediation action.
type ActionStatus string

const (
	ActionStatusPending ActionStatus = "pending"
	ActionStatusSent    ActionStatus = "sent"
	ActionStatusDone    ActionStatus = "done"
	ActionStatusFailed  ActionStatus = "failed"
)

func (s ActionStatus) String() string { return string(s) }

func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending, ActionStatusSent, ActionStatusDone, ActionStatusFailed:
		return true
	}
	return false
}

// NeedsDelivery reports whether apply should (re)send the action.
// A sent action never got an answer recorded and is retried.
func (s ActionStatus) NeedsDelivery() bool {
	return s == ActionStatusPending || s == ActionStatusSent || s == ActionStatusFailed
}

// ScanSource records how a scan was captured.
type ScanSource string

const (
	ScanSourceBarcode ScanSource = "barcode"
	ScanSourceManual  ScanSource = "manual"
)

func (s ScanSource) String() string { return string(s) }

func (s ScanSource) IsValid() bool {
	return s == ScanSourceBarcode || s == ScanSourceManual
}

// ScanOutcome is the classification recorded for a scan at ingest time.
type ScanOutcome string

const (
	OutcomeFoundInPlace   ScanOutcome = "found_in_place"
	OutcomeMisplaced      ScanOutcome = "misplaced"
	OutcomeUnexpected     ScanOutcome = "unexpected"
	OutcomeDuplicate      ScanOutcome = "duplicate"
	OutcomeRescan         ScanOutcome = "rescan"
	OutcomeUnknownBarcode ScanOutcome = "unknown_barcode"
)

func (o ScanOutcome) String() string { return string(o) }

func (o ScanOutcome) IsValid() bool {
	switch o {
	case OutcomeFoundInPlace, OutcomeMisplaced, OutcomeUnexpected,
		OutcomeDuplicate, OutcomeRescan, OutcomeUnknownBarcode:
		return true
	}
	return false
}
