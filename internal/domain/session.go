package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// AuditSession is a room-by-room count of one location.
// At most one non-terminal session exists per location.
type AuditSession struct {
	ID         uuid.UUID
	PlanID     *uuid.UUID
	LocationID int64
	Status     SessionStatus

	// ExpectedSnapshotVersion is stamped once when the snapshot is captured.
	ExpectedSnapshotVersion *string
	SnapshotAt              *time.Time

	CreatedBy uuid.UUID

	StartedBy  *uuid.UUID
	StartedAt  *time.Time
	ClosedBy   *uuid.UUID
	ClosedAt   *time.Time
	ApprovedBy *uuid.UUID
	ApprovedAt *time.Time

	ApprovalOverride bool
	ApprovalNote     *string

	AppliedAt    *time.Time
	FinalizedBy  *uuid.UUID
	FinalizedAt  *time.Time
	CanceledBy   *uuid.UUID
	CanceledAt   *time.Time
	CancelReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSnapshot reports whether the expected snapshot was captured.
func (s *AuditSession) HasSnapshot() bool {
	return s.ExpectedSnapshotVersion != nil
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusDraft:            {SessionStatusInProgress, SessionStatusCanceled},
	SessionStatusInProgress:       {SessionStatusReconciling, SessionStatusCanceled},
	SessionStatusReconciling:      {SessionStatusAwaitingApproval, SessionStatusCanceled},
	SessionStatusAwaitingApproval: {SessionStatusApproved, SessionStatusCanceled},
	SessionStatusApproved:         {SessionStatusApplied, SessionStatusCanceled},
	SessionStatusApplied:          {SessionStatusClosed, SessionStatusCanceled},
}

// CanTransitionTo reports whether the session may move from s to next.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return slices.Contains(sessionTransitions[s], next)
}

// SessionTransitions returns the allowed targets for each status.
func SessionTransitions() map[SessionStatus][]SessionStatus {
	out := make(map[SessionStatus][]SessionStatus, len(sessionTransitions))
	for from, to := range sessionTransitions {
		out[from] = slices.Clone(to)
	}
	return out
}

// ExpectedItem is one row of the snapshot captured at session start. Immutable.
type ExpectedItem struct {
	SessionID             uuid.UUID
	ItemID                int64
	Barcode               string
	Name                  string
	ExpectedLocationID    int64
	ExpectedResponsibleID *int64
	DepartmentID          *int64
	CapturedAt            time.Time
}
