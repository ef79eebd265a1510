package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a session lifecycle event published to downstream consumers.
type EventType string

const (
	EventSessionCreated       EventType = "session.created"
	EventSessionSnapshotBuilt EventType = "session.snapshot_built"
	EventSessionStarted       EventType = "session.started"
	EventSessionClosed        EventType = "session.closed"
	EventSessionReconciled    EventType = "session.reconciled"
	EventSessionApproved      EventType = "session.approved"
	EventSessionApplied       EventType = "session.applied"
	EventSessionFinalized     EventType = "session.finalized"
	EventSessionCanceled      EventType = "session.canceled"
	EventActionFailed         EventType = "action.failed"
)

func (t EventType) String() string { return string(t) }

// SessionEvent is emitted after a lifecycle change is committed.
type SessionEvent struct {
	ID         uuid.UUID
	Type       EventType
	SessionID  uuid.UUID
	PlanID     *uuid.UUID
	LocationID int64
	Status     SessionStatus
	ActorID    uuid.UUID
	Attributes map[string]string
	OccurredAt time.Time
}
