package domain

import "github.com/google/uuid"

// PlanFilter contains filtering/pagination parameters for plan listings.
type PlanFilter struct {
	Status *PlanStatus
	Limit  int
	Offset int
}

// SessionFilter contains filtering/pagination parameters for session listings.
type SessionFilter struct {
	PlanID     *uuid.UUID
	LocationID *int64
	Statuses   []SessionStatus
	Limit      int
	Offset     int
}

// DiscrepancyFilter narrows the discrepancies of a session.
type DiscrepancyFilter struct {
	SessionID uuid.UUID
	Type      *DiscrepancyType
	Status    *ResolutionStatus
}

// ActionFilter narrows the actions of a session.
type ActionFilter struct {
	SessionID uuid.UUID
	Statuses  []ActionStatus
}
