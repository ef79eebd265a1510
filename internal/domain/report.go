package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionRollup aggregates the outcome of one session.
type SessionRollup struct {
	SessionID  uuid.UUID
	LocationID int64
	Status     SessionStatus

	ExpectedCount int
	FoundInPlace  int
	FoundMoved    int
	Missing       int
	Unexpected    int
	ScanCount     int

	DiscrepanciesByType map[DiscrepancyType]int
	OpenDiscrepancies   int

	ActionsByStatus map[ActionStatus]int

	// FoundRate is (found_in_place + found) / expected, 0 for an empty snapshot.
	FoundRate decimal.Decimal
}

// PlanReport is projected on demand from a plan's sessions.
type PlanReport struct {
	Plan          *AuditPlan
	RoomsTotal    int
	RoomsDone     int
	ExpectedTotal int
	FoundTotal    int
	FoundRate     decimal.Decimal
	Sessions      []SessionRollup
	GeneratedAt   time.Time
}

// FoundRate divides found by expected and rounds to four places.
func FoundRate(found, expected int) decimal.Decimal {
	if expected <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(found)).
		DivRound(decimal.NewFromInt(int64(expected)), 4)
}
