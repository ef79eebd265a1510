package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// PlanScope narrows which items a plan audits. Only the list matching the
// plan's ScopeType is meaningful.
type PlanScope struct {
	LocationIDs   []int64
	DepartmentIDs []int64
	ItemIDs       []int64
}

// AuditPlan groups audit sessions into a campaign. Plans are never deleted.
type AuditPlan struct {
	ID        uuid.UUID
	Title     string
	ScopeType ScopeType
	Scope     PlanScope
	StartDate *time.Time
	EndDate   *time.Time
	Status    PlanStatus
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoversLocation reports whether a session for locationID fits the plan scope.
// Department and custom scopes are not restricted by location.
func (p *AuditPlan) CoversLocation(locationID int64) bool {
	if p.ScopeType != ScopeTypeLocation {
		return true
	}
	return slices.Contains(p.Scope.LocationIDs, locationID)
}

// Includes reports whether an inventory item belongs to the plan scope.
func (p *AuditPlan) Includes(item InventoryItem) bool {
	switch p.ScopeType {
	case ScopeTypeDepartment:
		return item.DepartmentID != nil && slices.Contains(p.Scope.DepartmentIDs, *item.DepartmentID)
	case ScopeTypeCustom:
		return slices.Contains(p.Scope.ItemIDs, item.ID)
	default:
		return true
	}
}

var planTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusDraft:     {PlanStatusScheduled, PlanStatusActive, PlanStatusCanceled},
	PlanStatusScheduled: {PlanStatusActive, PlanStatusCanceled},
	PlanStatusActive:    {PlanStatusClosed, PlanStatusCanceled},
}

// CanTransitionTo reports whether the plan may move from s to next.
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	return slices.Contains(planTransitions[s], next)
}
