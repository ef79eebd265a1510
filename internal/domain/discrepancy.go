package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Discrepancy is a derived difference between the snapshot and the scans.
// It is never resolved automatically.
type Discrepancy struct {
	ID                    uuid.UUID
	SessionID             uuid.UUID
	Type                  DiscrepancyType
	ItemID                *int64
	BarcodeValue          *string
	ExpectedLocationID    *int64
	FoundLocationID       *int64
	ExpectedResponsibleID *int64
	ScanID                *uuid.UUID

	// DedupKey identifies the discrepancy within its session so that
	// reclassification never inserts the same finding twice.
	DedupKey string

	ResolutionStatus ResolutionStatus
	Resolution       *Resolution
	ResolvedBy       *uuid.UUID
	ResolvedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the discrepancy still awaits a decision.
func (d *Discrepancy) IsOpen() bool {
	return d.ResolutionStatus == ResolutionOpen
}

// Resolution is the typed payload attached to a resolved or ignored discrepancy.
type Resolution struct {
	Decision    ResolutionDecision
	Responsible *ResponsibleChange
	Note        string
}

// ResponsibleChange sets or clears the responsible person of an item.
// A nil UserID clears it.
type ResponsibleChange struct {
	UserID *int64
}

// DiscrepancyKey builds the per-session natural key of a finding.
func DiscrepancyKey(t DiscrepancyType, itemID *int64, barcode string, foundLocationID *int64) string {
	subject := "barcode:" + barcode
	if itemID != nil {
		subject = fmt.Sprintf("item:%d", *itemID)
	}
	where := "-"
	if foundLocationID != nil {
		where = fmt.Sprintf("%d", *foundLocationID)
	}
	return fmt.Sprintf("%s|%s|%s", t, subject, where)
}

// AllowedDecisions lists the resolution decisions valid for a discrepancy type.
func AllowedDecisions(t DiscrepancyType) []ResolutionDecision {
	switch t {
	case DiscrepancyMisplaced, DiscrepancyUnexpected:
		return []ResolutionDecision{DecisionRelocate, DecisionKeep, DecisionAcknowledge}
	case DiscrepancyMissing:
		return []ResolutionDecision{DecisionKeep, DecisionAcknowledge}
	default:
		return []ResolutionDecision{DecisionAcknowledge}
	}
}

// AllowsResponsibleChange reports whether a resolution of type t may change
// the responsible person of the item.
func AllowsResponsibleChange(t DiscrepancyType) bool {
	switch t {
	case DiscrepancyMissing, DiscrepancyMisplaced, DiscrepancyUnexpected:
		return true
	}
	return false
}
