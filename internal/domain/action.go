package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is a remediation step compiled from a resolved discrepancy.
type Action struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	DiscrepancyID  uuid.UUID
	ItemID         int64
	Type           ActionType
	Payload        ActionPayload
	Status         ActionStatus
	IdempotencyKey string
	Attempts       int
	LastError      *string
	SentAt         *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActionPayload carries the target values of an action.
type ActionPayload struct {
	ToLocationID      *int64
	ResponsibleUserID *int64
}

// Target renders the payload in the form used by idempotency keys.
func (p ActionPayload) Target(t ActionType) string {
	switch t {
	case ActionMove:
		if p.ToLocationID != nil {
			return fmt.Sprintf("location:%d", *p.ToLocationID)
		}
	case ActionAssignResponsible:
		if p.ResponsibleUserID != nil {
			return fmt.Sprintf("user:%d", *p.ResponsibleUserID)
		}
	}
	return "none"
}

// ActionKey is the stable idempotency key of an action.
func ActionKey(sessionID uuid.UUID, itemID int64, t ActionType, p ActionPayload) string {
	raw := fmt.Sprintf("%s|%d|%s|%s", sessionID, itemID, t, p.Target(t))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
