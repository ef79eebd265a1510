package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scan is an append-only observation made by a scanner in a session.
// ClientScanID is unique per session and makes ingestion idempotent.
type Scan struct {
	ID            uuid.UUID
	Seq           int64
	SessionID     uuid.UUID
	ClientScanID  string
	ScannerUserID uuid.UUID
	ScanTime      time.Time
	Source        ScanSource
	BarcodeValue  string

	// ItemID is nil when the barcode resolved to nothing.
	ItemID *int64
	// ItemLocationID is the registry location of the item when it was resolved.
	ItemLocationID  *int64
	FoundLocationID int64
	Outcome         ScanOutcome

	Notes     *string
	PhotoURL  *string
	Metadata  map[string]string
	CreatedAt time.Time
}

// ItemResult is the per-item outcome of a session, one row per item.
type ItemResult struct {
	SessionID          uuid.UUID
	ItemID             int64
	Status             ResultStatus
	ExpectedLocationID *int64
	FoundLocationID    *int64
	FirstFoundAt       *time.Time
	LastScanAt         *time.Time
	ScanCount          int
	UpdatedAt          time.Time
}
