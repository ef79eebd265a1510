// Package scan implements the append-only AuditScan repository using PostgreSQL.
package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides scan persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new scan repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const scanColumns = `id, seq, session_id, client_scan_id, scanner_user_id, scan_time, source, barcode_value,
item_id, item_location_id, found_location_id, outcome, notes, photo_url, metadata, created_at`

const createSQL = `
INSERT INTO audit_scans (id, session_id, client_scan_id, scanner_user_id, scan_time, source, barcode_value,
    item_id, item_location_id, found_location_id, outcome, notes, photo_url, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + scanColumns

const getByClientScanIDSQL = `
SELECT ` + scanColumns + `
FROM audit_scans
WHERE session_id = $1 AND client_scan_id = $2`

// Scans replay in ingest order. scan_time is device-reported and may run
// backwards, so it never decides first sighting.
const listBySessionSQL = `
SELECT ` + scanColumns + `
FROM audit_scans
WHERE session_id = $1
ORDER BY seq`

const countBySessionSQL = `SELECT count(*) FROM audit_scans WHERE session_id = $1`

// Create appends a scan. A repeated client_scan_id in the same session
// yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, s *domain.Scan) (*domain.Scan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	meta, err := json.Marshal(metadataOrEmpty(s.Metadata))
	if err != nil {
		return nil, fmt.Errorf("audit_scan %s: marshal metadata: %w", s.ID, err)
	}

	row := q.QueryRow(ctx, createSQL,
		s.ID, s.SessionID, s.ClientScanID, s.ScannerUserID, s.ScanTime.UTC(), string(s.Source), s.BarcodeValue,
		s.ItemID, s.ItemLocationID, s.FoundLocationID, string(s.Outcome), s.Notes, s.PhotoURL, meta, s.CreatedAt.UTC(),
	)

	created, err := scanRow(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_scan", s.ClientScanID)
	}
	return created, nil
}

// GetByClientScanID returns the scan previously stored under clientScanID.
func (r *Repo) GetByClientScanID(ctx context.Context, sessionID uuid.UUID, clientScanID string) (*domain.Scan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	s, err := scanRow(q.QueryRow(ctx, getByClientScanIDSQL, sessionID, clientScanID))
	if err != nil {
		return nil, postgres.MapError(err, "audit_scan", clientScanID)
	}
	return s, nil
}

// ListBySession returns all scans of a session in capture order.
func (r *Repo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Scan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := []*domain.Scan{}
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit_scan row: %w", err)
		}
		scans = append(scans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}

// CountBySession returns the number of scans in a session.
func (r *Repo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var n int
	if err := q.QueryRow(ctx, countBySessionSQL, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func scanRow(row pgx.Row) (*domain.Scan, error) {
	var (
		s       domain.Scan
		source  string
		outcome string
		meta    []byte
	)

	err := row.Scan(&s.ID, &s.Seq, &s.SessionID, &s.ClientScanID, &s.ScannerUserID, &s.ScanTime, &source,
		&s.BarcodeValue, &s.ItemID, &s.ItemLocationID, &s.FoundLocationID, &outcome, &s.Notes, &s.PhotoURL,
		&meta, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal scan metadata: %w", err)
		}
	}

	s.Source = domain.ScanSource(source)
	s.Outcome = domain.ScanOutcome(outcome)
	return &s, nil
}
