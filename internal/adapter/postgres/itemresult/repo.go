// Package itemresult implements the per-item session outcome repository.
package itemresult

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides item result persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new item result repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const resultColumns = `session_id, item_id, status, expected_location_id, found_location_id,
first_found_at, last_scan_at, scan_count, updated_at`

const upsertSQL = `
INSERT INTO audit_item_results (session_id, item_id, status, expected_location_id, found_location_id,
    first_found_at, last_scan_at, scan_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (session_id, item_id) DO UPDATE SET
    status               = EXCLUDED.status,
    expected_location_id = EXCLUDED.expected_location_id,
    found_location_id    = EXCLUDED.found_location_id,
    first_found_at       = EXCLUDED.first_found_at,
    last_scan_at         = EXCLUDED.last_scan_at,
    scan_count           = EXCLUDED.scan_count,
    updated_at           = now()
RETURNING ` + resultColumns

const getSQL = `
SELECT ` + resultColumns + `
FROM audit_item_results
WHERE session_id = $1 AND item_id = $2`

const listBySessionSQL = `
SELECT ` + resultColumns + `
FROM audit_item_results
WHERE session_id = $1
ORDER BY item_id`

const deleteBySessionSQL = `DELETE FROM audit_item_results WHERE session_id = $1`

// Upsert writes the result for (session, item), replacing any previous row.
func (r *Repo) Upsert(ctx context.Context, res *domain.ItemResult) (*domain.ItemResult, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, upsertSQL,
		res.SessionID, res.ItemID, string(res.Status), res.ExpectedLocationID, res.FoundLocationID,
		res.FirstFoundAt, res.LastScanAt, res.ScanCount,
	)

	out, err := scanResult(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_item_result", res.ItemID)
	}
	return out, nil
}

// Get returns the result of an item. Returns domain.ErrNotFound when the item
// has not been observed or reconciled yet.
func (r *Repo) Get(ctx context.Context, sessionID uuid.UUID, itemID int64) (*domain.ItemResult, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	res, err := scanResult(q.QueryRow(ctx, getSQL, sessionID, itemID))
	if err != nil {
		return nil, postgres.MapError(err, "audit_item_result", itemID)
	}
	return res, nil
}

// ListBySession returns every result of a session ordered by item id.
func (r *Repo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.ItemResult, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list item results: %w", err)
	}
	defer rows.Close()

	results := []*domain.ItemResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list item results: %w", err)
	}
	return results, nil
}

// DeleteBySession drops every result of a session. Used by reclassification.
func (r *Repo) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	if _, err := q.Exec(ctx, deleteBySessionSQL, sessionID); err != nil {
		return fmt.Errorf("delete item results: %w", err)
	}
	return nil
}

func scanResult(row pgx.Row) (*domain.ItemResult, error) {
	var (
		res    domain.ItemResult
		status string
	)

	if err := row.Scan(&res.SessionID, &res.ItemID, &status, &res.ExpectedLocationID, &res.FoundLocationID,
		&res.FirstFoundAt, &res.LastScanAt, &res.ScanCount, &res.UpdatedAt); err != nil {
		return nil, err
	}

	res.Status = domain.ResultStatus(status)
	return &res, nil
}
