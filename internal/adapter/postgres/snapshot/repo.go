// Package snapshot stores the expected items captured when a session starts.
// Rows are insert-only.
package snapshot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides expected snapshot persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new snapshot repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const itemColumns = `session_id, item_id, barcode, name, expected_location_id, expected_responsible_id, department_id, captured_at`

const insertSQL = `
INSERT INTO audit_expected_items (` + itemColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listBySessionSQL = `
SELECT ` + itemColumns + `
FROM audit_expected_items
WHERE session_id = $1
ORDER BY item_id`

const getByItemSQL = `
SELECT ` + itemColumns + `
FROM audit_expected_items
WHERE session_id = $1 AND item_id = $2`

const getByBarcodeSQL = `
SELECT ` + itemColumns + `
FROM audit_expected_items
WHERE session_id = $1 AND barcode = $2
ORDER BY item_id
LIMIT 1`

const countBySessionSQL = `SELECT count(*) FROM audit_expected_items WHERE session_id = $1`

// InsertBatch stores the snapshot rows in one round trip.
func (r *Repo) InsertBatch(ctx context.Context, items []domain.ExpectedItem) error {
	if len(items) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.db)

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(insertSQL,
			it.SessionID, it.ItemID, it.Barcode, it.Name, it.ExpectedLocationID,
			it.ExpectedResponsibleID, it.DepartmentID, it.CapturedAt.UTC(),
		)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for _, it := range items {
		if _, err := br.Exec(); err != nil {
			return postgres.MapError(err, "audit_expected_item", it.ItemID)
		}
	}
	return nil
}

// ListBySession returns the snapshot ordered by item id.
func (r *Repo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExpectedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	rows, err := q.Query(ctx, listBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list expected items: %w", err)
	}
	defer rows.Close()

	items := []domain.ExpectedItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expected item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expected items: %w", err)
	}
	return items, nil
}

// GetByItem returns the snapshot row for an item.
func (r *Repo) GetByItem(ctx context.Context, sessionID uuid.UUID, itemID int64) (*domain.ExpectedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	it, err := scanItem(q.QueryRow(ctx, getByItemSQL, sessionID, itemID))
	if err != nil {
		return nil, postgres.MapError(err, "audit_expected_item", itemID)
	}
	return it, nil
}

// GetByBarcode returns the snapshot row carrying barcode.
func (r *Repo) GetByBarcode(ctx context.Context, sessionID uuid.UUID, barcode string) (*domain.ExpectedItem, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	it, err := scanItem(q.QueryRow(ctx, getByBarcodeSQL, sessionID, barcode))
	if err != nil {
		return nil, postgres.MapError(err, "audit_expected_item", barcode)
	}
	return it, nil
}

// CountBySession returns the snapshot size.
func (r *Repo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var n int
	if err := q.QueryRow(ctx, countBySessionSQL, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expected items: %w", err)
	}
	return n, nil
}

func scanItem(row pgx.Row) (*domain.ExpectedItem, error) {
	var it domain.ExpectedItem
	if err := row.Scan(&it.SessionID, &it.ItemID, &it.Barcode, &it.Name, &it.ExpectedLocationID,
		&it.ExpectedResponsibleID, &it.DepartmentID, &it.CapturedAt); err != nil {
		return nil, err
	}
	return &it, nil
}
