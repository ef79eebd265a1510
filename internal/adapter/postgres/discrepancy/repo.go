// Package discrepancy implements the Discrepancy repository using PostgreSQL.
// Rows are deduplicated per session by dedup_key.
package discrepancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides discrepancy persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new discrepancy repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const discrepancyColumns = `id, session_id, type, item_id, barcode_value, expected_location_id, found_location_id,
expected_responsible_id, scan_id, dedup_key, resolution_status, resolution, resolved_by, resolved_at,
created_at, updated_at`

const insertSQL = `
INSERT INTO audit_discrepancies (id, session_id, type, item_id, barcode_value, expected_location_id,
    found_location_id, expected_responsible_id, scan_id, dedup_key, resolution_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'open', $11, $11)
ON CONFLICT (session_id, dedup_key) DO NOTHING
RETURNING ` + discrepancyColumns

const getByKeySQL = `
SELECT ` + discrepancyColumns + `
FROM audit_discrepancies
WHERE session_id = $1 AND dedup_key = $2`

const getByIDSQL = `SELECT ` + discrepancyColumns + ` FROM audit_discrepancies WHERE id = $1`

const getByIDForUpdateSQL = getByIDSQL + ` FOR UPDATE`

const countOpenSQL = `
SELECT count(*) FROM audit_discrepancies
WHERE session_id = $1 AND resolution_status = 'open'`

const updateResolutionSQL = `
UPDATE audit_discrepancies SET
    resolution_status = $2,
    resolution        = $3,
    resolved_by       = $4,
    resolved_at       = $5,
    updated_at        = now()
WHERE id = $1
RETURNING ` + discrepancyColumns

// Insert stores d unless the session already holds a discrepancy with the
// same dedup key. created is false when the existing row is returned.
func (r *Repo) Insert(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, insertSQL,
		d.ID, d.SessionID, string(d.Type), d.ItemID, d.BarcodeValue, d.ExpectedLocationID,
		d.FoundLocationID, d.ExpectedResponsibleID, d.ScanID, d.DedupKey, d.CreatedAt.UTC(),
	)

	created, err := scanDiscrepancy(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, postgres.MapError(err, "audit_discrepancy", d.DedupKey)
	}

	existing, err := scanDiscrepancy(q.QueryRow(ctx, getByKeySQL, d.SessionID, d.DedupKey))
	if err != nil {
		return nil, false, postgres.MapError(err, "audit_discrepancy", d.DedupKey)
	}
	return existing, false, nil
}

// GetByID returns a discrepancy by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Discrepancy, error) {
	return r.get(ctx, getByIDSQL, id)
}

// GetByIDForUpdate returns a discrepancy and locks its row.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Discrepancy, error) {
	return r.get(ctx, getByIDForUpdateSQL, id)
}

func (r *Repo) get(ctx context.Context, sql string, id uuid.UUID) (*domain.Discrepancy, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	d, err := scanDiscrepancy(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, postgres.MapError(err, "audit_discrepancy", id)
	}
	return d, nil
}

// List returns the discrepancies of a session in creation order.
func (r *Repo) List(ctx context.Context, f domain.DiscrepancyFilter) ([]*domain.Discrepancy, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sel := postgres.Builder.Select(discrepancyColumns).
		From("audit_discrepancies").
		Where("session_id = ?", f.SessionID)
	if f.Type != nil {
		sel = sel.Where("type = ?", string(*f.Type))
	}
	if f.Status != nil {
		sel = sel.Where("resolution_status = ?", string(*f.Status))
	}

	sql, args, err := sel.OrderBy("created_at", "dedup_key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list discrepancies: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	defer rows.Close()

	out := []*domain.Discrepancy{}
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	return out, nil
}

// CountOpen returns how many discrepancies of the session are still open.
func (r *Repo) CountOpen(ctx context.Context, sessionID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var n int
	if err := q.QueryRow(ctx, countOpenSQL, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open discrepancies: %w", err)
	}
	return n, nil
}

// UpdateResolution persists the resolution fields of d.
func (r *Repo) UpdateResolution(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var resolution []byte
	if d.Resolution != nil {
		raw, err := json.Marshal(toResolutionJSON(d.Resolution))
		if err != nil {
			return nil, fmt.Errorf("audit_discrepancy %s: marshal resolution: %w", d.ID, err)
		}
		resolution = raw
	}

	row := q.QueryRow(ctx, updateResolutionSQL,
		d.ID, string(d.ResolutionStatus), resolution, d.ResolvedBy, d.ResolvedAt,
	)

	updated, err := scanDiscrepancy(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_discrepancy", d.ID)
	}
	return updated, nil
}

// resolutionJSON is the JSONB shape of domain.Resolution.
type resolutionJSON struct {
	Decision    string           `json:"decision"`
	Responsible *responsibleJSON `json:"responsible,omitempty"`
	Note        string           `json:"note,omitempty"`
}

type responsibleJSON struct {
	UserID *int64 `json:"user_id"`
}

func toResolutionJSON(r *domain.Resolution) resolutionJSON {
	out := resolutionJSON{Decision: string(r.Decision), Note: r.Note}
	if r.Responsible != nil {
		out.Responsible = &responsibleJSON{UserID: r.Responsible.UserID}
	}
	return out
}

func (r resolutionJSON) toDomain() *domain.Resolution {
	out := &domain.Resolution{Decision: domain.ResolutionDecision(r.Decision), Note: r.Note}
	if r.Responsible != nil {
		out.Responsible = &domain.ResponsibleChange{UserID: r.Responsible.UserID}
	}
	return out
}

func scanDiscrepancy(row pgx.Row) (*domain.Discrepancy, error) {
	var (
		d             domain.Discrepancy
		typ           string
		status        string
		resolutionRaw []byte
	)

	err := row.Scan(&d.ID, &d.SessionID, &typ, &d.ItemID, &d.BarcodeValue, &d.ExpectedLocationID,
		&d.FoundLocationID, &d.ExpectedResponsibleID, &d.ScanID, &d.DedupKey, &status, &resolutionRaw,
		&d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(resolutionRaw) > 0 {
		var rj resolutionJSON
		if err := json.Unmarshal(resolutionRaw, &rj); err != nil {
			return nil, fmt.Errorf("unmarshal resolution: %w", err)
		}
		d.Resolution = rj.toDomain()
	}

	d.Type = domain.DiscrepancyType(typ)
	d.ResolutionStatus = domain.ResolutionStatus(status)
	return &d, nil
}
