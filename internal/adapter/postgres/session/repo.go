// Package session implements the AuditSession repository using PostgreSQL.
// A partial unique index keeps at most one open session per location.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides audit session persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new session repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const sessionColumns = `id, plan_id, location_id, status, expected_snapshot_version, snapshot_at,
created_by, started_by, started_at, closed_by, closed_at, approved_by, approved_at,
approval_override, approval_note, applied_at, finalized_by, finalized_at,
canceled_by, canceled_at, cancel_reason, created_at, updated_at`

const createSQL = `
INSERT INTO audit_sessions (id, plan_id, location_id, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING ` + sessionColumns

const getByIDSQL = `SELECT ` + sessionColumns + ` FROM audit_sessions WHERE id = $1`

const getByIDForUpdateSQL = getByIDSQL + ` FOR UPDATE`

const getOpenByLocationSQL = `
SELECT ` + sessionColumns + `
FROM audit_sessions
WHERE location_id = $1 AND status NOT IN ('closed', 'canceled')`

const updateSQL = `
UPDATE audit_sessions SET
    status = $2,
    started_by = $3, started_at = $4,
    closed_by = $5, closed_at = $6,
    approved_by = $7, approved_at = $8,
    approval_override = $9, approval_note = $10,
    applied_at = $11,
    finalized_by = $12, finalized_at = $13,
    canceled_by = $14, canceled_at = $15, cancel_reason = $16,
    updated_at = now()
WHERE id = $1
RETURNING ` + sessionColumns

// The version is stamped at most once.
const setSnapshotVersionSQL = `
UPDATE audit_sessions
SET expected_snapshot_version = $2, snapshot_at = $3, updated_at = now()
WHERE id = $1 AND expected_snapshot_version IS NULL`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a session by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	return r.get(ctx, getByIDSQL, id)
}

// GetByIDForUpdate returns a session and locks its row until the transaction ends.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	return r.get(ctx, getByIDForUpdateSQL, id)
}

func (r *Repo) get(ctx context.Context, sql string, id uuid.UUID) (*domain.AuditSession, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	s, err := scanSession(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, postgres.MapError(err, "audit_session", id)
	}
	return s, nil
}

// GetOpenByLocation returns the non-terminal session of a location.
// Returns domain.ErrNotFound if the location has none.
func (r *Repo) GetOpenByLocation(ctx context.Context, locationID int64) (*domain.AuditSession, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	s, err := scanSession(q.QueryRow(ctx, getOpenByLocationSQL, locationID))
	if err != nil {
		return nil, postgres.MapError(err, "audit_session for location", locationID)
	}
	return s, nil
}

// List returns sessions matching the filter, newest first, plus the total count.
func (r *Repo) List(ctx context.Context, f domain.SessionFilter) ([]*domain.AuditSession, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	base := postgres.Builder.Select().From("audit_sessions")
	if f.PlanID != nil {
		base = base.Where("plan_id = ?", *f.PlanID)
	}
	if f.LocationID != nil {
		base = base.Where("location_id = ?", *f.LocationID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		base = base.Where("status = ANY(?)", statuses)
	}

	countSQL, countArgs, err := base.Columns("count(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count sessions: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	sel := base.Columns(sessionColumns).OrderBy("created_at DESC", "id")
	if f.Limit > 0 {
		sel = sel.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	listSQL, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list sessions: %w", err)
	}

	rows, err := q.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*domain.AuditSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, total, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new draft session. A second open session for the same
// location violates the partial unique index and yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, createSQL,
		s.ID, s.PlanID, s.LocationID, string(s.Status), s.CreatedBy, s.CreatedAt.UTC(),
	)

	created, err := scanSession(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_session", s.ID)
	}
	return created, nil
}

// Update persists the status and lifecycle stamps of a session.
func (r *Repo) Update(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, updateSQL,
		s.ID, string(s.Status),
		s.StartedBy, s.StartedAt,
		s.ClosedBy, s.ClosedAt,
		s.ApprovedBy, s.ApprovedAt,
		s.ApprovalOverride, s.ApprovalNote,
		s.AppliedAt,
		s.FinalizedBy, s.FinalizedAt,
		s.CanceledBy, s.CanceledAt, s.CancelReason,
	)

	updated, err := scanSession(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_session", s.ID)
	}
	return updated, nil
}

// SetSnapshotVersion stamps the snapshot version once. Returns
// domain.ErrConflict if the session already has one.
func (r *Repo) SetSnapshotVersion(ctx context.Context, id uuid.UUID, version string, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.db)

	ct, err := q.Exec(ctx, setSnapshotVersionSQL, id, version, at.UTC())
	if err != nil {
		return postgres.MapError(err, "audit_session", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("audit_session %s: snapshot version already set: %w", id, domain.ErrConflict)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanSession(row pgx.Row) (*domain.AuditSession, error) {
	var (
		s      domain.AuditSession
		status string
	)

	err := row.Scan(
		&s.ID, &s.PlanID, &s.LocationID, &status, &s.ExpectedSnapshotVersion, &s.SnapshotAt,
		&s.CreatedBy, &s.StartedBy, &s.StartedAt, &s.ClosedBy, &s.ClosedAt, &s.ApprovedBy, &s.ApprovedAt,
		&s.ApprovalOverride, &s.ApprovalNote, &s.AppliedAt, &s.FinalizedBy, &s.FinalizedAt,
		&s.CanceledBy, &s.CanceledAt, &s.CancelReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.SessionStatus(status)
	return &s, nil
}
