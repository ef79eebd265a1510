// Package action implements the remediation Action repository using PostgreSQL.
package action

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

// Repo provides action persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new action repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const actionColumns = `id, session_id, discrepancy_id, item_id, action_type, payload, status, idempotency_key,
attempts, last_error, sent_at, completed_at, created_at, updated_at`

const insertSQL = `
INSERT INTO audit_actions (id, session_id, discrepancy_id, item_id, action_type, payload, status,
    idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + actionColumns

const getByKeySQL = `SELECT ` + actionColumns + ` FROM audit_actions WHERE idempotency_key = $1`

const getByIDSQL = `SELECT ` + actionColumns + ` FROM audit_actions WHERE id = $1`

const updateStatusSQL = `
UPDATE audit_actions SET
    status       = $2,
    attempts     = $3,
    last_error   = $4,
    sent_at      = $5,
    completed_at = $6,
    updated_at   = now()
WHERE id = $1
RETURNING ` + actionColumns

// Insert stores a pending action unless one with the same idempotency key
// already exists. created is false when the existing row is returned.
func (r *Repo) Insert(ctx context.Context, a *domain.Action) (*domain.Action, bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	payload, err := json.Marshal(payloadJSON{ToLocationID: a.Payload.ToLocationID, ResponsibleUserID: a.Payload.ResponsibleUserID})
	if err != nil {
		return nil, false, fmt.Errorf("audit_action %s: marshal payload: %w", a.ID, err)
	}

	row := q.QueryRow(ctx, insertSQL,
		a.ID, a.SessionID, a.DiscrepancyID, a.ItemID, string(a.Type), payload, string(a.Status),
		a.IdempotencyKey, a.CreatedAt.UTC(),
	)

	created, err := scanAction(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, postgres.MapError(err, "audit_action", a.IdempotencyKey)
	}

	existing, err := scanAction(q.QueryRow(ctx, getByKeySQL, a.IdempotencyKey))
	if err != nil {
		return nil, false, postgres.MapError(err, "audit_action", a.IdempotencyKey)
	}
	return existing, false, nil
}

// GetByID returns an action by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	a, err := scanAction(q.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, postgres.MapError(err, "audit_action", id)
	}
	return a, nil
}

// List returns the actions of a session in creation order.
func (r *Repo) List(ctx context.Context, f domain.ActionFilter) ([]*domain.Action, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sel := postgres.Builder.Select(actionColumns).
		From("audit_actions").
		Where("session_id = ?", f.SessionID)
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		sel = sel.Where("status = ANY(?)", statuses)
	}

	sql, args, err := sel.OrderBy("created_at", "idempotency_key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list actions: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return out, nil
}

// UpdateStatus persists the delivery state of a.
func (r *Repo) UpdateStatus(ctx context.Context, a *domain.Action) (*domain.Action, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	row := q.QueryRow(ctx, updateStatusSQL,
		a.ID, string(a.Status), a.Attempts, a.LastError, a.SentAt, a.CompletedAt,
	)

	updated, err := scanAction(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_action", a.ID)
	}
	return updated, nil
}

type payloadJSON struct {
	ToLocationID      *int64 `json:"to_location_id,omitempty"`
	ResponsibleUserID *int64 `json:"responsible_user_id,omitempty"`
}

func scanAction(row pgx.Row) (*domain.Action, error) {
	var (
		a          domain.Action
		actionType string
		status     string
		payloadRaw []byte
	)

	err := row.Scan(&a.ID, &a.SessionID, &a.DiscrepancyID, &a.ItemID, &actionType, &payloadRaw, &status,
		&a.IdempotencyKey, &a.Attempts, &a.LastError, &a.SentAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var p payloadJSON
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal action payload: %w", err)
		}
	}

	a.Type = domain.ActionType(actionType)
	a.Status = domain.ActionStatus(status)
	a.Payload = domain.ActionPayload{ToLocationID: p.ToLocationID, ResponsibleUserID: p.ResponsibleUserID}
	return &a, nil
}
