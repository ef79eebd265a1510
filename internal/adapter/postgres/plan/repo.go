// Package plan implements the AuditPlan repository using PostgreSQL.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// Repo provides audit plan persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new plan repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const planColumns = `id, title, scope_type, scope, start_date, end_date, status, created_by, created_at, updated_at`

const createSQL = `
INSERT INTO audit_plans (id, title, scope_type, scope, start_date, end_date, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING ` + planColumns

const getByIDSQL = `SELECT ` + planColumns + ` FROM audit_plans WHERE id = $1`

const getByIDForUpdateSQL = getByIDSQL + ` FOR UPDATE`

const updateStatusSQL = `
UPDATE audit_plans SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + planColumns

// Create inserts a new plan.
func (r *Repo) Create(ctx context.Context, p *domain.AuditPlan) (*domain.AuditPlan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	scope, err := json.Marshal(toScopeJSON(p.Scope))
	if err != nil {
		return nil, fmt.Errorf("audit_plan %s: marshal scope: %w", p.ID, err)
	}

	row := q.QueryRow(ctx, createSQL,
		p.ID, p.Title, string(p.ScopeType), scope, p.StartDate, p.EndDate,
		string(p.Status), p.CreatedBy, p.CreatedAt.UTC(),
	)

	created, err := scanPlan(row)
	if err != nil {
		return nil, postgres.MapError(err, "audit_plan", p.ID)
	}
	return created, nil
}

// GetByID returns a plan by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditPlan, error) {
	return r.get(ctx, getByIDSQL, id)
}

// GetByIDForUpdate returns a plan and locks its row until the transaction ends.
func (r *Repo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditPlan, error) {
	return r.get(ctx, getByIDForUpdateSQL, id)
}

func (r *Repo) get(ctx context.Context, sql string, id uuid.UUID) (*domain.AuditPlan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	p, err := scanPlan(q.QueryRow(ctx, sql, id))
	if err != nil {
		return nil, postgres.MapError(err, "audit_plan", id)
	}
	return p, nil
}

// List returns plans matching the filter, newest first, plus the total count.
func (r *Repo) List(ctx context.Context, f domain.PlanFilter) ([]*domain.AuditPlan, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	base := postgres.Builder.Select().From("audit_plans")
	if f.Status != nil {
		base = base.Where("status = ?", string(*f.Status))
	}

	countSQL, countArgs, err := base.Columns("count(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count plans: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	sel := base.Columns(planColumns).OrderBy("created_at DESC", "id")
	if f.Limit > 0 {
		sel = sel.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	listSQL, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list plans: %w", err)
	}

	rows, err := q.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*domain.AuditPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}

	return plans, total, nil
}

// UpdateStatus sets the plan status.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus) (*domain.AuditPlan, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	p, err := scanPlan(q.QueryRow(ctx, updateStatusSQL, id, string(status)))
	if err != nil {
		return nil, postgres.MapError(err, "audit_plan", id)
	}
	return p, nil
}

// scopeJSON is the JSONB shape of domain.PlanScope.
type scopeJSON struct {
	LocationIDs   []int64 `json:"location_ids,omitempty"`
	DepartmentIDs []int64 `json:"department_ids,omitempty"`
	ItemIDs       []int64 `json:"item_ids,omitempty"`
}

func toScopeJSON(s domain.PlanScope) scopeJSON {
	return scopeJSON{LocationIDs: s.LocationIDs, DepartmentIDs: s.DepartmentIDs, ItemIDs: s.ItemIDs}
}

func scanPlan(row pgx.Row) (*domain.AuditPlan, error) {
	var (
		p         domain.AuditPlan
		scopeType string
		status    string
		scopeRaw  []byte
		startDate *time.Time
		endDate   *time.Time
	)

	if err := row.Scan(&p.ID, &p.Title, &scopeType, &scopeRaw, &startDate, &endDate,
		&status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	var s scopeJSON
	if len(scopeRaw) > 0 {
		if err := json.Unmarshal(scopeRaw, &s); err != nil {
			return nil, fmt.Errorf("unmarshal plan scope: %w", err)
		}
	}

	p.ScopeType = domain.ScopeType(scopeType)
	p.Status = domain.PlanStatus(status)
	p.Scope = domain.PlanScope{LocationIDs: s.LocationIDs, DepartmentIDs: s.DepartmentIDs, ItemIDs: s.ItemIDs}
	p.StartDate = startDate
	p.EndDate = endDate

	return &p, nil
}
