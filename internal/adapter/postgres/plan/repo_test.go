package plan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

var planRowColumns = []string{
	"id", "title", "scope_type", "scope", "start_date", "end_date", "status", "created_by", "created_at", "updated_at",
}

func newRepo(t *testing.T) (*Repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestRepo_GetByID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
		check   func(t *testing.T, p *domain.AuditPlan)
	}{
		{
			name: "found",
			setup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(planRowColumns).AddRow(
					id, "Q3 audit", "location", []byte(`{"location_ids":[10,20]}`), nil, nil,
					"draft", uuid.New(), now, now,
				)
				mock.ExpectQuery(`SELECT .+ FROM audit_plans WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)
			},
			check: func(t *testing.T, p *domain.AuditPlan) {
				assert.Equal(t, "Q3 audit", p.Title)
				assert.Equal(t, domain.ScopeTypeLocation, p.ScopeType)
				assert.Equal(t, domain.PlanStatusDraft, p.Status)
				assert.Equal(t, []int64{10, 20}, p.Scope.LocationIDs)
			},
		},
		{
			name: "not found",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT .+ FROM audit_plans`).WithArgs(id).WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newRepo(t)
			tt.setup(mock)

			p, err := repo.GetByID(context.Background(), id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepo_List_AppliesFilterAndPaging(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	status := domain.PlanStatusActive
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT count\(\*\) FROM audit_plans WHERE status = \$1`).
		WithArgs("active").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT .+ FROM audit_plans WHERE status = \$1 ORDER BY created_at DESC, id LIMIT 2 OFFSET 1`).
		WithArgs("active").
		WillReturnRows(pgxmock.NewRows(planRowColumns).
			AddRow(uuid.New(), "a", "custom", []byte(`{"item_ids":[1]}`), nil, nil, "active", uuid.New(), now, now).
			AddRow(uuid.New(), "b", "department", []byte(`{"department_ids":[7]}`), nil, nil, "active", uuid.New(), now, now))

	plans, total, err := repo.List(context.Background(), domain.PlanFilter{Status: &status, Limit: 2, Offset: 1})

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, plans, 2)
	assert.Equal(t, []int64{1}, plans[0].Scope.ItemIDs)
	assert.Equal(t, []int64{7}, plans[1].Scope.DepartmentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Create_MarshalsScope(t *testing.T) {
	t.Parallel()

	repo, mock := newRepo(t)
	now := time.Now().UTC()
	p := &domain.AuditPlan{
		ID:        uuid.New(),
		Title:     "HQ",
		ScopeType: domain.ScopeTypeLocation,
		Scope:     domain.PlanScope{LocationIDs: []int64{5}},
		Status:    domain.PlanStatusDraft,
		CreatedBy: uuid.New(),
		CreatedAt: now,
	}

	mock.ExpectQuery(`INSERT INTO audit_plans`).
		WithArgs(p.ID, "HQ", "location", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "draft", p.CreatedBy, now).
		WillReturnRows(pgxmock.NewRows(planRowColumns).
			AddRow(p.ID, "HQ", "location", []byte(`{"location_ids":[5]}`), nil, nil, "draft", p.CreatedBy, now, now))

	created, err := repo.Create(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, p.ID, created.ID)
	assert.Equal(t, []int64{5}, created.Scope.LocationIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
