package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/testhelper"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE audit_sessions").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, postgres.InTx(ctx))
		_, err := postgres.QuerierFromCtx(ctx, mock).Exec(ctx, "UPDATE audit_sessions SET status = 'closed'")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("reconcile failed")
	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(context.Context) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnPanic(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	tm := postgres.NewTxManager(mock)
	assert.PanicsWithValue(t, "boom", func() {
		_ = tm.RunInTx(context.Background(), func(context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_BeginFailure(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	tm := postgres.NewTxManager(mock)
	called := false
	err := tm.RunInTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tm := postgres.NewTxManager(mock)
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(inner context.Context) error {
			assert.True(t, postgres.InTx(inner))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerierFromCtx_FallsBackWithoutTx(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	assert.False(t, postgres.InTx(context.Background()))
	assert.Equal(t, postgres.Querier(mock), postgres.QuerierFromCtx(context.Background(), mock))
}

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

func sessionExists(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM audit_sessions WHERE id = $1)`, id,
	).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func insertSession(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx,
		`INSERT INTO audit_sessions (id, location_id, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, 'draft', $3, $4, $4)`,
		id, testhelper.UniqueLocationID(), uuid.New(), time.Now().UTC(),
	)
	return err
}

func TestRunInTx_Integration(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	t.Run("commit", func(t *testing.T) {
		id := uuid.New()
		err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
			return insertSession(ctx, postgres.QuerierFromCtx(ctx, pool), id)
		})
		require.NoError(t, err)
		assert.True(t, sessionExists(t, pool, id))
	})

	t.Run("rollback", func(t *testing.T) {
		id := uuid.New()
		sentinel := errors.New("abort")
		err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, insertSession(ctx, postgres.QuerierFromCtx(ctx, pool), id))
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.False(t, sessionExists(t, pool, id))
	})
}
