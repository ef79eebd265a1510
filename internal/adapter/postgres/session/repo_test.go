package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/session"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

func newSession(locationID int64) *domain.AuditSession {
	return &domain.AuditSession{
		ID:         uuid.New(),
		LocationID: locationID,
		Status:     domain.SessionStatusDraft,
		CreatedBy:  uuid.New(),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestRepo_Create_OneOpenSessionPerLocation(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := session.New(pool)
	ctx := context.Background()
	loc := testhelper.UniqueLocationID()

	first, err := repo.Create(ctx, newSession(loc))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSession(loc))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	open, err := repo.GetOpenByLocation(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)

	// A terminal session frees the location.
	now := time.Now().UTC()
	first.Status = domain.SessionStatusCanceled
	first.CanceledAt = &now
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSession(loc))
	assert.NoError(t, err)
}

func TestRepo_SetSnapshotVersion_Once(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := session.New(pool)
	ctx := context.Background()

	s, err := repo.Create(ctx, newSession(testhelper.UniqueLocationID()))
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.SetSnapshotVersion(ctx, s.ID, "sha256:aaaa", at))

	err = repo.SetSnapshotVersion(ctx, s.ID, "sha256:bbbb", at)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpectedSnapshotVersion)
	assert.Equal(t, "sha256:aaaa", *got.ExpectedSnapshotVersion)
}

func TestRepo_List_FiltersByStatus(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := session.New(pool)
	ctx := context.Background()

	loc := testhelper.UniqueLocationID()
	s, err := repo.Create(ctx, newSession(loc))
	require.NoError(t, err)

	list, total, err := repo.List(ctx, domain.SessionFilter{
		LocationID: &loc,
		Statuses:   []domain.SessionStatus{domain.SessionStatusDraft, domain.SessionStatusInProgress},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID, list[0].ID)

	list, total, err = repo.List(ctx, domain.SessionFilter{
		LocationID: &loc,
		Statuses:   []domain.SessionStatus{domain.SessionStatusClosed},
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := session.New(pool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
