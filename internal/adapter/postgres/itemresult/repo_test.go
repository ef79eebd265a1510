package itemresult_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/itemresult"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestRepo_Upsert_ReplacesRow(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := itemresult.New(pool)
	ctx := context.Background()
	s := testhelper.SeedSession(t, pool, domain.SessionStatusInProgress)

	seen := time.Now().UTC().Truncate(time.Microsecond)
	first, err := repo.Upsert(ctx, &domain.ItemResult{
		SessionID:          s.ID,
		ItemID:             42,
		Status:             domain.ResultStatusFoundInPlace,
		ExpectedLocationID: ptr(s.LocationID),
		FoundLocationID:    ptr(s.LocationID),
		FirstFoundAt:       &seen,
		LastScanAt:         &seen,
		ScanCount:          1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ScanCount)

	later := seen.Add(time.Minute)
	_, err = repo.Upsert(ctx, &domain.ItemResult{
		SessionID:          s.ID,
		ItemID:             42,
		Status:             domain.ResultStatusFoundInPlace,
		ExpectedLocationID: ptr(s.LocationID),
		FoundLocationID:    ptr(s.LocationID),
		FirstFoundAt:       &seen,
		LastScanAt:         &later,
		ScanCount:          2,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, s.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ScanCount)
	require.NotNil(t, got.LastScanAt)
	assert.True(t, got.LastScanAt.Equal(later))
	assert.True(t, got.FirstFoundAt.Equal(seen))
}

func TestRepo_Get_NotFound(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := itemresult.New(pool)
	s := testhelper.SeedSession(t, pool, domain.SessionStatusInProgress)

	_, err := repo.Get(context.Background(), s.ID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_ListAndDeleteBySession(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := itemresult.New(pool)
	ctx := context.Background()
	s := testhelper.SeedSession(t, pool, domain.SessionStatusReconciling)

	for _, id := range []int64{3, 1, 2} {
		_, err := repo.Upsert(ctx, &domain.ItemResult{
			SessionID:          s.ID,
			ItemID:             id,
			Status:             domain.ResultStatusMissing,
			ExpectedLocationID: ptr(s.LocationID),
		})
		require.NoError(t, err)
	}

	list, err := repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ItemID, list[1].ItemID, list[2].ItemID})
	assert.Nil(t, list[0].FoundLocationID)

	require.NoError(t, repo.DeleteBySession(ctx, s.ID))

	list, err = repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
