package db

import (
	"context"
	"testing"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestBadgerViewStateRepository(t *testing.T) {
	repo := NewBadgerViewStateRepository(setupBadger(t), time.Hour)
	ctx := context.Background()

	t.Run("Missing session", func(t *testing.T) {
		state, err := repo.FindByID(ctx, "nobody")
		assert.ErrorIs(t, err, repository.ErrViewStateNotFound)
		assert.Nil(t, state)
	})

	t.Run("Store and find", func(t *testing.T) {
		id := int64(9)
		state := entity.NewViewState("session-1")
		state.ShowHistory = true
		state.History = []entity.HistoryItem{{
			ID:           9,
			RequestDate:  "5/3/2024",
			ExchangeBuy:  "₡511,90",
			ExchangeSell: "₡505,12",
			Record:       entity.RateRecord{ID: 9, RequestDate: "2024-03-05T00:00:00", ExchangeBuy: 511.9, ExchangeSell: 505.12},
		}}
		state.PendingDeleteID = &id

		require.NoError(t, repo.Store(ctx, state))

		found, err := repo.FindByID(ctx, "session-1")
		require.NoError(t, err)
		assert.True(t, found.ShowHistory)
		assert.Equal(t, state.History, found.History)
		require.NotNil(t, found.PendingDeleteID)
		assert.Equal(t, id, *found.PendingDeleteID)
	})

	t.Run("Overwrite", func(t *testing.T) {
		state := entity.NewViewState("session-1")
		state.ShowData = true
		require.NoError(t, repo.Store(ctx, state))

		found, err := repo.FindByID(ctx, "session-1")
		require.NoError(t, err)
		assert.True(t, found.ShowData)
		assert.False(t, found.ShowHistory)
		assert.Nil(t, found.PendingDeleteID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "session-1"))

		_, err := repo.FindByID(ctx, "session-1")
		assert.ErrorIs(t, err, repository.ErrViewStateNotFound)

		// Deleting a missing key is not an error
		assert.NoError(t, repo.Delete(ctx, "session-1"))
	})
}

func TestBadgerViewStateRepositoryTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping TTL test in short mode")
	}

	repo := NewBadgerViewStateRepository(setupBadger(t), 2*time.Second)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, entity.NewViewState("short-lived")))

	_, err := repo.FindByID(ctx, "short-lived")
	require.NoError(t, err)

	time.Sleep(3 * time.Second)

	_, err = repo.FindByID(ctx, "short-lived")
	assert.ErrorIs(t, err, repository.ErrViewStateNotFound)
}

func TestOpenBadgerOnDisk(t *testing.T) {
	dir := t.TempDir()

	db, err := OpenBadger(dir)
	require.NoError(t, err)

	repo := NewBadgerViewStateRepository(db, 0)
	require.NoError(t, repo.Store(context.Background(), entity.NewViewState("persisted")))
	require.NoError(t, db.Close())

	db, err = OpenBadger(dir)
	require.NoError(t, err)
	defer db.Close()

	found, err := NewBadgerViewStateRepository(db, 0).FindByID(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", found.SessionID)
}
