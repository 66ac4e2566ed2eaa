package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewStateCache(t *testing.T) {
	cache := NewViewStateCache(time.Hour)
	ctx := context.Background()

	// Test initial state
	assert.Equal(t, 0, cache.Size())

	_, err := cache.FindByID(ctx, "session-1")
	assert.ErrorIs(t, err, repository.ErrViewStateNotFound)

	// Test storing and retrieving
	state := entity.NewViewState("session-1")
	state.ShowData = true
	state.Rate = entity.ExchangeRate{RequestDate: "2024-03-05T00:00:00.000Z", ExchangeBuy: 511.9, ExchangeSell: 505.12}

	require.NoError(t, cache.Store(ctx, state))
	assert.Equal(t, 1, cache.Size())

	retrieved, err := cache.FindByID(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, retrieved.ShowData)
	assert.Equal(t, state.Rate, retrieved.Rate)

	// Retrieved states are copies
	retrieved.ShowData = false
	again, err := cache.FindByID(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, again.ShowData)

	// Test delete
	require.NoError(t, cache.Store(ctx, entity.NewViewState("session-2")))
	assert.Equal(t, 2, cache.Size())

	require.NoError(t, cache.Delete(ctx, "session-1"))
	assert.Equal(t, 1, cache.Size())
	_, err = cache.FindByID(ctx, "session-1")
	assert.ErrorIs(t, err, repository.ErrViewStateNotFound)
}

func TestViewStateCacheExpiration(t *testing.T) {
	cache := NewViewStateCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, entity.NewViewState("session-1")))
	time.Sleep(20 * time.Millisecond)

	_, err := cache.FindByID(ctx, "session-1")
	assert.ErrorIs(t, err, repository.ErrViewStateNotFound)

	// Test cleaning expired entries
	count := cache.CleanExpired()
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, cache.Size())
}

func TestViewStateCacheKeepsEditorAndPendingDelete(t *testing.T) {
	cache := NewViewStateCache(time.Hour)
	ctx := context.Background()

	id := int64(4)
	item := entity.HistoryItem{ID: 4, Record: entity.RateRecord{ID: 4, RequestDate: "2024-03-05", ExchangeBuy: 511, ExchangeSell: 505}}
	state := entity.NewViewState("session-1")
	state.History = []entity.HistoryItem{item}
	state.Editor = entity.NewEditor(item)
	state.ModalOpen = true
	state.PendingDeleteID = &id

	require.NoError(t, cache.Store(ctx, state))

	retrieved, err := cache.FindByID(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved.Editor)
	assert.Equal(t, 511.0, retrieved.Editor.InitialBuy)
	require.NotNil(t, retrieved.PendingDeleteID)
	assert.Equal(t, int64(4), *retrieved.PendingDeleteID)
}

func TestViewStateCacheConcurrentAccess(t *testing.T) {
	cache := NewViewStateCache(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := "session-" + string(rune('a'+i%26))
			_ = cache.Store(ctx, entity.NewViewState(sessionID))
			_, _ = cache.FindByID(ctx, sessionID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, cache.Size())
}

func TestRunCleanup(t *testing.T) {
	cache := NewViewStateCache(5 * time.Millisecond)
	require.NoError(t, cache.Store(context.Background(), entity.NewViewState("session-1")))

	ctx, cancel := context.WithCancel(context.Background())
	removed := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		cache.RunCleanup(ctx, 10*time.Millisecond, func(n int) {
			select {
			case removed <- n:
			default:
			}
		})
		close(done)
	}()

	select {
	case n := <-removed:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}

	cancel()
	<-done
	assert.Equal(t, 0, cache.Size())
}
