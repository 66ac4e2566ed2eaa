package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
)

// CacheEntry represents a stored view state with the time it was last written
type CacheEntry struct {
	Data      []byte
	Timestamp time.Time
}

// ViewStateCache is a thread-safe in-memory ViewStateRepository. Entries not
// written for longer than the expiration are treated as missing.
type ViewStateCache struct {
	cache      map[string]CacheEntry
	expiration time.Duration
	mutex      sync.RWMutex
}

// NewViewStateCache creates a new view state cache
func NewViewStateCache(expiration time.Duration) *ViewStateCache {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	return &ViewStateCache{
		cache:      make(map[string]CacheEntry),
		expiration: expiration,
	}
}

// Store saves a copy of the state under its session id
func (c *ViewStateCache) Store(_ context.Context, state *entity.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal view state: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[state.SessionID] = CacheEntry{
		Data:      data,
		Timestamp: time.Now(),
	}
	return nil
}

// FindByID returns a copy of the stored state of a session
func (c *ViewStateCache) FindByID(_ context.Context, sessionID string) (*entity.ViewState, error) {
	c.mutex.RLock()
	entry, exists := c.cache[sessionID]
	expiration := c.expiration
	c.mutex.RUnlock()

	if !exists || time.Since(entry.Timestamp) > expiration {
		return nil, repository.ErrViewStateNotFound
	}

	var state entity.ViewState
	if err := json.Unmarshal(entry.Data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view state: %w", err)
	}
	return &state, nil
}

// Delete removes the state of a session
func (c *ViewStateCache) Delete(_ context.Context, sessionID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.cache, sessionID)
	return nil
}

// Size returns the number of items in the cache
func (c *ViewStateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CleanExpired removes expired entries from the cache
func (c *ViewStateCache) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := time.Now()

	for key, entry := range c.cache {
		if now.Sub(entry.Timestamp) > c.expiration {
			delete(c.cache, key)
			count++
		}
	}

	return count
}

// RunCleanup calls CleanExpired every interval until ctx is done
func (c *ViewStateCache) RunCleanup(ctx context.Context, interval time.Duration, onClean func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := c.CleanExpired()
			if onClean != nil && removed > 0 {
				onClean(removed)
			}
		}
	}
}
