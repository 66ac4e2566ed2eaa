package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
)

const viewStatePrefix = "view:"

// OpenBadger opens the database under dir, creating the directory if needed.
// An empty dir opens an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = nil // Disable Badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// BadgerViewStateRepository implements the view state repository interface using BadgerDB.
// Entries expire ttl after their last write.
type BadgerViewStateRepository struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerViewStateRepository creates a new BadgerDB view state repository
func NewBadgerViewStateRepository(db *badger.DB, ttl time.Duration) *BadgerViewStateRepository {
	return &BadgerViewStateRepository{db: db, ttl: ttl}
}

// Store saves a view state under its session id
func (r *BadgerViewStateRepository) Store(ctx context.Context, state *entity.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal view state: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(viewStateKey(state.SessionID), data)
		if r.ttl > 0 {
			e = e.WithTTL(r.ttl)
		}
		return txn.SetEntry(e)
	})

	if err != nil {
		return fmt.Errorf("failed to store view state: %w", err)
	}

	return nil
}

// FindByID retrieves the view state of a session
func (r *BadgerViewStateRepository) FindByID(ctx context.Context, sessionID string) (*entity.ViewState, error) {
	var state entity.ViewState

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(viewStateKey(sessionID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repository.ErrViewStateNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve view state: %w", err)
	}

	return &state, nil
}

// Delete removes the view state of a session
func (r *BadgerViewStateRepository) Delete(ctx context.Context, sessionID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(viewStateKey(sessionID))
	})

	if err != nil {
		return fmt.Errorf("failed to delete view state: %w", err)
	}

	return nil
}

// RunGC runs value log garbage collection every interval until ctx is done
func (r *BadgerViewStateRepository) RunGC(ctx context.Context, interval time.Duration) {
	if r.db.Opts().InMemory {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for r.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func viewStateKey(sessionID string) []byte {
	return []byte(viewStatePrefix + sessionID)
}
