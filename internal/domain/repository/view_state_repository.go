// Package repository internal/domain/repository/view_state_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
)

// ErrViewStateNotFound is returned when no state is stored for a session
var ErrViewStateNotFound = errors.New("view state not found")

// ViewStateRepository defines the interface for per-session view state storage
type ViewStateRepository interface {
	// Store saves the state under its session id
	Store(ctx context.Context, state *entity.ViewState) error

	// FindByID retrieves the state of a session
	FindByID(ctx context.Context, sessionID string) (*entity.ViewState, error)

	// Delete removes the state of a session
	Delete(ctx context.Context, sessionID string) error
}
