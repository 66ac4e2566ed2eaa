package service

import (
	"context"
	"fmt"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
)

// ExchangeAPI defines the interface for the remote exchange rate backend
type ExchangeAPI interface {
	// GetRate retrieves today's rate
	GetRate(ctx context.Context) (*entity.ExchangeRate, error)

	// ListRates retrieves every stored rate
	ListRates(ctx context.Context) ([]entity.RateRecord, error)

	// CreateRate stores a new rate
	CreateRate(ctx context.Context, rate entity.ExchangeRate) (*Result, error)

	// UpdateRate overwrites a stored rate
	UpdateRate(ctx context.Context, record entity.RateRecord) (*Result, error)

	// DeleteRate removes a stored rate
	DeleteRate(ctx context.Context, id int64) (*Result, error)
}

// Result is the status and message of a write call that got a 2xx answer
type Result struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

// APIError is returned when the backend answers with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API returned error status: %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned error status: %d, message: %s", e.StatusCode, e.Message)
}
