package internal

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/application/service"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	domainservice "github.com/damon-houk/exchange-rate-widget/internal/domain/service"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/cache"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/db"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/stretchr/testify/require"
)

// stubExchangeAPI answers every call after a short delay
type stubExchangeAPI struct {
	latency time.Duration
}

func (s *stubExchangeAPI) wait(ctx context.Context) error {
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubExchangeAPI) GetRate(ctx context.Context) (*entity.ExchangeRate, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &entity.ExchangeRate{
		RequestDate:  time.Now().UTC().Format("2006-01-02"),
		ExchangeBuy:  512.5 + float64(rand.Intn(100))/100,
		ExchangeSell: 505.1 + float64(rand.Intn(100))/100,
	}, nil
}

func (s *stubExchangeAPI) ListRates(ctx context.Context) ([]entity.RateRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	records := make([]entity.RateRecord, 20)
	for i := range records {
		records[i] = entity.RateRecord{
			ID:           int64(i + 1),
			RequestDate:  time.Now().UTC().AddDate(0, 0, -i).Format("2006-01-02T15:04:05"),
			ExchangeBuy:  512.5,
			ExchangeSell: 505.1,
		}
	}
	return records, nil
}

func (s *stubExchangeAPI) CreateRate(ctx context.Context, _ entity.ExchangeRate) (*domainservice.Result, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &domainservice.Result{StatusCode: 201, Message: "Creado"}, nil
}

func (s *stubExchangeAPI) UpdateRate(ctx context.Context, _ entity.RateRecord) (*domainservice.Result, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &domainservice.Result{StatusCode: 200}, nil
}

func (s *stubExchangeAPI) DeleteRate(ctx context.Context, _ int64) (*domainservice.Result, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &domainservice.Result{StatusCode: 200}, nil
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	dbPath, err := os.MkdirTemp("", "badger-perf-test")
	require.NoError(t, err)
	defer os.RemoveAll(dbPath)

	badgerDB, err := db.OpenBadger(dbPath)
	require.NoError(t, err)
	defer badgerDB.Close()

	quiet := logger.NewJSONLogger(os.Stderr, logger.ErrorLevel)
	api := &stubExchangeAPI{latency: 2 * time.Millisecond}

	stores := map[string]*service.WidgetService{
		"badger": service.NewWidgetService(api, db.NewBadgerViewStateRepository(badgerDB, time.Hour), quiet, 10*time.Second),
		"memory": service.NewWidgetService(api, cache.NewViewStateCache(time.Hour), quiet, 10*time.Second),
	}

	numSessions := 50
	concurrency := 10

	for name, widget := range stores {
		widget := widget
		t.Run(name, func(t *testing.T) {
			startTime := time.Now()

			var wg sync.WaitGroup
			wg.Add(concurrency)

			sessionsPerWorker := numSessions / concurrency
			errs := make(chan error, numSessions)

			for i := 0; i < concurrency; i++ {
				go func(workerID int) {
					defer wg.Done()

					ctx := context.Background()
					for j := 0; j < sessionsPerWorker; j++ {
						sessionID := fmt.Sprintf("%s-%d-%d", name, workerID, j)
						if err := runSession(ctx, widget, sessionID); err != nil {
							errs <- fmt.Errorf("session %s: %w", sessionID, err)
						}
					}
				}(i)
			}

			wg.Wait()
			close(errs)
			for err := range errs {
				t.Error(err)
			}

			duration := time.Since(startTime)
			throughput := float64(numSessions) / duration.Seconds()
			t.Logf("%s store: %d sessions in %v (%.2f sessions/sec)", name, numSessions, duration, throughput)
		})
	}
}

// runSession drives one session through load, save, edit and delete
func runSession(ctx context.Context, widget *service.WidgetService, sessionID string) error {
	steps := []func() (*entity.ViewState, *entity.Notification, error){
		func() (*entity.ViewState, *entity.Notification, error) { return widget.Load(ctx, sessionID) },
		func() (*entity.ViewState, *entity.Notification, error) { return widget.SaveRate(ctx, sessionID) },
		func() (*entity.ViewState, *entity.Notification, error) { return widget.ShowHistory(ctx, sessionID) },
		func() (*entity.ViewState, *entity.Notification, error) { return widget.OpenEditor(ctx, sessionID, 3) },
		func() (*entity.ViewState, *entity.Notification, error) {
			return widget.UpdateEditor(ctx, sessionID, "520.10", "507.30")
		},
		func() (*entity.ViewState, *entity.Notification, error) { return widget.SubmitEdit(ctx, sessionID) },
		func() (*entity.ViewState, *entity.Notification, error) { return widget.RequestDelete(ctx, sessionID, 5) },
		func() (*entity.ViewState, *entity.Notification, error) { return widget.ConfirmDelete(ctx, sessionID) },
	}

	for i, step := range steps {
		state, note, err := step()
		if err != nil {
			return err
		}
		if note != nil && note.Icon == entity.IconError {
			return fmt.Errorf("step %d failed: %s", i, note.Text)
		}
		if state.Loading {
			return fmt.Errorf("step %d left the session loading", i)
		}
	}
	return nil
}
