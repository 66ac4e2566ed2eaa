// Package service internal/application/service/widget_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/repository"
	domainservice "github.com/damon-houk/exchange-rate-widget/internal/domain/service"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/metrics"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/middleware"
	"github.com/google/uuid"
)

// Texts shown to the user
const (
	MsgIncompleteRate  = "Los datos del tipo de cambio no están completos."
	MsgInvalidDate     = "La fecha obtenida no es válida."
	MsgInvalidAmount   = "Los valores de tipo de cambio son incorrectos."
	MsgSaveError       = "Hubo un error al guardar el tipo de cambio."
	MsgSaveSuccess     = "Tipo de cambio guardado correctamente."
	MsgUnknownError    = "Hubo un error desconocido."
	MsgFetchError      = "No se pudo consultar el tipo de cambio."
	MsgHistoryError    = "No se pudo obtener el historial de tipos de cambio."
	MsgItemNotFound    = "No se encontró el tipo de cambio seleccionado."
	MsgEditInvalid     = "Por favor, ingresa valores válidos para el tipo de cambio."
	MsgEditUnchanged   = "No hay cambios para guardar."
	MsgUpdateSuccess   = "Tipo de cambio actualizado correctamente."
	MsgUpdateError     = "Hubo un problema al actualizar el tipo de cambio. Intente nuevamente."
	MsgDeleteSuccess   = "Tipo de cambio eliminado correctamente."
	MsgDeleteError     = "Hubo un problema al eliminar el tipo de cambio."
	MsgDeleteCancelled = "No se eliminó el tipo de cambio."
	MsgBusy            = "Ya hay una solicitud en curso. Espere a que termine."
)

// Widget actions, used in logs and metrics
const (
	ActionLoad          = "load"
	ActionFetchRate     = "fetch_rate"
	ActionSaveRate      = "save_rate"
	ActionShowHistory   = "show_history"
	ActionHideHistory   = "hide_history"
	ActionOpenEditor    = "open_editor"
	ActionCloseEditor   = "close_editor"
	ActionUpdateEditor  = "update_editor"
	ActionSubmitEdit    = "submit_edit"
	ActionRequestDelete = "request_delete"
	ActionConfirmDelete = "confirm_delete"
	ActionCancelDelete  = "cancel_delete"
	ActionReset         = "reset"
)

// WidgetService runs the exchange rate widget operations against the
// per-session view state. Every operation returns the new state and, when
// there is something to tell the user, a notification. The error return is
// reserved for view state storage failures.
type WidgetService struct {
	api         domainservice.ExchangeAPI
	repo        repository.ViewStateRepository
	logger      logger.Logger
	busyTimeout time.Duration
	now         func() time.Time

	// guards the check-and-set of the loading flag
	mu sync.Mutex
}

// NewWidgetService creates a new widget service. busyTimeout is how long a
// loading flag is honoured before it is considered stale.
func NewWidgetService(api domainservice.ExchangeAPI, repo repository.ViewStateRepository, log logger.Logger, busyTimeout time.Duration) *WidgetService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if busyTimeout <= 0 {
		busyTimeout = 10 * time.Second
	}

	return &WidgetService{
		api:         api,
		repo:        repo,
		logger:      log,
		busyTimeout: busyTimeout,
		now:         time.Now,
	}
}

// BusyNotification is shown when an action arrives while a call is in flight
func BusyNotification() *entity.Notification {
	return &entity.Notification{Title: "Espere", Text: MsgBusy, Icon: entity.IconWarning}
}

// CancelledNotification is shown when the user declines a delete
func CancelledNotification() *entity.Notification {
	return &entity.Notification{Title: "Eliminación Cancelada", Text: MsgDeleteCancelled, Icon: entity.IconInfo}
}

// CanSaveEdit reports whether the editor has a change worth submitting
func CanSaveEdit(state *entity.ViewState) bool {
	return state.ModalOpen && state.Editor != nil && state.Editor.Changed()
}

// Reset discards the stored state of a session, so the next page view
// starts over and fetches the rate again. A call still in flight for the
// session finds its state gone and drops its result.
func (s *WidgetService) Reset(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.logger.Error("Failed to delete view state", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, nil, fmt.Errorf("failed to delete view state: %w", err)
	}

	s.observe(ctx, ActionReset, nil)
	return entity.NewViewState(sessionID), nil, nil
}

// Load fetches the current rate the first time a session renders the widget
func (s *WidgetService) Load(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if state.Loaded {
		return state, nil, nil
	}

	return s.remote(ctx, sessionID, ActionLoad,
		func(state *entity.ViewState) (bool, *entity.Notification) {
			if state.Loaded {
				return false, nil
			}
			state.Loaded = true
			return true, nil
		},
		s.fetchRate,
	)
}

// FetchRate retrieves today's rate and shows it
func (s *WidgetService) FetchRate(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	return s.remote(ctx, sessionID, ActionFetchRate, proceed, s.fetchRate)
}

// SaveRate stores the current rate in the backend. Incomplete or invalid
// rates are refused without calling the backend.
func (s *WidgetService) SaveRate(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	var rate entity.ExchangeRate

	return s.remote(ctx, sessionID, ActionSaveRate,
		func(state *entity.ViewState) (bool, *entity.Notification) {
			if err := state.Rate.Validate(); err != nil {
				return false, entity.Failure(validationText(err))
			}

			normalized, err := state.Rate.Normalized()
			if err != nil {
				return false, entity.Failure(MsgInvalidDate)
			}
			rate = normalized
			return true, nil
		},
		func(ctx context.Context, state *entity.ViewState) *entity.Notification {
			result, err := s.api.CreateRate(ctx, rate)
			if err != nil {
				s.logFailure(ctx, ActionSaveRate, err)

				var apiErr *domainservice.APIError
				if errors.As(err, &apiErr) {
					return entity.Failure(messageOr(apiErr.Message, MsgSaveError))
				}
				return entity.Failure(MsgUnknownError)
			}

			if result.StatusCode != http.StatusOK && result.StatusCode != http.StatusCreated {
				return entity.Failure(messageOr(result.Message, MsgSaveError))
			}

			s.logger.Info("Exchange rate saved", map[string]interface{}{
				"request_id":    middleware.GetRequestID(ctx),
				"request_date":  rate.RequestDate,
				"exchange_buy":  rate.ExchangeBuy,
				"exchange_sell": rate.ExchangeSell,
			})
			return entity.Success(messageOr(result.Message, MsgSaveSuccess))
		},
	)
}

// ShowHistory retrieves the stored rates and shows the history list
func (s *WidgetService) ShowHistory(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	return s.remote(ctx, sessionID, ActionShowHistory, proceed,
		func(ctx context.Context, state *entity.ViewState) *entity.Notification {
			if err := s.refreshHistory(ctx, state); err != nil {
				return entity.Failure(MsgHistoryError)
			}
			return nil
		},
	)
}

// HideHistory goes back to the current rate panel
func (s *WidgetService) HideHistory(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionHideHistory, func(state *entity.ViewState) *entity.Notification {
		state.ShowHistory = false
		return nil
	})
}

// OpenEditor opens the modal editor on a history item
func (s *WidgetService) OpenEditor(ctx context.Context, sessionID string, id int64) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionOpenEditor, func(state *entity.ViewState) *entity.Notification {
		item, ok := state.FindHistoryItem(id)
		if !ok {
			return entity.Failure(MsgItemNotFound)
		}

		state.Editor = entity.NewEditor(item)
		state.ModalOpen = true
		return nil
	})
}

// CloseEditor closes the modal and drops the selection
func (s *WidgetService) CloseEditor(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionCloseEditor, func(state *entity.ViewState) *entity.Notification {
		closeEditor(state)
		return nil
	})
}

// UpdateEditor applies the values typed in the modal. Input that is not a
// number reads as 0.
func (s *WidgetService) UpdateEditor(ctx context.Context, sessionID, buy, sell string) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionUpdateEditor, func(state *entity.ViewState) *entity.Notification {
		if state.Editor == nil {
			return nil
		}

		state.Editor.ExchangeBuy = ParseInputAmount(buy)
		state.Editor.ExchangeSell = ParseInputAmount(sell)
		return nil
	})
}

// SubmitEdit sends the edited record to the backend. On success the modal
// closes and the history is fetched again.
func (s *WidgetService) SubmitEdit(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	var record entity.RateRecord

	return s.remote(ctx, sessionID, ActionSubmitEdit,
		func(state *entity.ViewState) (bool, *entity.Notification) {
			if !state.ModalOpen || state.Editor == nil {
				return false, nil
			}
			if !state.Editor.Changed() {
				return false, &entity.Notification{Title: "Error", Text: MsgEditUnchanged, Icon: entity.IconWarning}
			}

			record = state.Editor.Record()
			if err := record.Validate(); err != nil {
				return false, entity.Failure(MsgEditInvalid)
			}

			date, err := entity.ParseRequestDate(record.RequestDate)
			if err != nil {
				return false, entity.Failure(MsgEditInvalid)
			}
			record.RequestDate = entity.FormatRequestDate(date)
			return true, nil
		},
		func(ctx context.Context, state *entity.ViewState) *entity.Notification {
			result, err := s.api.UpdateRate(ctx, record)
			if err != nil {
				s.logFailure(ctx, ActionSubmitEdit, err)
				return entity.Failure(MsgUpdateError)
			}
			if result.StatusCode != http.StatusOK {
				return entity.Failure(MsgUpdateError)
			}

			s.logger.Info("Exchange rate updated", map[string]interface{}{
				"request_id":    middleware.GetRequestID(ctx),
				"id":            record.ID,
				"exchange_buy":  record.ExchangeBuy,
				"exchange_sell": record.ExchangeSell,
			})

			closeEditor(state)
			if err := s.refreshHistory(ctx, state); err != nil {
				applyLocally(state, record)
			}
			return entity.Success(MsgUpdateSuccess)
		},
	)
}

// RequestDelete asks the user to confirm the removal of a record
func (s *WidgetService) RequestDelete(ctx context.Context, sessionID string, id int64) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionRequestDelete, func(state *entity.ViewState) *entity.Notification {
		state.PendingDeleteID = &id
		return nil
	})
}

// ConfirmDelete removes the record awaiting confirmation and fetches the
// history again
func (s *WidgetService) ConfirmDelete(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	var id int64

	return s.remote(ctx, sessionID, ActionConfirmDelete,
		func(state *entity.ViewState) (bool, *entity.Notification) {
			if state.PendingDeleteID == nil {
				return false, nil
			}
			id = *state.PendingDeleteID
			state.PendingDeleteID = nil
			return true, nil
		},
		func(ctx context.Context, state *entity.ViewState) *entity.Notification {
			result, err := s.api.DeleteRate(ctx, id)
			if err != nil {
				s.logFailure(ctx, ActionConfirmDelete, err)

				var apiErr *domainservice.APIError
				if errors.As(err, &apiErr) {
					return entity.Failure(messageOr(apiErr.Message, MsgDeleteError))
				}
				return entity.Failure(MsgDeleteError)
			}
			if result.StatusCode != http.StatusOK {
				return entity.Failure(messageOr(result.Message, MsgDeleteError))
			}

			s.logger.Info("Exchange rate deleted", map[string]interface{}{
				"request_id": middleware.GetRequestID(ctx),
				"id":         id,
			})

			if err := s.refreshHistory(ctx, state); err != nil {
				removeLocally(state, id)
			}
			return entity.Success(messageOr(result.Message, MsgDeleteSuccess))
		},
	)
}

// CancelDelete dismisses the confirmation dialog without calling the backend
func (s *WidgetService) CancelDelete(ctx context.Context, sessionID string) (*entity.ViewState, *entity.Notification, error) {
	return s.local(ctx, sessionID, ActionCancelDelete, func(state *entity.ViewState) *entity.Notification {
		state.PendingDeleteID = nil
		return CancelledNotification()
	})
}

func (s *WidgetService) fetchRate(ctx context.Context, state *entity.ViewState) *entity.Notification {
	rate, err := s.api.GetRate(ctx)
	if err != nil {
		s.logFailure(ctx, ActionFetchRate, err)
		return entity.Failure(MsgFetchError)
	}
	if rate.ExchangeBuy < 0 || rate.ExchangeSell < 0 {
		s.logger.Warn("Exchange API returned a negative rate", map[string]interface{}{
			"request_id":    middleware.GetRequestID(ctx),
			"exchange_buy":  rate.ExchangeBuy,
			"exchange_sell": rate.ExchangeSell,
		})
		return entity.Failure(MsgInvalidAmount)
	}

	state.Rate = *rate
	state.ShowData = true
	return nil
}

// refreshHistory replaces the history with what the backend holds now
func (s *WidgetService) refreshHistory(ctx context.Context, state *entity.ViewState) error {
	records, err := s.api.ListRates(ctx)
	if err != nil {
		s.logFailure(ctx, ActionShowHistory, err)
		return err
	}

	state.History = FormatHistory(records)
	state.ShowHistory = true
	return nil
}

// local applies fn to the stored state unless a backend call is in flight
func (s *WidgetService) local(ctx context.Context, sessionID, action string, fn func(*entity.ViewState) *entity.Notification) (*entity.ViewState, *entity.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if state.Busy(s.now(), s.busyTimeout) {
		metrics.ObserveAction(action, "busy")
		return state, BusyNotification(), nil
	}
	s.dropStaleLoading(ctx, state, action)

	note := fn(state)
	if err := s.store(ctx, state); err != nil {
		return nil, nil, err
	}

	s.observe(ctx, action, note)
	return state, note, nil
}

// remote runs a backend call for a session. prepare runs under the lock and
// may refuse the call; call runs with the loading flag stored and the lock
// released.
func (s *WidgetService) remote(
	ctx context.Context,
	sessionID, action string,
	prepare func(*entity.ViewState) (bool, *entity.Notification),
	call func(context.Context, *entity.ViewState) *entity.Notification,
) (*entity.ViewState, *entity.Notification, error) {
	s.mu.Lock()
	state, err := s.load(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}

	if state.Busy(s.now(), s.busyTimeout) {
		s.mu.Unlock()
		metrics.ObserveAction(action, "busy")
		if action == ActionLoad {
			return state, nil, nil
		}
		return state, BusyNotification(), nil
	}
	s.dropStaleLoading(ctx, state, action)

	ok, note := prepare(state)
	if !ok {
		err := s.store(ctx, state)
		s.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		s.observe(ctx, action, note)
		return state, note, nil
	}

	loadingID := uuid.NewString()
	state.StartLoading(loadingID, s.now())
	err = s.store(ctx, state)
	s.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	note = call(ctx, state)

	s.mu.Lock()
	defer s.mu.Unlock()

	// another action took over once this call went stale; keep its state
	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if current.LoadingID != loadingID {
		s.logger.Warn("Discarding result of a superseded call", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": sessionID,
			"action":     action,
		})
		s.observe(ctx, action, note)
		return current, note, nil
	}

	state.StopLoading()
	if err := s.store(ctx, state); err != nil {
		return nil, nil, err
	}

	s.observe(ctx, action, note)
	return state, note, nil
}

// dropStaleLoading clears a loading flag left by a call that outlived
// busyTimeout, so that call cannot write its state back over this action
func (s *WidgetService) dropStaleLoading(ctx context.Context, state *entity.ViewState, action string) {
	if !state.Loading {
		return
	}

	s.logger.Warn("Ignoring stale loading flag", map[string]interface{}{
		"request_id":    middleware.GetRequestID(ctx),
		"session_id":    state.SessionID,
		"action":        action,
		"loading_since": state.LoadingSince,
	})
	state.StopLoading()
}

func (s *WidgetService) load(ctx context.Context, sessionID string) (*entity.ViewState, error) {
	state, err := s.repo.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrViewStateNotFound) {
		return entity.NewViewState(sessionID), nil
	}
	if err != nil {
		s.logger.Error("Failed to load view state", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to load view state: %w", err)
	}
	return state, nil
}

func (s *WidgetService) store(ctx context.Context, state *entity.ViewState) error {
	state.UpdatedAt = s.now()
	if err := s.repo.Store(ctx, state); err != nil {
		s.logger.Error("Failed to store view state", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"session_id": state.SessionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to store view state: %w", err)
	}
	return nil
}

func (s *WidgetService) observe(ctx context.Context, action string, note *entity.Notification) {
	outcome := "ok"
	if note != nil {
		outcome = string(note.Icon)
	}
	metrics.ObserveAction(action, outcome)

	s.logger.Debug("Widget action completed", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"action":     action,
		"outcome":    outcome,
	})
}

func (s *WidgetService) logFailure(ctx context.Context, action string, err error) {
	fields := map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"action":     action,
		"error":      err.Error(),
	}

	var apiErr *domainservice.APIError
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.StatusCode
		s.logger.Warn("Exchange API rejected the request", fields)
		return
	}
	s.logger.Error("Exchange API call failed", fields)
}

func proceed(*entity.ViewState) (bool, *entity.Notification) {
	return true, nil
}

func closeEditor(state *entity.ViewState) {
	state.ModalOpen = false
	state.Editor = nil
}

// applyLocally reflects an accepted update when the history could not be re-read
func applyLocally(state *entity.ViewState, record entity.RateRecord) {
	for i, item := range state.History {
		if item.ID == record.ID {
			state.History[i] = FormatHistory([]entity.RateRecord{record})[0]
			return
		}
	}
}

// removeLocally drops a deleted row when the history could not be re-read
func removeLocally(state *entity.ViewState, id int64) {
	kept := state.History[:0]
	for _, item := range state.History {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	state.History = kept
}

func validationText(err error) string {
	switch {
	case errors.Is(err, entity.ErrIncompleteRate):
		return MsgIncompleteRate
	case errors.Is(err, entity.ErrInvalidDate):
		return MsgInvalidDate
	default:
		return MsgInvalidAmount
	}
}

func messageOr(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
