// Package handler internal/infrastructure/handler/widget_handler.go
package handler

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/damon-houk/exchange-rate-widget/internal/application/service"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// actionFunc runs one widget operation for a session
type actionFunc func(ctx context.Context, sessionID string, r *http.Request) (*entity.ViewState, *entity.Notification, error)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// WidgetHandler serves the exchange rate widget page and its actions.
// Every action redirects back to the page once it has run.
type WidgetHandler struct {
	service  *service.WidgetService
	sessions *SessionManager
	logger   logger.Logger
}

// NewWidgetHandler creates a new widget handler
func NewWidgetHandler(service *service.WidgetService, sessions *SessionManager, log logger.Logger) *WidgetHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &WidgetHandler{
		service:  service,
		sessions: sessions,
		logger:   log,
	}
}

// Page renders the widget. The first view of a session fetches the current rate.
func (h *WidgetHandler) Page(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	sessionID, err := h.sessions.SessionID(w, r)
	if err != nil {
		h.internalError(w, r, "Failed to start session", err)
		return
	}

	state, note, err := h.service.Load(r.Context(), sessionID)
	if err != nil {
		h.internalError(w, r, "Failed to load widget", err)
		return
	}

	notes, err := h.sessions.Flashes(w, r)
	if err != nil {
		h.internalError(w, r, "Failed to read notifications", err)
		return
	}
	if note != nil {
		notes = append(notes, *note)
	}

	h.logger.Debug("Rendering widget", map[string]interface{}{
		"request_id":    requestID,
		"session_id":    sessionID,
		"show_data":     state.ShowData,
		"show_history":  state.ShowHistory,
		"modal_open":    state.ModalOpen,
		"notifications": len(notes),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.ExecuteTemplate(w, "widget", newPageView(state, notes)); err != nil {
		h.logger.Error("Failed to render widget", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}

// Health reports that the server is up
func (h *WidgetHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RegisterRoutes registers the widget routes
func (h *WidgetHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Page).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	router.HandleFunc("/rate/fetch", h.action(service.ActionFetchRate, withoutInput(h.service.FetchRate))).Methods(http.MethodPost)
	router.HandleFunc("/rate/save", h.action(service.ActionSaveRate, withoutInput(h.service.SaveRate))).Methods(http.MethodPost)
	router.HandleFunc("/history/show", h.action(service.ActionShowHistory, withoutInput(h.service.ShowHistory))).Methods(http.MethodPost)
	router.HandleFunc("/history/hide", h.action(service.ActionHideHistory, withoutInput(h.service.HideHistory))).Methods(http.MethodPost)
	router.HandleFunc("/history/{id:[0-9]+}/edit", h.action(service.ActionOpenEditor, withID(h.service.OpenEditor))).Methods(http.MethodPost)
	router.HandleFunc("/history/{id:[0-9]+}/delete", h.action(service.ActionRequestDelete, withID(h.service.RequestDelete))).Methods(http.MethodPost)
	router.HandleFunc("/editor/update", h.action(service.ActionUpdateEditor, h.updateEditor)).Methods(http.MethodPost)
	router.HandleFunc("/editor/save", h.action(service.ActionSubmitEdit, h.submitEdit)).Methods(http.MethodPost)
	router.HandleFunc("/editor/close", h.action(service.ActionCloseEditor, withoutInput(h.service.CloseEditor))).Methods(http.MethodPost)
	router.HandleFunc("/delete/confirm", h.action(service.ActionConfirmDelete, withoutInput(h.service.ConfirmDelete))).Methods(http.MethodPost)
	router.HandleFunc("/delete/cancel", h.action(service.ActionCancelDelete, withoutInput(h.service.CancelDelete))).Methods(http.MethodPost)
	router.HandleFunc("/reset", h.action(service.ActionReset, withoutInput(h.service.Reset))).Methods(http.MethodPost)

	h.logger.Info("Widget routes registered", map[string]interface{}{
		"routes": []string{
			"GET /",
			"GET /health",
			"POST /rate/fetch",
			"POST /rate/save",
			"POST /history/show",
			"POST /history/hide",
			"POST /history/{id}/edit",
			"POST /history/{id}/delete",
			"POST /editor/update",
			"POST /editor/save",
			"POST /editor/close",
			"POST /delete/confirm",
			"POST /delete/cancel",
		},
	})
}

// action wraps a widget operation in post/redirect/get: run it, queue its
// notification and send the browser back to the page
func (h *WidgetHandler) action(name string, run actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())

		sessionID, err := h.sessions.SessionID(w, r)
		if err != nil {
			h.internalError(w, r, "Failed to start session", err)
			return
		}

		h.logger.Info("Handling widget action", map[string]interface{}{
			"request_id": requestID,
			"session_id": sessionID,
			"action":     name,
		})

		_, note, err := run(r.Context(), sessionID, r)
		if err != nil {
			h.internalError(w, r, "Widget action failed", err)
			return
		}

		if note != nil {
			if err := h.sessions.AddFlash(w, r, *note); err != nil {
				h.internalError(w, r, "Failed to queue notification", err)
				return
			}
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *WidgetHandler) updateEditor(ctx context.Context, sessionID string, r *http.Request) (*entity.ViewState, *entity.Notification, error) {
	return h.service.UpdateEditor(ctx, sessionID, r.FormValue("exchangeBuy"), r.FormValue("exchangeSell"))
}

// submitEdit applies the submitted inputs, when present, before saving
func (h *WidgetHandler) submitEdit(ctx context.Context, sessionID string, r *http.Request) (*entity.ViewState, *entity.Notification, error) {
	if err := r.ParseForm(); err == nil && (r.PostForm.Has("exchangeBuy") || r.PostForm.Has("exchangeSell")) {
		state, note, err := h.updateEditor(ctx, sessionID, r)
		if err != nil || note != nil {
			return state, note, err
		}
	}
	return h.service.SubmitEdit(ctx, sessionID)
}

func withoutInput(op func(context.Context, string) (*entity.ViewState, *entity.Notification, error)) actionFunc {
	return func(ctx context.Context, sessionID string, _ *http.Request) (*entity.ViewState, *entity.Notification, error) {
		return op(ctx, sessionID)
	}
}

func withID(op func(context.Context, string, int64) (*entity.ViewState, *entity.Notification, error)) actionFunc {
	return func(ctx context.Context, sessionID string, r *http.Request) (*entity.ViewState, *entity.Notification, error) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			return nil, entity.Failure(service.MsgItemNotFound), nil
		}
		return op(ctx, sessionID, id)
	}
}

func (h *WidgetHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Error(msg, map[string]interface{}{
		"request_id": requestID,
		"path":       r.URL.Path,
		"error":      err.Error(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     http.StatusText(http.StatusInternalServerError),
		Status:    http.StatusInternalServerError,
		RequestID: requestID,
	})
}
