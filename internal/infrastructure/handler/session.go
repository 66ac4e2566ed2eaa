// Package handler internal/infrastructure/handler/session.go
package handler

import (
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	// SessionCookieName names the widget's session cookie
	SessionCookieName = "ExchangeRateWidget"

	sessionIDKey = "session_id"
)

func init() {
	gob.Register(entity.Notification{})
}

// SessionManager keeps the session id and pending notifications in a signed cookie
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a session manager. An empty secret signs and
// encrypts cookies with keys generated for this process only.
func NewSessionManager(secret string, secure bool, maxAge time.Duration) *SessionManager {
	var store *sessions.CookieStore
	if secret == "" {
		store = sessions.NewCookieStore(
			securecookie.GenerateRandomKey(32),
			securecookie.GenerateRandomKey(32),
		)
	} else {
		store = sessions.NewCookieStore([]byte(secret))
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{store: store}
}

// session returns the widget session. A cookie that cannot be decoded, for
// example after a key change, yields a fresh session.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	session, _ := m.store.Get(r, SessionCookieName)
	return session
}

// SessionID returns the id of the caller's session, starting one if needed
func (m *SessionManager) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	session := m.session(r)

	if id, ok := session.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	session.Values[sessionIDKey] = id
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// AddFlash queues a notification for the next page view
func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, note entity.Notification) error {
	session := m.session(r)
	session.AddFlash(note)

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Flashes returns and clears the queued notifications
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) ([]entity.Notification, error) {
	session := m.session(r)

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}

	notes := make([]entity.Notification, 0, len(raw))
	for _, flash := range raw {
		if note, ok := flash.(entity.Notification); ok {
			notes = append(notes, note)
		}
	}

	if err := session.Save(r, w); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return notes, nil
}
