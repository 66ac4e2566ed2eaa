package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carryCookies copies the cookies set on a response onto a new request
func carryCookies(w *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManager(t *testing.T) {
	manager := NewSessionManager("0123456789abcdef0123456789abcdef", false, time.Hour)

	// A new session gets an id
	w := httptest.NewRecorder()
	id, err := manager.SessionID(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The id survives the round trip
	req := carryCookies(w)
	w = httptest.NewRecorder()
	again, err := manager.SessionID(w, req)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// Flashes are delivered once
	require.NoError(t, manager.AddFlash(w, req, *entity.Success("Guardado")))

	req = carryCookies(w)
	w = httptest.NewRecorder()
	notes, err := manager.Flashes(w, req)
	require.NoError(t, err)
	assert.Equal(t, []entity.Notification{*entity.Success("Guardado")}, notes)

	sameID, err := manager.SessionID(w, req)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	req = carryCookies(w)
	notes, err = manager.Flashes(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSessionManagerRejectsForeignCookies(t *testing.T) {
	issuer := NewSessionManager("", false, time.Hour)
	other := NewSessionManager("", false, time.Hour)

	w := httptest.NewRecorder()
	id, err := issuer.SessionID(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	fresh, err := other.SessionID(httptest.NewRecorder(), carryCookies(w))
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
}
