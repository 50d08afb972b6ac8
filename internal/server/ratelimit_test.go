package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"timetable-service/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func call(h http.Handler, remote string, user *auth.User) int {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remote
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }
	h := l.Middleware(okHandler)

	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1234", nil))
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:5678", nil))
	assert.Equal(t, http.StatusTooManyRequests, call(h, "10.0.0.1:1234", nil))
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.2:1234", nil))

	now = now.Add(1100 * time.Millisecond)
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1234", nil))
}

func TestCreateLimiterKeysOnUser(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewCreateLimiter(5 * time.Second)
	l.now = func() time.Time { return now }
	h := l.Middleware(okHandler)

	alice := &auth.User{ID: "alice"}
	bob := &auth.User{ID: "bob"}

	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1", alice))
	assert.Equal(t, http.StatusTooManyRequests, call(h, "10.0.0.1:1", alice))
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1", bob))

	now = now.Add(5 * time.Second)
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1", alice))
}

func TestRateLimiterDropsExpiredCallers(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(5)
	l.now = func() time.Time { return now }
	h := l.Middleware(okHandler)

	call(h, "10.0.0.1:1", nil)
	call(h, "10.0.0.2:1", nil)
	assert.Len(t, l.data, 2)

	now = now.Add(sweepEvery + time.Second)
	call(h, "10.0.0.3:1", nil)
	assert.Len(t, l.data, 1)
	assert.Contains(t, l.data, "ip:10.0.0.3")
}

func TestCreateLimiterDropsExpiredCallers(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewCreateLimiter(5 * time.Second)
	l.now = func() time.Time { return now }
	h := l.Middleware(okHandler)

	call(h, "10.0.0.1:1", &auth.User{ID: "alice"})
	call(h, "10.0.0.1:1", &auth.User{ID: "bob"})
	assert.Len(t, l.lastSeen, 2)

	now = now.Add(sweepEvery)
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1", &auth.User{ID: "carol"}))
	assert.Len(t, l.lastSeen, 1)
	assert.Contains(t, l.lastSeen, "user:carol")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "ip:192.0.2.7", clientKey(req))

	req.RemoteAddr = "192.0.2.7"
	assert.Equal(t, "ip:192.0.2.7", clientKey(req))

	req = req.WithContext(auth.WithUser(req.Context(), &auth.User{ID: "u1"}))
	assert.Equal(t, "user:u1", clientKey(req))
}
