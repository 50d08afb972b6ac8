package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"timetable-service/internal/auth"
)

// clientKey identifies the caller for rate limiting: the signed-in user,
// otherwise the remote address.
func clientKey(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return "user:" + u.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// sweepEvery bounds how often the limiters drop entries of callers whose
// window has passed.
const sweepEvery = time.Minute

type rateInfo struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows rps requests per caller in each one-second window.
type RateLimiter struct {
	rps int
	now func() time.Time

	mu        sync.Mutex
	data      map[string]*rateInfo
	nextSweep time.Time
}

func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{rps: rps, now: time.Now, data: map[string]*rateInfo{}}
}

// sweep must be called with mu held.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, ri := range l.data {
		if now.After(ri.resetAt) {
			delete(l.data, key)
		}
	}
	l.nextSweep = now.Add(sweepEvery)
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	const window = time.Second

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		now := l.now()

		l.mu.Lock()
		l.sweep(now)
		ri, ok := l.data[key]
		if !ok || now.After(ri.resetAt) {
			ri = &rateInfo{resetAt: now.Add(window)}
			l.data[key] = ri
		}
		ri.count++
		count := ri.count
		reset := ri.resetAt
		l.mu.Unlock()

		if count > l.rps {
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Sub(now).Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateLimiter lets each caller create at most one timeline per window.
type CreateLimiter struct {
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	lastSeen  map[string]time.Time
	nextSweep time.Time
}

func NewCreateLimiter(window time.Duration) *CreateLimiter {
	return &CreateLimiter{window: window, now: time.Now, lastSeen: map[string]time.Time{}}
}

// sweep must be called with mu held.
func (l *CreateLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, last := range l.lastSeen {
		if now.Sub(last) >= l.window {
			delete(l.lastSeen, key)
		}
	}
	l.nextSweep = now.Add(max(l.window, sweepEvery))
}

func (l *CreateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		now := l.now()

		l.mu.Lock()
		l.sweep(now)
		last, ok := l.lastSeen[key]
		if ok && now.Sub(last) < l.window {
			l.mu.Unlock()
			writeError(w, http.StatusTooManyRequests, "too many timeline creations")
			return
		}
		l.lastSeen[key] = now
		l.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func bodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
