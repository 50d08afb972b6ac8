package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/realtime"
	"timetable-service/internal/timeline"
	"timetable-service/internal/view"
	"timetable-service/internal/wizard"
)

const maxBodyBytes = 1 << 20

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// Deps is everything the router mounts. Realtime is optional.
type Deps struct {
	Logger *zap.Logger
	Tokens *auth.Tokens

	Auth      *auth.Handler
	Timelines *timeline.Handler
	Wizard    *wizard.Handler
	Pages     *view.Pages
	Realtime  *realtime.Server

	Gatherer prometheus.Gatherer
	Checks   map[string]Check

	CORSAllowedOrigins []string
	RateLimitRPS       int
	CreateRateWindow   time.Duration
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	if len(d.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   d.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(d.Tokens.Optional)

	r.Get("/health", health(d.Checks))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	// Websockets outlive the request timeout.
	if d.Realtime != nil {
		d.Realtime.Routes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(NewRateLimiter(d.RateLimitRPS).Middleware)
		r.Use(bodySizeLimit(maxBodyBytes))

		// Both create paths share one per-user window.
		createLimit := NewCreateLimiter(d.CreateRateWindow).Middleware

		d.Auth.Routes(r)
		d.Timelines.Routes(r, createLimit)
		d.Wizard.Routes(r, createLimit)
		d.Pages.Routes(r)
	})

	return r
}

// requestLogger is chi's request log written through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func health(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{
			"status":  "ok",
			"service": "timetable-service",
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		writeJSON(w, status, body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
