package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
)

// Channel carries the timeline change events published by the API.
const Channel = "broadcast"

type Metrics struct {
	connections prometheus.Gauge
	messages    prometheus.Counter
}

// NewMetrics registers the realtime collectors on reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_realtime_connections",
			Help: "Open viewer websocket connections.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_realtime_messages_delivered_total",
			Help: "Change events queued to viewers.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.messages)
	}
	return m
}

func (m *Metrics) connected(n int) {
	if m != nil {
		m.connections.Set(float64(n))
	}
}

func (m *Metrics) delivered() {
	if m != nil {
		m.messages.Inc()
	}
}

// Access decides whether user may watch a timeline. *timeline.Service
// implements it with the same public-or-owner rule as the API.
type Access interface {
	CanView(ctx context.Context, user *auth.User, timelineID string) error
}

type Server struct {
	hub      *Hub
	rdb      *redis.Client
	access   Access
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer builds the websocket endpoint. Browsers are accepted only from
// allowedOrigins; an empty list accepts any origin.
func NewServer(hub *Hub, rdb *redis.Client, access Access, allowedOrigins []string, logger *zap.Logger) *Server {
	s := &Server{
		hub:    hub,
		rdb:    rdb,
		access: access,
		logger: logger.Named("realtime"),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
	return s
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(allowed) == 0 {
		return true
	}
	if strings.HasSuffix(origin, "://"+r.Host) {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/ws", s.handleWS)
}

// RunRedisSubscriber relays change events from Redis to the hub until ctx
// is done.
func (s *Server) RunRedisSubscriber(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.hub.Publish(ctx, timelineOf([]byte(msg.Payload)), []byte(msg.Payload))
		}
	}
}

// timelineOf finds the timeline an event is about (payload.timelineId).
func timelineOf(data []byte) string {
	var env struct {
		Payload struct {
			TimelineID string `json:"timelineId"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Payload.TimelineID
}

// handleWS upgrades viewers of one timeline. The viewer must be allowed to
// see it, so private timelines are watched only by their owner.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	timelineID := r.URL.Query().Get("timeline")
	if timelineID == "" {
		http.Error(w, "timeline is required", http.StatusBadRequest)
		return
	}
	if err := s.access.CanView(r.Context(), auth.UserFromContext(r.Context()), timelineID); err != nil {
		http.Error(w, "timeline not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		timelineID: timelineID,
	}

	welcome := map[string]any{
		"type":     "welcome",
		"timeline": client.timelineID,
		"now":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.Marshal(welcome); err == nil {
		client.send <- b
	}

	if !s.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
