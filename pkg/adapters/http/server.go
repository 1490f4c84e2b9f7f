package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/internal/presentation/graph"
	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the part of geofence.Service the HTTP adapter drives.
type Service interface {
	Snapshot() []domain.Region
	Status() coordinator.Status
	Register(ctx context.Context) (domain.Mutation, error)
	Unregister(ctx context.Context) domain.Mutation
	Reconcile(ctx context.Context) (domain.Mutation, bool)
	Confirmed() []domain.Region
}

// Server exposes the service over HTTP. Transition events are only enqueued;
// the service's Run loop handles them in order.
type Server struct {
	Service Service
	Events  chan<- domain.TransitionEvent
	Streams *StreamManager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a StreamManager already attached to the service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(svc Service, events chan<- domain.TransitionEvent, opts ...Option) http.Handler {
	s := &Server{
		Service: svc,
		Events:  events,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/events", s.PostEvent)
	r.Post("/register", s.PostRegister)
	r.Post("/unregister", s.PostUnregister)
	r.Post("/reconcile", s.PostReconcile)
	r.Get("/regions", s.GetRegions)
	r.Get("/status", s.GetStatus)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/stream", s.SubscribeStream)
	r.Get("/diagram", s.GetDiagram)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostEvent handles POST /events. The body is one TransitionEvent.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.TransitionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		s.logger.Warn("PostEvent: Invalid request body", "error", err)
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	select {
	case s.Events <- ev:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"}, s.logger)
	case <-r.Context().Done():
		return
	default:
		http.Error(w, "Event queue full", http.StatusServiceUnavailable)
		s.logger.Warn("PostEvent: queue full, event dropped", "kind", ev.Kind)
	}
}

// PostRegister handles POST /register.
func (s *Server) PostRegister(w http.ResponseWriter, r *http.Request) {
	m, err := s.Service.Register(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Register error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Register failed", "error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, m, s.logger)
}

// PostUnregister handles POST /unregister.
func (s *Server) PostUnregister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, s.Service.Unregister(r.Context()), s.logger)
}

// PostReconcile handles POST /reconcile.
func (s *Server) PostReconcile(w http.ResponseWriter, r *http.Request) {
	m, ok := s.Service.Reconcile(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "in sync or busy"}, s.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, m, s.logger)
}

// GetRegions handles GET /regions.
func (s *Server) GetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.Snapshot(), s.logger)
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.Status(), s.logger)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetDiagram handles GET /diagram. ?view=regions compares desired and
// confirmed regions; the default view is the coordinator state machine.
func (s *Server) GetDiagram(w http.ResponseWriter, r *http.Request) {
	var out string
	switch r.URL.Query().Get("view") {
	case "", "state":
		st := s.Service.Status()
		out = graph.GenerateStateDiagram(&st)
	case "regions":
		out = graph.GenerateRegions(s.Service.Snapshot(), s.Service.Confirmed())
	default:
		http.Error(w, "Unknown view", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	fmt.Fprint(w, out)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "geofence-http",
		"version": strings.TrimSpace(geofence.Version),
	}, s.logger)
}

// SubscribeStream handles GET /stream (SSE). ?topics=notification,retired filters.
func (s *Server) SubscribeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeStream: Streaming not supported")
		return
	}

	topics := map[string]bool{}
	if q := r.URL.Query().Get("topics"); q != "" {
		for _, t := range strings.Split(q, ",") {
			topics[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(topics) > 0 && !topics[msg.Topic] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Topic, msg.Data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
