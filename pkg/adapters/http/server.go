package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxEventBytes bounds the size of a POST /events body.
const MaxEventBytes = 64 << 10

// DefaultTraceLimit is the number of records GET /trace returns without ?n=.
const DefaultTraceLimit = 100

// EventDecoder turns a JSON object into a typed machine event.
type EventDecoder func(raw map[string]any) (domain.Event, error)

// Server exposes one machine over HTTP.
type Server struct {
	Machine  ports.Dispatcher
	Decode   EventDecoder
	Snapshot func() (any, error)
	Diagram  func(ctx context.Context) (string, error)
	Trace    ports.TraceSink
	Streams  *StreamManager
	Logger   *slog.Logger

	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshot replaces the default {"state": ...} body of GET /state and POST /events.
func WithSnapshot(fn func() (any, error)) Option {
	return func(s *Server) {
		s.Snapshot = fn
	}
}

// WithDiagram mounts GET /graph, serving the Mermaid text produced by fn.
func WithDiagram(fn func(ctx context.Context) (string, error)) Option {
	return func(s *Server) {
		s.Diagram = fn
	}
}

// WithTrace mounts GET /trace, reading recent records from sink.
func WithTrace(sink ports.TraceSink) Option {
	return func(s *Server) {
		s.Trace = sink
	}
}

// WithMetrics mounts GET /metrics for g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams mounts GET /trace/stream (SSE). Register sm.Hooks() on the machine to feed it.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the machine.
func NewHandler(m ports.Dispatcher, decode EventDecoder, opts ...Option) http.Handler {
	s := &Server{
		Machine: m,
		Decode:  decode,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/state", s.GetState)
	r.Post("/events", s.PostEvent)
	if s.Diagram != nil {
		r.Get("/graph", s.GetGraph)
	}
	if s.Trace != nil {
		r.Get("/trace", s.GetTrace)
	}
	if s.Streams != nil {
		r.Get("/trace/stream", s.SubscribeTrace)
	}
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
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

// PostEvent handles the POST /events request.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxEventBytes))
	if err := dec.Decode(&raw); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostEvent: Invalid request body", "error", err)
		return
	}

	ev, err := s.Decode(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid event: %v", err), http.StatusBadRequest)
		s.Logger.Warn("PostEvent: Event rejected", "error", err)
		return
	}

	if err := s.Machine.Handle(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnhandledEvent):
			http.Error(w, fmt.Sprintf("Event unhandled: %v", err), http.StatusNotFound)
		case errors.Is(err, domain.ErrMachinePoisoned):
			http.Error(w, fmt.Sprintf("Machine unavailable: %v", err), http.StatusServiceUnavailable)
			s.Logger.Error("PostEvent: machine poisoned", "error", err)
		default:
			http.Error(w, fmt.Sprintf("Handle error: %v", err), http.StatusInternalServerError)
			s.Logger.Error("PostEvent: Handle failed", "event", ev.Type(), "error", err)
		}
		return
	}

	s.writeState(w)
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w)
}

func (s *Server) writeState(w http.ResponseWriter) {
	var (
		body any
		err  error
	)
	if s.Snapshot != nil {
		body, err = s.Snapshot()
	} else {
		var st domain.State
		st, err = s.Machine.State()
		if err == nil {
			body = map[string]domain.StateID{"state": st.ID()}
		}
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrMachinePoisoned) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, fmt.Sprintf("State error: %v", err), status)
		return
	}
	writeJSON(w, s.Logger, body)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	diagram, err := s.Diagram(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Graph error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("GetGraph failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, diagram)
}

// GetTrace handles the GET /trace request. ?n= limits the number of records.
func (s *Server) GetTrace(w http.ResponseWriter, r *http.Request) {
	n := DefaultTraceLimit
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			http.Error(w, "Invalid n: expected a positive integer", http.StatusBadRequest)
			return
		}
		n = v
	}

	records, err := s.Trace.Recent(r.Context(), n)
	if err != nil {
		http.Error(w, fmt.Sprintf("Trace error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("GetTrace failed", "error", err)
		return
	}
	if records == nil {
		records = []domain.TraceRecord{}
	}
	writeJSON(w, s.Logger, records)
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if _, err := s.Machine.State(); err != nil {
		status, code = err.Error(), http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

// StreamManager fans trace records out to active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- domain.TraceRecord]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[chan<- domain.TraceRecord]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe() (<-chan domain.TraceRecord, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan domain.TraceRecord, 64)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast never blocks: slow clients lose records.
func (sm *StreamManager) Broadcast(rec domain.TraceRecord) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- rec:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping record", "type", rec.Type, "cycle", rec.CycleID)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every machine hook event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			sm.Broadcast(domain.NewDispatchRecord(e))
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			sm.Broadcast(domain.NewTransitionRecord(e))
		},
		OnUnhandled: func(_ context.Context, e *domain.DispatchEvent) {
			sm.Broadcast(domain.NewDispatchRecord(e))
		},
	}
}

// SubscribeTrace handles the GET /trace/stream request (SSE).
// ?type= restricts the stream to a comma-separated list of hook types.
func (s *Server) SubscribeTrace(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeTrace: Streaming not supported")
		return
	}

	var watch map[domain.HookType]bool
	if q := r.URL.Query().Get("type"); q != "" {
		watch = make(map[domain.HookType]bool)
		for _, t := range strings.Split(q, ",") {
			watch[domain.HookType(strings.TrimSpace(t))] = true
		}
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE Client Disconnected")
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			if watch != nil && !watch[rec.Type] {
				continue
			}
			data, err := json.Marshal(rec)
			if err != nil {
				s.Logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", rec.Type, data)
			flusher.Flush()
		}
	}
}
