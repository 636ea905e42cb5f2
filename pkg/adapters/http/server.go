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

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/spindle"
	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/domain"
)

// Driver is the part of a ViewModel the server drives.
type Driver[I, S any] interface {
	Send(ctx context.Context, input I) error
	SendAndAwait(ctx context.Context, input I) error
	State() S
	Observe(ctx context.Context) <-chan S
	Phase() domain.Phase
	Name() string
	ID() string
}

// DecodeFunc turns a request body into an Input.
type DecodeFunc[I any] func(r *http.Request) (I, error)

// JSONDecoder decodes the request body as a JSON-encoded I.
func JSONDecoder[I any]() DecodeFunc[I] {
	return func(r *http.Request) (I, error) {
		var in I
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
}

// Server serves one ViewModel.
type Server[I, S any] struct {
	VM      Driver[I, S]
	Decode  DecodeFunc[I]
	Streams *StreamManager
	Logger  *slog.Logger
}

// Option configures NewHandler.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	streams *StreamManager
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStreams sets the StreamManager backing GET /events. Feed it with EventHooks.
func WithStreams(sm *StreamManager) Option {
	return func(c *config) {
		c.streams = sm
	}
}

// NewHandler creates a new HTTP handler for vm.
func NewHandler[I, S any](vm Driver[I, S], decode DecodeFunc[I], opts ...Option) http.Handler {
	c := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.streams == nil {
		c.streams = NewStreamManager(c.logger)
	}

	s := &Server[I, S]{
		VM:      vm,
		Decode:  decode,
		Streams: c.streams,
		Logger:  c.logger,
	}

	r := chi.NewRouter()
	r.Use(enableCORS)
	r.Post("/inputs", s.PostInput)
	r.Get("/state", s.GetState)
	r.Get("/states", s.SubscribeStates)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostInput handles POST /inputs.
func (s *Server[I, S]) PostInput(w http.ResponseWriter, r *http.Request) {
	input, err := s.Decode(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid input: %w", err))
		s.Logger.Warn("PostInput: invalid request body", "err", err)
		return
	}

	await, _ := strconv.ParseBool(r.URL.Query().Get("await"))
	if !await {
		if err := s.VM.Send(r.Context(), input); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	if err := s.VM.SendAndAwait(r.Context(), input); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.Logger.Error("PostInput: input failed", "err", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, s.VM.State())
}

// statusFor maps runtime errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInputRejected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInputDropped):
		return http.StatusTooManyRequests
	case domain.IsGateError(err), errors.Is(err, domain.ErrInputCancelled):
		return http.StatusServiceUnavailable
	case domain.IsUsageError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// GetState handles GET /state.
func (s *Server[I, S]) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.VM.State())
}

// SubscribeStates handles GET /states (SSE). The first message is the current State.
func (s *Server[I, S]) SubscribeStates(w http.ResponseWriter, r *http.Request) {
	flusher, ok := startStream(w)
	if !ok {
		s.Logger.Error("SubscribeStates: streaming not supported")
		return
	}
	s.Logger.Info("SSE: subscribing to states")

	for state := range s.VM.Observe(r.Context()) {
		data, err := json.Marshal(state)
		if err != nil {
			s.Logger.Error("SSE: state encode failed", "err", err)
			continue
		}
		fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
		flusher.Flush()
	}
	s.Logger.Info("SSE client disconnected")
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server[I, S]) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.Streams.Subscribe(TopicEvents)
	defer cancel()

	flusher, ok := startStream(w)
	if !ok {
		s.Logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: event\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	return flusher, true
}

// GetHealth handles GET /health. It reports 503 once the ViewModel stopped running.
func (s *Server[I, S]) GetHealth(w http.ResponseWriter, r *http.Request) {
	phase := s.VM.Phase()
	status := http.StatusOK
	if phase != domain.PhaseRunning {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": strings.ToLower(http.StatusText(status)), "phase": string(phase)})
}

// GetInfo handles GET /info.
func (s *Server[I, S]) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":       "spindle-http",
		"version":   strings.TrimSpace(spindle.Version),
		"viewmodel": s.VM.Name(),
		"id":        s.VM.ID(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
