package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"taskverse/internal/logging"
	"taskverse/pkg/task"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	tasks      task.Store
	log        *log.Logger
	corsOrigin string
	mux        *http.ServeMux
	handler    http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value. Empty disables CORS.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// New creates a new Server.
func New(tasks task.Store, opts ...Option) *Server {
	s := &Server{
		tasks:      tasks,
		log:        logging.Discard(),
		corsOrigin: "*",
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.handler = chain(s.mux,
		withRequestID,
		s.withRecover,
		withAccessLog(s.log),
		withCORS(s.corsOrigin),
	)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /tasks", s.handleTaskCreate)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PUT /tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("PATCH /tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /tasks/{id}", s.handleTaskDelete)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStoreError maps domain errors to HTTP status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *task.ValidationError
	switch {
	case errors.As(err, &ve):
		s.writeError(w, r, http.StatusBadRequest, ve.Error())
	case errors.Is(err, task.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	default:
		s.log.Error("store failure",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()))
		s.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDecodeError answers a body that could not be decoded.
func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		s.writeError(w, r, http.StatusBadRequest, ve.Error())
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid JSON: "+err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write json",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}
