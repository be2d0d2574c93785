// Package devserver is an in-memory implementation of the timetick remote
// API. It backs local development and the gateway integration tests.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/steveljko/timetick/internal/api"
)

type (
	// Response is the envelope used for status-only replies and errors.
	Response struct {
		Success bool   `json:"success"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	}

	storedEntry struct {
		ID        string
		ProjectID string
		StartTime time.Time
		EndTime   *time.Time
		Duration  *int64
		CreatedAt time.Time
	}

	// Upload records one received profile picture.
	Upload struct {
		FileName string
		MimeType string
		Size     int64
	}
)

type Server struct {
	token  string
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	projects []api.ProjectRecord // newest first
	entries  []storedEntry       // newest first
	profile  *api.ProfileRecord
	uploads  []Upload
	outage   int
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server accepting only the given bearer token.
func New(token string, opts ...Option) *Server {
	s := &Server{
		token:  token,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes the API under /api/v1.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{Success: true})
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.simulateOutage, s.authenticate)

	v1.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	v1.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	v1.HandleFunc("/projects/{id}", s.updateProject).Methods(http.MethodPut)
	v1.HandleFunc("/projects/{id}", s.deleteProject).Methods(http.MethodDelete)

	v1.HandleFunc("/time-entries", s.listTimeEntries).Methods(http.MethodGet)
	v1.HandleFunc("/time-entries", s.createTimeEntry).Methods(http.MethodPost)
	v1.HandleFunc("/time-entries/{id}", s.updateTimeEntry).Methods(http.MethodPut)

	v1.HandleFunc("/profile", s.getProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profile", s.createProfile).Methods(http.MethodPost)
	v1.HandleFunc("/profile/picture", s.uploadPicture).Methods(http.MethodPost)

	v1.HandleFunc("/leaderboard", s.getLeaderboard).Methods(http.MethodGet)

	return r
}

// SetOutage makes every API request fail with status until it is reset to 0.
func (s *Server) SetOutage(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = status
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) simulateOutage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.outage
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "outage", "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || token != s.token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing bearer token")
			return
		}
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Response{Success: false, Code: code, Message: msg})
}
