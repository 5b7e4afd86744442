package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vhevents/internal/config"
	"vhevents/internal/export"
	appLog "vhevents/internal/log"
	"vhevents/internal/metrics"
	"vhevents/internal/schedule"
)

// Store holds the result of the most recent successful run. The refresh
// job writes it; HTTP handlers read it.
type Store struct {
	mu        sync.RWMutex
	result    *schedule.Result
	updatedAt time.Time
}

func (s *Store) Set(res *schedule.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
	s.updatedAt = time.Now()
}

func (s *Store) Get() (*schedule.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.updatedAt
}

// RefreshFunc runs the pipeline once and publishes to the Store.
type RefreshFunc func(ctx context.Context) error

// Server exposes the latest tables over HTTP.
type Server struct {
	cfg      *config.Config
	store    *Store
	refresh  RefreshFunc
	registry *prometheus.Registry
	router   chi.Router
}

// NewServer constructs a new Server. refresh may be nil, which disables
// POST /api/refresh.
func NewServer(cfg *config.Config, store *Store, refresh RefreshFunc, registry *prometheus.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		refresh:  refresh,
		registry: registry,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(s.router)
	}
	return s.router
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every path except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="vhevents", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/weekly", s.handleWeekly)
	r.Get("/api/dates", s.handleDates)
	r.Get("/api/events", s.handleEvents)
	r.Post("/api/refresh", s.handleRefresh)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	s.router = r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type weeklyResponse struct {
	Window    string          `json:"window"`
	UpdatedAt time.Time       `json:"updated_at"`
	Days      []export.DayDTO `json:"days"`
}

type datesResponse struct {
	Window    string           `json:"window"`
	UpdatedAt time.Time        `json:"updated_at"`
	Dates     []export.DateDTO `json:"dates"`
}

type eventsResponse struct {
	Window    string            `json:"window"`
	UpdatedAt time.Time         `json:"updated_at"`
	Total     int               `json:"total"`
	Weekly    int               `json:"weekly"`
	Other     int               `json:"other"`
	Events    []export.EventDTO `json:"events"`
}

func (s *Server) latest(w http.ResponseWriter) (*schedule.Result, time.Time, bool) {
	res, at := s.store.Get()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return nil, at, false
	}
	return res, at, true
}

func (s *Server) handleWeekly(w http.ResponseWriter, _ *http.Request) {
	res, at, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, weeklyResponse{
		Window:    res.Window.String(),
		UpdatedAt: at,
		Days:      export.Weekly(res.WeeklyTable),
	})
}

func (s *Server) handleDates(w http.ResponseWriter, _ *http.Request) {
	res, at, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, datesResponse{
		Window:    res.Window.String(),
		UpdatedAt: at,
		Dates:     export.Dates(res.DateTable),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	res, at, ok := s.latest(w)
	if !ok {
		return
	}
	dtos := make([]export.EventDTO, 0, len(res.Events))
	for _, ev := range res.Events {
		dtos = append(dtos, export.Event(ev))
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Window:    res.Window.String(),
		UpdatedAt: at,
		Total:     len(res.Events),
		Weekly:    len(res.Weekly),
		Other:     len(res.Other),
		Events:    dtos,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not available")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.handleEvents(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
