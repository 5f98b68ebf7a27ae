package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nao1215/feedrover/internal/database"
	"github.com/nao1215/feedrover/internal/model"
	"github.com/nao1215/feedrover/internal/report"
)

const (
	// DefaultAddr is the listen address used by `feedrover serve`.
	DefaultAddr = ":8080"

	// DefaultRunLimit caps /runs when no limit is given.
	DefaultRunLimit = 50

	// maxRunLimit caps any requested limit.
	maxRunLimit = 1000

	// shutdownTimeout bounds draining in-flight requests.
	shutdownTimeout = 10 * time.Second

	serviceName = "feedrover"
)

// Store is the subset of the database the server reads.
// *database.ProxyDB implements it.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]model.ProxyRecord, error)
	ListRuns(ctx context.Context, target string, limit int) ([]model.CrawlRun, error)
	GetRun(ctx context.Context, id string) (model.CrawlRun, error)
}

var _ Store = (*database.ProxyDB)(nil)

// Server serves the HTTP API.
type Server struct {
	store   Store
	version string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by the root endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithClock sets the time source for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server reading from store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		version: "dev",
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}", s.handleRun).Methods(http.MethodGet)
	r.HandleFunc("/proxies", s.handleProxies).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server closed")
	return nil
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Message:   serviceName + " is running",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("database ping failed", "error", err)
		resp.Status = "UNAVAILABLE"
		resp.Message = "database unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": serviceName + " API",
		"version": s.version,
		"status":  "running",
		"endpoints": map[string]string{
			"health":  "/health",
			"runs":    "/runs",
			"run":     "/runs/{id}",
			"proxies": "/proxies",
		},
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("target"), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := report.NewJSONWriter(w, report.WithVersion(s.version)).Write(runs); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, database.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// proxyView is a proxy without its credentials.
type proxyView struct {
	Address       string     `json:"address"`
	Authenticated bool       `json:"authenticated"`
	UsageCount    int64      `json:"usage_count"`
	LastClaimedAt *time.Time `json:"last_claimed_at,omitempty"`
}

func (s *Server) handleProxies(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list proxies", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list proxies")
		return
	}
	views := make([]proxyView, 0, len(records))
	for _, p := range records {
		views = append(views, proxyView{
			Address:       p.Address,
			Authenticated: p.HasCredentials(),
			UsageCount:    p.UsageCount,
			LastClaimedAt: p.LastClaimedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", s.now().Sub(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
