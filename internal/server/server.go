// Package server exposes the mirrored store over a read-only HTTP API and
// optionally keeps it fresh with periodic reconciliation passes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Option configures a [Server].
type Option func(*Server)

// WithSyncer enables POST /api/v1/sync and pass status in /api/v1/stats.
func WithSyncer(s *Syncer) Option {
	return func(srv *Server) { srv.syncer = s }
}

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(srv *Server) { srv.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// Server serves package records, dependencies and mirror statistics.
type Server struct {
	store    store.Store
	syncer   *Syncer
	gatherer prometheus.Gatherer
	logger   *log.Logger
}

// New creates a server over st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{store: st, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/packages/{name}", s.handlePackage)
		r.Get("/packages/{name}/dependencies", s.handleDependencies)
		r.Post("/sync", s.handleSync)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type packageResponse struct {
	Name         string          `json:"name"`
	LastSerial   int64           `json:"last_serial"`
	Stub         bool            `json:"stub"`
	Dependencies []string        `json:"dependencies"`
	Info         json.RawMessage `json:"info,omitempty"`
}

type dependenciesResponse struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}

type statsResponse struct {
	Packages int         `json:"packages"`
	Stubs    int         `json:"stubs"`
	Syncing  bool        `json:"syncing"`
	LastPass *PassStatus `json:"last_pass,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ix, err := s.store.Index(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	resp := statsResponse{Packages: len(ix)}
	for _, e := range ix {
		if e.Stub {
			resp.Stubs++
		}
	}
	if s.syncer != nil {
		resp.Syncing = s.syncer.Running()
		resp.LastPass = s.syncer.Last()
	}
	writeJSON(w, resp, http.StatusOK)
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, packageResponse{
		Name:         rec.Name,
		LastSerial:   rec.LastSerial,
		Stub:         rec.IsStub(),
		Dependencies: nonNil(rec.Dependencies()),
		Info:         rec.Info,
	}, http.StatusOK)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, dependenciesResponse{Name: rec.Name, Dependencies: nonNil(rec.Dependencies())}, http.StatusOK)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, perrors.New(perrors.ErrCodeInvalidInput, "sync is not enabled on this server"), http.StatusNotFound)
		return
	}
	if s.syncer.Closed() {
		writeError(w, perrors.New(perrors.ErrCodeInterrupted, "server is shutting down"), http.StatusServiceUnavailable)
		return
	}
	if s.syncer.Running() {
		writeError(w, perrors.New(perrors.ErrCodeSyncInProgress, "a pass is already running"), http.StatusConflict)
		return
	}

	// The pass outlives the request; Syncer.Shutdown stops it.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		_, err := s.syncer.TrySync(ctx)
		if err != nil && !errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrSyncerClosed) {
			s.logger.Error("requested sync failed", "error", err)
		}
	}()
	writeJSON(w, map[string]string{"status": "started"}, http.StatusAccepted)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	raw := chi.URLParam(r, "name")
	if err := perrors.ValidatePackageName(raw); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return nil, false
	}
	name := integrations.NormalizePkgName(raw)

	rec, err := s.store.Get(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, perrors.New(perrors.ErrCodePackageNotFound, "package %s is not mirrored", name), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, perrors.New(perrors.ErrCodeInternal, "internal error"), http.StatusInternalServerError)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error, status int) {
	body := map[string]string{"error": perrors.UserMessage(err)}
	if code := perrors.GetCode(err); code != "" {
		body["code"] = string(code)
	}
	writeJSON(w, body, status)
}
