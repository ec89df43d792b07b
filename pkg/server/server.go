// Package server exposes the build pipeline over HTTP.
//
// Routes:
//
//	POST /v1/builds        build a JSON configuration, returns the manifest
//	GET  /v1/builds        list recent build records (?limit=N)
//	GET  /v1/builds/{id}   fetch one build record
//	GET  /healthz          liveness probe
//
// Request bodies use the same schema as a JSON config file. Modules must
// carry inline content; content_file is rejected because the server has no
// base directory to resolve it against.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/chunksplit/pkg/buildinfo"
	"github.com/matzehuels/chunksplit/pkg/config"
	"github.com/matzehuels/chunksplit/pkg/errors"
	"github.com/matzehuels/chunksplit/pkg/manifest"
	"github.com/matzehuels/chunksplit/pkg/observability"
	"github.com/matzehuels/chunksplit/pkg/pipeline"
	"github.com/matzehuels/chunksplit/pkg/store"
)

const (
	// DefaultMaxBody bounds the size of a build request body.
	DefaultMaxBody = 32 << 20
	defaultLimit   = 20
	shutdownGrace  = 5 * time.Second
)

// Server serves build requests backed by a pipeline.Runner.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
}

// New creates a server. Builds are recorded in the runner's store; when the
// runner has none, an in-memory store is installed so GET /v1/builds/{id}
// still works for the lifetime of the process.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = runner.Logger
	}
	if runner.Store == nil {
		runner.Store = store.NewMemoryStore()
	}
	return &Server{runner: runner, logger: logger, maxBody: DefaultMaxBody}
}

// SetMaxBody overrides DefaultMaxBody.
func (s *Server) SetMaxBody(n int64) { s.maxBody = n }

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hooks)

	r.Get("/healthz", s.health)
	r.Post("/v1/builds", s.createBuild)
	r.Get("/v1/builds", s.listBuilds)
	r.Get("/v1/builds/{id}", s.getBuild)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting for in-flight builds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// BuildResponse is the body returned by POST /v1/builds.
type BuildResponse struct {
	BuildID     string            `json:"build_id"`
	RequestHash string            `json:"request_hash"`
	CacheHit    bool              `json:"cache_hit"`
	Manifest    manifest.Manifest `json:"manifest"`
	Stats       store.Stats       `json:"stats"`
}

func (s *Server) createBuild(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}

	cfg, err := config.Parse(data, config.FormatJSON)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	req, err := cfg.Request()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	req.Refresh, _ = strconv.ParseBool(r.URL.Query().Get("refresh"))

	res, err := s.runner.Execute(r.Context(), req)
	if err != nil {
		s.logger.Warn("build failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, BuildResponse{
		BuildID:     res.BuildID,
		RequestHash: res.RequestHash,
		CacheHit:    res.CacheHit,
		Manifest:    res.Manifest,
		Stats: store.Stats{
			Modules:  res.Stats.Modules,
			Edges:    res.Stats.Edges,
			Chunks:   res.Stats.Chunks,
			CacheHit: res.CacheHit,
			Duration: res.Stats.Total,
		},
	})
}

func (s *Server) getBuild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "invalid build id %q", id))
		return
	}
	rec, err := s.runner.Store.Get(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "build %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	recs, err := s.runner.Store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Build: buildinfo.Get()})
}

// hooks reports every request to the HTTP observability hooks, labelled by
// route pattern rather than raw path.
func hooks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	if errors.IsFatalBuild(err) {
		return http.StatusUnprocessableEntity
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidRule,
		errors.ErrCodeInvalidTemplate, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath,
		errors.ErrCodeFileNotFound:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type healthBody struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: string(code), Message: errors.UserMessage(err)}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
