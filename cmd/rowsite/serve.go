package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/hf-rowsite/internal/tracing"
	"github.com/Sternrassler/hf-rowsite/pkg/cache"
	"github.com/Sternrassler/hf-rowsite/pkg/client"
	"github.com/Sternrassler/hf-rowsite/pkg/pagination"
)

// server is the preview server behind "rowsite serve".
type server struct {
	dir     string
	client  *client.Client
	dataset client.Dataset
	logger  zerolog.Logger
}

func newServer(dir string, c *client.Client, dataset client.Dataset) *server {
	return &server{
		dir:     dir,
		client:  c,
		dataset: dataset,
		logger:  log.With().Str("component", "server").Logger(),
	}
}

func (s *server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(s.client.Cache()))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/rows", s.rowsHandler)

	r.Handle("/*", http.FileServer(http.Dir(s.dir)))

	return tracing.Handler(r, "rowsite")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("dir", s.dir).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the cache is configured but unreachable.
func readyHandler(cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cm != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cm.Ping(ctx); err != nil {
				http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// rowsHandler passes GET /api/rows?page=N (or offset, length) through to the
// dataset-server. dataset, config and split default to the served dataset.
func (s *server) rowsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), -1)
	if err != nil || (q.Get("page") != "" && page < 0) {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	length, err := queryInt(q.Get("length"), pagination.PageSize)
	if err != nil || length < 1 || length > pagination.PageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("length must be between 1 and %d", pagination.PageSize))
		return
	}
	if page >= 0 {
		offset = pagination.Offset(page, length)
	}

	dataset := s.dataset
	if v := q.Get("dataset"); v != "" {
		dataset.Name = v
	}
	if v := q.Get("config"); v != "" {
		dataset.Config = v
	}
	if v := q.Get("split"); v != "" {
		dataset.Split = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := s.client.Get(ctx, client.RowsQuery{Dataset: dataset, Offset: offset, Length: length})
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
		writeError(w, status, err.Error())
		return
	}
	defer resp.Body.Close()

	for _, h := range []string{"Content-Type", "Cache-Control", "X-Cache"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
