package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kaya-scraper/internal/usecase"
)

// HTTPServer returns a configured http.Server that exposes endpoints to trigger syncs.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /sync?gym=<id>&mode=full|incremental&batch=<n>&offset=<n>
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		gymID := q.Get("gym")
		if gymID == "" {
			http.Error(w, "gym is required", http.StatusBadRequest)
			return
		}
		opts := optsFromQuery(q.Get("mode"), q.Get("batch"), q.Get("offset"))

		ctx, cancel := syncContext(r, q.Get("timeout"))
		defer cancel()
		res, err := a.SyncGym(ctx, gymID, opts)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "error",
				"error":  err.Error(),
				"gym":    gymID,
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"gym":           gymID,
			"total_written": res.TotalWritten,
		})
	})

	// /sync-all?mode=full|incremental&batch=<n>
	mux.HandleFunc("/sync-all", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		opts := optsFromQuery(q.Get("mode"), q.Get("batch"), "")

		ctx, cancel := syncContext(r, q.Get("timeout"))
		defer cancel()
		results, err := a.SyncAll(ctx, opts)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "error",
				"error":  err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"results": results,
		})
	})

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

// optsFromQuery builds sync options from query parameters, falling back to
// the usecase defaults on absent or invalid values.
func optsFromQuery(mode, batch, offset string) usecase.SyncOptions {
	var opts usecase.SyncOptions
	if mode == string(usecase.ModeFull) {
		opts.Mode = usecase.ModeFull
	} else {
		opts.Mode = usecase.ModeIncremental
	}
	if v, err := strconv.Atoi(batch); err == nil && v > 0 {
		opts.BatchSize = v
	}
	if v, err := strconv.Atoi(offset); err == nil && v > 0 {
		opts.StartOffset = v
	}
	return opts
}

// syncContext applies an optional ?timeout=5m override to the request context.
func syncContext(r *http.Request, timeout string) (context.Context, context.CancelFunc) {
	ctx := r.Context()
	if timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			return context.WithTimeout(ctx, d)
		}
	}
	return ctx, func() {}
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
