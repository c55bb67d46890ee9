package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/PostiBox/config"
	"github.com/BearBump/PostiBox/internal/services/poller"
	"github.com/go-chi/chi/v5"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	poller *poller.Poller
	cfg    *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.poller == nil {
			_, _ = w.Write([]byte(`{"error":"poller not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.poller.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Avoid dumping credentials; show only operational worker settings.
		out := map[string]any{
			"accounts":              len(opts.cfg.Accounts),
			"pollIntervalSeconds":   opts.cfg.PostiBox.WorkerPollIntervalSeconds,
			"rateLimitPerMinute":    opts.cfg.PostiBox.WorkerRateLimitPerMinute,
			"backoff1Seconds":       opts.cfg.PostiBox.WorkerBackoff1Seconds,
			"backoff2Seconds":       opts.cfg.PostiBox.WorkerBackoff2Seconds,
			"backoff3Seconds":       opts.cfg.PostiBox.WorkerBackoff3Seconds,
			"backoff4Seconds":       opts.cfg.PostiBox.WorkerBackoff4Seconds,
			"sessionTimeoutSeconds": opts.cfg.PostiBox.SessionTimeoutSeconds,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.poller == nil {
			_, _ = w.Write([]byte(`{"error":"poller not wired"}`))
			return
		}
		opts.poller.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
