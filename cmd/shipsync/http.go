package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/BearBump/ShipSync/config"
	"github.com/BearBump/ShipSync/internal/services/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type opsHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	runner   *syncer.Runner
	journal  runJournal
	gatherer prometheus.Gatherer
	cfg      *config.Config
}

func runOpsHTTPServer(ctx context.Context, opts opsHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newOpsRouter(opts), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("ops HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newOpsRouter(opts opsHTTPOpts) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.runner == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.runner == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "runner not wired"})
			return
		}
		writeJSON(w, http.StatusOK, opts.runner.Stats())
	})

	r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
		if opts.journal == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run journal not configured"})
			return
		}
		limit := defaultRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxRunsLimit)
		}
		runs, err := opts.journal.ListRuns(r.Context(), limit)
		if err != nil {
			slog.Error("list runs", "error", err.Error())
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "config not wired"})
			return
		}
		// Без секретов: только рабочие настройки.
		c := opts.cfg
		writeJSON(w, http.StatusOK, map[string]any{
			"databaseId":         c.Notion.DatabaseID,
			"pageSize":           c.Notion.PageSize,
			"providerMode":       c.AfterShip.Mode,
			"providerBaseUrl":    c.AfterShip.BaseURL,
			"defaultCarrier":     c.ShipSync.DefaultCarrier,
			"intervalSeconds":    c.ShipSync.IntervalSeconds,
			"rateLimitPerMinute": c.ShipSync.RateLimitPerMinute,
			"lockTtlSeconds":     c.ShipSync.LockTTLSeconds,
			"journalEnabled":     c.PostgresDSN() != "",
			"eventsEnabled":      len(c.KafkaBrokers()) > 0,
			"eventsTopic":        c.Kafka.ShipmentSyncedTopicName,
			"redisEnabled":       c.RedisAddr() != "",
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.runner == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "runner not wired"})
			return
		}
		opts.runner.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	if opts.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.gatherer, promhttp.HandlerOpts{}))
	}

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})

		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	return r
}
