package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ShipSync/config"
	"github.com/BearBump/ShipSync/internal/broker/kafka"
	"github.com/BearBump/ShipSync/internal/cache/rediscache"
	"github.com/BearBump/ShipSync/internal/integrations/aftership"
	"github.com/BearBump/ShipSync/internal/integrations/tracker"
	"github.com/BearBump/ShipSync/internal/integrations/tracker/fake"
	"github.com/BearBump/ShipSync/internal/metrics"
	"github.com/BearBump/ShipSync/internal/models"
	"github.com/BearBump/ShipSync/internal/notion"
	"github.com/BearBump/ShipSync/internal/services/syncer"
	"github.com/BearBump/ShipSync/internal/storage/pgjournal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
)

type runJournal interface {
	syncer.Journal
	ListRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

// Вспомогательные зависимости (журнал, kafka, redis) необязательны:
// фабрика возвращает nil, если адрес не задан в конфиге.
type syncFactories struct {
	newRowStore    func(cfg *config.Config) syncer.RowStore
	newProvider    func(cfg *config.Config) tracker.Client
	newJournal     func(ctx context.Context, cfg *config.Config) (j runJournal, closeFn func(), err error)
	newProducer    func(cfg *config.Config) (p syncer.Producer, closeFn func())
	newRateLimiter func(cfg *config.Config) (rl syncer.RateLimiter, closeFn func())
	newLock        func(cfg *config.Config) (l syncer.Locker, closeFn func())
}

func defaultSyncFactories() syncFactories {
	return syncFactories{
		newRowStore: func(cfg *config.Config) syncer.RowStore {
			return notion.New(cfg.Notion.Token, cfg.Notion.PageSize)
		},
		newProvider: func(cfg *config.Config) tracker.Client {
			switch cfg.AfterShip.Mode {
			case config.ProviderModeAfterShip:
				return aftership.New(cfg.AfterShip.BaseURL, cfg.AfterShip.APIKey,
					time.Duration(cfg.AfterShip.TimeoutSeconds)*time.Second)
			case config.ProviderModeFake:
				return fake.New()
			default:
				slog.Warn("unknown provider mode, falling back to fake", "mode", cfg.AfterShip.Mode)
				return fake.New()
			}
		},
		newJournal: func(ctx context.Context, cfg *config.Config) (runJournal, func(), error) {
			dsn := cfg.PostgresDSN()
			if dsn == "" {
				return nil, nil, nil
			}
			st, err := pgjournal.New(ctx, dsn)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) (syncer.Producer, func()) {
			brokers := cfg.KafkaBrokers()
			if len(brokers) == 0 {
				return nil, nil
			}
			p := kafka.NewProducer(brokers)
			return p, func() { _ = p.Close() }
		},
		newRateLimiter: func(cfg *config.Config) (syncer.RateLimiter, func()) {
			addr := cfg.RedisAddr()
			if addr == "" {
				return nil, nil
			}
			rl := rediscache.NewRateLimiter(addr)
			return rl, func() { _ = rl.Close() }
		},
		newLock: func(cfg *config.Config) (syncer.Locker, func()) {
			addr := cfg.RedisAddr()
			if addr == "" {
				return nil, nil
			}
			l := rediscache.NewRunLock(addr, time.Duration(cfg.ShipSync.LockTTLSeconds)*time.Second)
			return l, func() { _ = l.Close() }
		},
	}
}

type syncApp struct {
	runner  *syncer.Runner
	journal runJournal
	closers []func()
}

func (a *syncApp) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type buildOpts struct {
	dryRun  bool
	metrics *metrics.SyncMetrics
}

func buildSyncApp(ctx context.Context, cfg *config.Config, f syncFactories, opts buildOpts) *syncApp {
	app := &syncApp{}
	addCloser := func(fn func()) {
		if fn != nil {
			app.closers = append(app.closers, fn)
		}
	}

	s := syncer.New(f.newRowStore(cfg), f.newProvider(cfg), cfg.ShipSync.DefaultCarrier).
		WithDryRun(opts.dryRun).
		WithMetrics(opts.metrics)

	if p, closeFn := f.newProducer(cfg); p != nil {
		addCloser(closeFn)
		s.WithProducer(p, cfg.Kafka.ShipmentSyncedTopicName)
	}
	if rl, closeFn := f.newRateLimiter(cfg); rl != nil {
		addCloser(closeFn)
		s.WithRateLimiter(rl, int64(cfg.ShipSync.RateLimitPerMinute))
	}

	r := syncer.NewRunner(s, cfg.Notion.DatabaseID).
		WithMetrics(opts.metrics).
		WithInterval(time.Duration(cfg.ShipSync.IntervalSeconds) * time.Second)

	if l, closeFn := f.newLock(cfg); l != nil {
		addCloser(closeFn)
		r.WithLock(l)
	}

	j, closeFn, err := f.newJournal(ctx, cfg)
	switch {
	case err != nil:
		slog.Warn("run journal unavailable, continuing without it", "error", err.Error())
	case j != nil:
		addCloser(closeFn)
		r.WithJournal(j)
		app.journal = j
	}

	app.runner = r
	return app
}

// RunSync performs one pass over the database and returns its summary.
func RunSync(ctx context.Context, cfg *config.Config, f syncFactories, dryRun bool) (models.RunSummary, error) {
	app := buildSyncApp(ctx, cfg, f, buildOpts{dryRun: dryRun})
	defer app.Close()
	return app.runner.RunOnce(ctx)
}

type serveHooks struct {
	onHTTPListen func(addr string)
	onGRPCListen func(addr string)
}

// RunServe runs the sync loop with the ops HTTP server and optional gRPC health.
func RunServe(ctx context.Context, cfg *config.Config, f syncFactories, hooks serveHooks) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewSyncMetrics(reg)
	if err != nil {
		return err
	}

	app := buildSyncApp(ctx, cfg, f, buildOpts{metrics: m})
	defer app.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runOpsHTTPServer(ctx, opsHTTPOpts{
			httpAddr:    cfg.ShipSync.HTTPAddr,
			swaggerPath: cfg.ShipSync.SwaggerPath,
			onListen:    hooks.onHTTPListen,
			runner:      app.runner,
			journal:     app.journal,
			gatherer:    reg,
			cfg:         cfg,
		})
	}()

	grpcErr := make(chan error, 1)
	if cfg.ShipSync.GRPCAddr != "" {
		go func() {
			grpcErr <- runGRPCHealthServer(ctx, cfg.ShipSync.GRPCAddr, hooks.onGRPCListen)
		}()
	}

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- app.runner.Run(ctx)
	}()

	var srvErr error
	select {
	case err := <-loopErr:
		return err
	case srvErr = <-httpErr:
	case srvErr = <-grpcErr:
	}

	// Сервер упал или остановлен: дожидаемся текущего прогона.
	cancel()
	loopRes := <-loopErr
	if srvErr == nil || errors.Is(srvErr, http.ErrServerClosed) || errors.Is(srvErr, grpc.ErrServerStopped) {
		return loopRes
	}
	return srvErr
}
