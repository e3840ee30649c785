package main

import (
	"context"
	"io"
	"time"

	"github.com/BearBump/ShipBridge/config"
	"github.com/BearBump/ShipBridge/internal/broker/kafka"
	"github.com/BearBump/ShipBridge/internal/cache"
	"github.com/BearBump/ShipBridge/internal/cache/memcache"
	"github.com/BearBump/ShipBridge/internal/cache/rediscache"
	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/secrets"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/BearBump/ShipBridge/internal/storage/pgshipping"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type workerStore interface {
	reconciler.Repository
	shiprocket.CredentialStore
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (store workerStore, closeFn func(), err error)
	newTokenCache  func(cfg *config.Config) cache.BytesCache
	newProducer    func(cfg *config.Config) reconciler.Producer
	newRateLimiter func(cfg *config.Config) reconciler.RateLimiter
	newCarrier     func(cfg *config.Config, creds shiprocket.CredentialStore, tokens cache.BytesCache, m *telemetry.Metrics, l *zap.Logger) reconciler.Carrier
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerStore, func(), error) {
			sealer, err := secrets.NewSealer(cfg.Shiprocket.CredentialKey)
			if err != nil {
				return nil, nil, err
			}
			st, err := pgshipping.New(cfg.Database.DSN(), sealer)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newTokenCache: func(cfg *config.Config) cache.BytesCache {
			if !cfg.Redis.Enabled() {
				return memcache.New()
			}
			return rediscache.New(cfg.Redis.Addr())
		},
		newProducer: func(cfg *config.Config) reconciler.Producer {
			if !cfg.Kafka.Enabled() {
				return nil
			}
			return kafka.NewProducer(cfg.Kafka.Brokers())
		},
		newRateLimiter: func(cfg *config.Config) reconciler.RateLimiter {
			if cfg.ShipBridge.WorkerRateLimitPerMinute <= 0 || !cfg.Redis.Enabled() {
				return nil
			}
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newCarrier: func(cfg *config.Config, creds shiprocket.CredentialStore, tokens cache.BytesCache, m *telemetry.Metrics, l *zap.Logger) reconciler.Carrier {
			timeout := time.Duration(cfg.Shiprocket.TimeoutSeconds) * time.Second
			client, _ := shiprocket.NewStack(shiprocket.Config{
				BaseURL: cfg.Shiprocket.BaseURL,
				Timeout: timeout,
				Metrics: m,
				Logger:  l,
			}, creds, tokens, time.Duration(cfg.Shiprocket.TokenTTLSeconds)*time.Second)
			return client
		},
	}
}

// buildReconciler applies worker defaults and assembles the reconciler from
// the factories. The returned close function releases storage and the producer.
func buildReconciler(cfg *config.Config, f workerFactories, metrics *telemetry.Metrics, logger *zap.Logger) (*reconciler.Reconciler, func(), error) {
	topic := cfg.Kafka.ShipmentStatusTopicName
	if topic == "" {
		topic = "shipment.status.changed"
	}
	concurrency := cfg.ShipBridge.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	store, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() {}
	}

	producer := f.newProducer(cfg)
	if c, ok := producer.(io.Closer); ok {
		closeStore := closeFn
		closeFn = func() {
			_ = c.Close()
			closeStore()
		}
	}

	carrier := f.newCarrier(cfg, store, f.newTokenCache(cfg), metrics, logger)
	rec := reconciler.New(store, carrier, producer, f.newRateLimiter(cfg), topic).
		WithSettings(concurrency, int64(cfg.ShipBridge.WorkerRateLimitPerMinute)).
		WithLogger(logger).
		WithMetrics(metrics)
	return rec, closeFn, nil
}

// RunShipWorker reconciles on the configured interval and serves the ops
// endpoints until ctx is done or either of them fails.
func RunShipWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	pollInterval := time.Duration(cfg.ShipBridge.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	rec, closeFn, err := buildReconciler(cfg, f, metrics, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	runner := reconciler.NewRunner(rec, pollInterval, logger)

	httpOpts.runner = runner
	httpOpts.cfg = cfg
	httpOpts.gatherer = reg

	logger.Info("ship-worker started",
		zap.Duration("poll_interval", pollInterval),
		zap.Int("concurrency", cfg.ShipBridge.WorkerConcurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return runWorkerHTTPServer(gctx, httpOpts) })
	return g.Wait()
}

func RunOnce(ctx context.Context, cfg *config.Config, f workerFactories, logger *zap.Logger) (reconciler.BatchResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec, closeFn, err := buildReconciler(cfg, f, nil, logger)
	if err != nil {
		return reconciler.BatchResult{}, err
	}
	defer closeFn()
	return rec.ReconcileBatch(ctx)
}
