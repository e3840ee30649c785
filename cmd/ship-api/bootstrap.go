package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipBridge/config"
	shippingapi "github.com/BearBump/ShipBridge/internal/api/shipping_api"
	"github.com/BearBump/ShipBridge/internal/broker/kafka"
	"github.com/BearBump/ShipBridge/internal/cache"
	"github.com/BearBump/ShipBridge/internal/cache/memcache"
	"github.com/BearBump/ShipBridge/internal/cache/rediscache"
	"github.com/BearBump/ShipBridge/internal/integrations/shiprocket"
	"github.com/BearBump/ShipBridge/internal/secrets"
	"github.com/BearBump/ShipBridge/internal/services/reconciler"
	"github.com/BearBump/ShipBridge/internal/services/shipping"
	"github.com/BearBump/ShipBridge/internal/storage/pgshipping"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type shipAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    shipAPIOpts
	api     *shippingapi.ShippingAPI
	logger  *zap.Logger
	closers []func()
}

func mustBootstrapShipAPI() *shipAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse error, %v", err))
	}

	logger, err := telemetry.NewLogger(cfg.ShipBridge.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("logger init error, %v", err))
	}

	httpAddr := cfg.ShipBridge.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.ShipmentStatusTopicName
	if topic == "" {
		topic = "shipment.status.changed"
	}
	timeout := time.Duration(cfg.Shiprocket.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tokenTTL := time.Duration(cfg.Shiprocket.TokenTTLSeconds) * time.Second
	if tokenTTL <= 0 {
		tokenTTL = shiprocket.DefaultTokenTTL
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	sealer, err := secrets.NewSealer(cfg.Shiprocket.CredentialKey)
	if err != nil {
		panic(fmt.Sprintf("credential key error, %v", err))
	}
	st := mustOpenPostgresWithRetry(cfg.Database.DSN(), sealer, 60*time.Second)
	closers := []func(){st.Close}

	var tokenStore cache.BytesCache = memcache.New()
	if cfg.Redis.Enabled() {
		rc := rediscache.New(cfg.Redis.Addr())
		tokenStore = rc
		closers = append(closers, func() { _ = rc.Close() })
	} else {
		logger.Warn("redis not configured, caching shiprocket tokens in memory")
	}

	client, tokens := shiprocket.NewStack(shiprocket.Config{
		BaseURL: cfg.Shiprocket.BaseURL,
		Timeout: timeout,
		Metrics: metrics,
		Logger:  logger,
	}, st, tokenStore, tokenTTL)

	svc := shipping.New(st, client, tokens, shipping.NewPayloadBuilder(cfg.Shiprocket.CompanyName), logger)

	var producer reconciler.Producer
	if cfg.Kafka.Enabled() {
		p := kafka.NewProducer(cfg.Kafka.Brokers())
		producer = p
		closers = append(closers, func() { _ = p.Close() })
	}
	rec := reconciler.New(st, client, producer, nil, topic).
		WithSettings(cfg.ShipBridge.WorkerConcurrency, 0).
		WithLogger(logger).
		WithMetrics(metrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &shipAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: shipAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
			gatherer:    reg,
			ready:       st.Ping,
			logger:      logger,
		},
		api:     shippingapi.New(svc, rec, metrics, logger),
		logger:  logger,
		closers: closers,
	}
}

func mustOpenPostgresWithRetry(connString string, sealer *secrets.Sealer, wait time.Duration) *pgshipping.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipping.New(connString, sealer)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *shipAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *shipAPIApp) Run() error {
	return runShipAPI(a.ctx, a.opts, a.api)
}
