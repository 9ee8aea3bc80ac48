package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/entregave/dispatch-backend/internal/configstore"
	"github.com/entregave/dispatch-backend/internal/cron"
	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/pricing"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/scheduled"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/metrics"
	"github.com/entregave/dispatch-backend/pkg/migrate"
	"github.com/entregave/dispatch-backend/pkg/redis"
	"github.com/entregave/dispatch-backend/pkg/routing"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	hub := realtime.NewHub(logg, cfg.Realtime.SubscriberBuffer)

	syslogService, err := syslog.NewService(syslog.ServiceParams{
		Logger:      logg,
		Repo:        syslog.NewRepository(dbClient.DB()),
		Broadcaster: hub,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create syslog service", err)
		os.Exit(1)
	}

	configsService, err := configstore.NewService(configstore.ServiceParams{
		Logger:   logg,
		Repo:     configstore.NewRepository(dbClient.DB()),
		Recorder: syslogService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create configstore service", err)
		os.Exit(1)
	}

	router := routing.NewClient(
		routing.WithBaseURL(cfg.Routing.OSRMBaseURL),
		routing.WithTimeout(cfg.Routing.Timeout),
	)
	pricer, err := pricing.NewEngine(pricing.EngineParams{Logger: logg, Router: router})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	dispatcher, err := integrations.NewDispatcher(integrations.DispatcherParams{
		Logger:    logg,
		DB:        dbClient.DB(),
		Repo:      integrations.NewRepository(dbClient.DB()),
		Recorder:  syslogService,
		Metrics:   metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		QueueSize: cfg.Webhooks.QueueSize,
		Timeout:   cfg.Webhooks.Timeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook dispatcher", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewReleaseSweepJob(cron.ReleaseSweepJobParams{
		Logger:      logg,
		DB:          dbClient,
		Scheduled:   scheduled.NewRepository(dbClient.DB()),
		Orders:      orders.NewRepository(dbClient.DB()),
		Merchants:   merchants.NewRepository(dbClient.DB()),
		Pricer:      pricer,
		Configs:     configsService,
		Recorder:    syslogService,
		Broadcaster: hub,
		Notifier:    dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create release sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewLocationRetentionJob(cron.LocationRetentionJobParams{
		Logger:    logg,
		Drivers:   drivers.NewRepository(dbClient.DB()),
		Retention: cfg.Cron.LocationRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create location retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, cfg.App.Env, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go dispatcher.Run(ctx)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
