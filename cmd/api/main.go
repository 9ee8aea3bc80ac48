package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entregave/dispatch-backend/api/routes"
	"github.com/entregave/dispatch-backend/internal/apikeys"
	"github.com/entregave/dispatch-backend/internal/configstore"
	"github.com/entregave/dispatch-backend/internal/drivers"
	"github.com/entregave/dispatch-backend/internal/integrations"
	"github.com/entregave/dispatch-backend/internal/merchants"
	"github.com/entregave/dispatch-backend/internal/orders"
	"github.com/entregave/dispatch-backend/internal/pricing"
	"github.com/entregave/dispatch-backend/internal/push"
	"github.com/entregave/dispatch-backend/internal/realtime"
	"github.com/entregave/dispatch-backend/internal/scheduled"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/internal/tickets"
	"github.com/entregave/dispatch-backend/internal/zones"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/metrics"
	"github.com/entregave/dispatch-backend/pkg/migrate"
	"github.com/entregave/dispatch-backend/pkg/redis"
	"github.com/entregave/dispatch-backend/pkg/routing"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	zonesService, err := zones.NewService(zones.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create zones service", err)
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

	configsService, err := configstore.NewService(configstore.ServiceParams{
		Logger:   logg,
		Repo:     configstore.NewRepository(dbClient.DB()),
		Recorder: syslogService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create configstore service", err)
		os.Exit(1)
	}

	merchantsService, err := merchants.NewService(merchants.ServiceParams{
		Logger: logg,
		Repo:   merchants.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create merchants service", err)
		os.Exit(1)
	}

	integrationsService, err := integrations.NewService(integrations.ServiceParams{
		Logger: logg,
		Repo:   integrations.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create integrations service", err)
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

	driversRepo := drivers.NewRepository(dbClient.DB())
	driversService, err := drivers.NewService(drivers.ServiceParams{
		Logger:      logg,
		Repo:        driversRepo,
		Cache:       redisClient,
		Broadcaster: hub,
		Notifier:    dispatcher,
		PositionTTL: cfg.Redis.DriverPositionTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create drivers service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Logger:      logg,
		Tx:          dbClient,
		Repo:        ordersRepo,
		Merchants:   merchants.NewRepository(dbClient.DB()),
		Drivers:     driversRepo,
		Zones:       zonesService,
		Pricer:      pricer,
		Configs:     configsService,
		Recorder:    syslogService,
		Broadcaster: hub,
		Notifier:    dispatcher,
		Push:        push.NewSender(cfg.Push, logg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ticketsService, err := tickets.NewService(tickets.ServiceParams{
		Logger:      logg,
		Tx:          dbClient,
		Repo:        tickets.NewRepository(dbClient.DB()),
		Orders:      ordersRepo,
		Recorder:    syslogService,
		Broadcaster: hub,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tickets service", err)
		os.Exit(1)
	}

	scheduledService, err := scheduled.NewService(scheduled.ServiceParams{
		Logger: logg,
		Repo:   scheduled.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduled service", err)
		os.Exit(1)
	}

	apikeysService, err := apikeys.NewService(apikeys.ServiceParams{
		Logger:   logg,
		Repo:     apikeys.NewRepository(dbClient.DB()),
		Config:   cfg.APIKeys,
		Recorder: syslogService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create apikeys service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DBPinger:     dbClient,
			RedisPinger:  redisClient,
			Hub:          hub,
			Orders:       ordersService,
			Scheduled:    scheduledService,
			Tickets:      ticketsService,
			Zones:        zonesService,
			Drivers:      driversService,
			Merchants:    merchantsService,
			Integrations: integrationsService,
			APIKeys:      apikeysService,
			Configs:      configsService,
			Syslog:       syslogService,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "error during server shutdown", err)
		}
	}
}
