package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercatohq/barter-backend/api/routes"
	"github.com/mercatohq/barter-backend/internal/addresses"
	"github.com/mercatohq/barter-backend/internal/exchanges"
	"github.com/mercatohq/barter-backend/internal/inventory"
	"github.com/mercatohq/barter-backend/internal/sellers"
	"github.com/mercatohq/barter-backend/internal/timeline"
	"github.com/mercatohq/barter-backend/internal/users"
	"github.com/mercatohq/barter-backend/pkg/auth/session"
	"github.com/mercatohq/barter-backend/pkg/config"
	"github.com/mercatohq/barter-backend/pkg/db"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/metrics"
	"github.com/mercatohq/barter-backend/pkg/migrate"
	"github.com/mercatohq/barter-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "barter-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "barter-api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	exchangeMetrics := metrics.NewExchangeMetrics(prometheus.DefaultRegisterer)

	timelineSvc, err := timeline.NewService(timeline.NewRepository(gormDB), users.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create timeline service", err)
		os.Exit(1)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), exchangeMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	addressSvc, err := addresses.NewService(addresses.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	exchangeRepo := exchanges.NewRepository(gormDB)
	registrar, err := exchanges.NewService(exchangeRepo, sellers.NewRepository(gormDB), addresses.NewRepository(gormDB), timelineSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange service", err)
		os.Exit(1)
	}
	lifecycleSvc, err := exchanges.NewLifecycleService(exchangeRepo, inventorySvc, timelineSvc, nil, exchangeMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle service", err)
		os.Exit(1)
	}
	deliverySvc, err := exchanges.NewDeliveryService(exchangeRepo, lifecycleSvc, timelineSvc, exchangeMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting barter api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Exchanges: registrar,
			Lifecycle: lifecycleSvc,
			Delivery:  deliverySvc,
			Addresses: addressSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
