package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nhannt26/e-commerce-website-v3/api"
	"github.com/nhannt26/e-commerce-website-v3/api/routes"
	"github.com/nhannt26/e-commerce-website-v3/internal/app"
	"github.com/nhannt26/e-commerce-website-v3/pkg/cache"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/instance"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
	"github.com/nhannt26/e-commerce-website-v3/pkg/migrate"
	"github.com/nhannt26/e-commerce-website-v3/pkg/redis"
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
		ServiceName: cfg.Service.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "failed to bootstrap database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	exitOnErr(ctx, logg, "failed to run dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	exitOnErr(ctx, logg, "failed to bootstrap redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := app.NewServices(ctx, app.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Registry: registry,
	})
	exitOnErr(ctx, logg, "failed to wire services", err)
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(context.Background(), "error closing services", err)
		}
	}()

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		DB:        dbClient,
		Redis:     redisClient,
		Cache:     cache.NewRedisStore(redisClient),
		Gatherer:  registry,
		Limiter:   redisClient,
		Products:  services.Products,
		Coupons:   services.Coupons,
		Wishlist:  services.Wishlist,
		Addresses: services.Addresses,
		Carts:     services.Carts,
		Orders:    services.Orders,
		Payments:  services.Payments,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(cfg.Service.Kind),
	})
	logg.Info(ctx, "starting api server")

	if err := api.Serve(ctx, api.NewServer(addr, handler), logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func exitOnErr(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
