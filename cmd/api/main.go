package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/soundmarket-backend/api/routes"
	"github.com/angelmondragon/soundmarket-backend/internal/cart"
	"github.com/angelmondragon/soundmarket-backend/internal/catalog"
	"github.com/angelmondragon/soundmarket-backend/internal/checkout"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	"github.com/angelmondragon/soundmarket-backend/internal/downloads"
	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/internal/payouts"
	stripewebhook "github.com/angelmondragon/soundmarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/soundmarket-backend/pkg/config"
	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/metrics"
	"github.com/angelmondragon/soundmarket-backend/pkg/migrate"
	"github.com/angelmondragon/soundmarket-backend/pkg/outbox"
	"github.com/angelmondragon/soundmarket-backend/pkg/redis"
	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	sessions, err := stripe.NewCheckoutSessions(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout session gateway", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	conn := dbClient.DB()
	catalogStore := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	payoutsRepo := payouts.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	settings := orders.SettingsFromConfig(cfg.Checkout)

	cartService, err := cart.NewService(cartRepo, catalogStore, couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	couponService, err := coupons.NewService(couponRepo, catalogStore, cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}
	couponValidator, err := coupons.NewValidator(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon validator", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Orders:            ordersRepo,
		Cart:              cartRepo,
		Catalog:           catalogStore,
		Coupons:           couponValidator,
		Gateway:           sessions,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Settings:          settings,
		Metrics:           checkoutMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:              ordersRepo,
		Cart:              cartRepo,
		Catalog:           catalogStore,
		Gateway:           sessions,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Settings:          settings,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	payoutService, err := payouts.NewService(payoutsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}
	downloadService, err := downloads.NewService(downloads.ServiceParams{
		Repo:              downloads.NewRepository(conn),
		Catalog:           catalogStore,
		TransactionRunner: dbClient,
		MaxPerItem:        cfg.Downloads.MaxPerItem,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create downloads service", err)
		os.Exit(1)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:            ordersRepo,
		Cart:              cartRepo,
		Payouts:           payoutsRepo,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Metrics:           webhookMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.StripeEventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:             dbClient,
			Redis:          redisClient,
			Registry:       registry,
			Cart:           cartService,
			Checkout:       checkoutService,
			Orders:         ordersService,
			Coupons:        couponService,
			Payouts:        payoutService,
			Downloads:      downloadService,
			StripeClient:   stripeClient,
			StripeWebhook:  webhookService,
			WebhookGuard:   webhookGuard,
			WebhookMetrics: webhookMetrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
