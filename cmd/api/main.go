package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aglago/iselldata-backend/api/routes"
	"github.com/aglago/iselldata-backend/internal/checkout"
	"github.com/aglago/iselldata-backend/internal/customers"
	"github.com/aglago/iselldata-backend/internal/delivery"
	"github.com/aglago/iselldata-backend/internal/fulfillment"
	"github.com/aglago/iselldata-backend/internal/health"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/internal/payments"
	"github.com/aglago/iselldata-backend/internal/sms"
	"github.com/aglago/iselldata-backend/pkg/config"
	"github.com/aglago/iselldata-backend/pkg/db"
	"github.com/aglago/iselldata-backend/pkg/logger"
	"github.com/aglago/iselldata-backend/pkg/metrics"
	"github.com/aglago/iselldata-backend/pkg/migrate"
	"github.com/aglago/iselldata-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.NewGatewayMetrics(registry)

	recorder := delivery.NewCallRecorder(dbClient.DB(), gatewayMetrics, logg)
	gateway, err := delivery.NewClient(cfg.Delivery, recorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery gateway client", err)
		os.Exit(1)
	}

	paystackClient, err := payments.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	smsClient, err := sms.NewClient(cfg.SMS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sms client", err)
		os.Exit(1)
	}
	notifier := sms.NewNotifier(smsClient, cfg.SMS.AdminPhone, logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	customersRepo := customers.NewRepository(dbClient.DB())

	checkoutService, err := checkout.NewService(dbClient, ordersRepo, customersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Orders:      ordersRepo,
		Gateway:     gateway,
		Payments:    paystackClient,
		Notifier:    notifier,
		Pricer:      fulfillment.TablePricer{},
		Locks:       redis.NewOrderLock(redisClient),
		TrackingURL: cfg.App.TrackingURL,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	monitor, err := health.NewMonitor(dbClient.DB(), gateway, cfg.Monitor.Window, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create health monitor", err)
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
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Checkout:      checkoutService,
			Verify:        fulfillmentService,
			Fulfill:       fulfillmentService,
			Manual:        fulfillmentService,
			Signature:     paystackClient,
			Monitor:       monitor,
			OrdersRepo:    ordersRepo,
			CustomersRepo: customersRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
