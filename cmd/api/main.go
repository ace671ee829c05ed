package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/api/controllers/webhooks"
	"github.com/tobiadeyinka/chowdash-backend/api/routes"
	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	"github.com/tobiadeyinka/chowdash-backend/internal/dispatch"
	"github.com/tobiadeyinka/chowdash-backend/internal/notifications"
	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/internal/otp"
	"github.com/tobiadeyinka/chowdash-backend/internal/reports"
	"github.com/tobiadeyinka/chowdash-backend/internal/riders"
	"github.com/tobiadeyinka/chowdash-backend/internal/tracking"
	"github.com/tobiadeyinka/chowdash-backend/internal/wallet"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db"
	"github.com/tobiadeyinka/chowdash-backend/pkg/flutterwave"
	"github.com/tobiadeyinka/chowdash-backend/pkg/geo"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/migrate"
	"github.com/tobiadeyinka/chowdash-backend/pkg/outbox"
	"github.com/tobiadeyinka/chowdash-backend/pkg/paystack"
	"github.com/tobiadeyinka/chowdash-backend/pkg/redis"
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

	feePolicy, err := feePolicyFromConfig(cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "invalid delivery fee configuration", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(conn), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxSvc, catalogService, walletService, feePolicy, cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(dispatch.NewRepository(conn), dbClient, outboxSvc, cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(tracking.NewRepository(conn), dbClient, outboxSvc, ordersService, cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	otpService, err := otp.NewService(otp.NewRepository(conn), dbClient, outboxSvc, ordersService, cfg.Delivery, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery code service", err)
		os.Exit(1)
	}

	ridersRepo := riders.NewRepository(conn)
	ridersService, err := riders.NewService(ridersRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create riders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(cfg.Paystack.SecretKey, paystack.WithBaseURL(cfg.Paystack.BaseURL))
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	flutterwaveClient, err := flutterwave.NewClient(
		cfg.Flutterwave.SecretKey,
		flutterwave.WithBaseURL(cfg.Flutterwave.BaseURL),
		flutterwave.WithSecretHash(cfg.Flutterwave.SecretHash),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create flutterwave client", err)
		os.Exit(1)
	}

	webhookGuard, err := webhooks.NewGuard(redisClient, 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogRepo,
			ridersRepo,
			catalogService,
			ordersService,
			dispatchService,
			trackingService,
			otpService,
			ridersService,
			walletService,
			notificationsService,
			reportsService,
			paystackClient,
			flutterwaveClient,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func feePolicyFromConfig(cfg config.DeliveryConfig) (geo.FeePolicy, error) {
	baseFee, err := decimal.NewFromString(cfg.BaseFee)
	if err != nil {
		return geo.FeePolicy{}, err
	}
	perKM, err := decimal.NewFromString(cfg.PerKMFee)
	if err != nil {
		return geo.FeePolicy{}, err
	}
	return geo.FeePolicy{
		BaseFee:     baseFee,
		PerKMFee:    perKM,
		MaxRadiusKM: cfg.MaxServiceRadiusKM,
	}, nil
}
