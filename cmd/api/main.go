package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/analytics"
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/fraud"
	"marketplace/internal/handler"
	"marketplace/internal/inventory"
	"marketplace/internal/notification"
	"marketplace/internal/payment"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"
	"marketplace/internal/router"
	"marketplace/internal/search"
	"marketplace/internal/service"
	"marketplace/internal/shipping"
	"marketplace/internal/telemetry"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

const serviceVersion = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting marketplace API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, serviceVersion)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer shutdown(shutdownTracer, "tracer provider", logger)
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry.ServiceName, serviceVersion)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer shutdown(shutdownMeter, "meter provider", logger)

	checkoutMetrics, err := telemetry.NewCheckoutMetrics(otel.Meter("marketplace/checkout"))
	if err != nil {
		return fmt.Errorf("failed to create checkout metrics: %w", err)
	}

	// Apply schema, then open the pool
	if err := database.MigrateUp(cfg.Database.ConnectionString(), logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database, cfg.Telemetry.Enabled, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	promotionRepo := repository.NewPromotionRepository(pool, logger)
	transactionRepo := repository.NewTransactionRepository(pool, logger)
	analyticsRepo := repository.NewAnalyticsRepository(pool, logger)

	// Checkout collaborators
	policy, ok := payment.PolicyByName(cfg.Checkout.PaymentPolicy)
	if !ok {
		return fmt.Errorf("unknown payment policy: %q", cfg.Checkout.PaymentPolicy)
	}
	processor := payment.NewProcessor(transactionRepo, policy, logger, payment.WithLatency(cfg.Checkout.PaymentLatency))
	checker := fraud.NewChecker(orderRepo, logger, fraud.WithLatency(cfg.Checkout.FraudLatency))
	engine := pricing.NewEngine(promotionRepo, logger)
	ledger := inventory.NewLedger(productRepo, logger)
	tracker := analytics.NewTracker(analyticsRepo, logger)

	dispatcher := notification.NewDispatcher(newSender(cfg.Kafka, logger), logger)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("failed to drain notifications")
		}
	}()

	var searcher search.Searcher = search.NewSearcher(productRepo, logger)
	if cfg.Redis.URL != "" {
		cache, err := search.NewRedisCache(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("search cache unavailable, querying the database directly")
		} else {
			defer cache.Close()
			searcher = search.NewCachedSearcher(searcher, cache, cfg.Redis.SearchCacheTTL, logger)
		}
	}

	// Initialize services
	settings := service.CheckoutSettings{
		TaxRate:            decimal.NewFromFloat(cfg.Checkout.TaxRate),
		MaxDiscountPercent: decimal.NewFromFloat(cfg.Checkout.MaxDiscountPercent),
		FraudThreshold:     cfg.Checkout.FraudThreshold,
		ExternalTimeout:    cfg.Checkout.ExternalTimeout,
		LowStockThreshold:  cfg.Checkout.LowStockThreshold,
	}
	checkoutService := service.NewCheckoutService(service.CheckoutDependencies{
		Orders:    orderRepo,
		Products:  productRepo,
		Users:     userRepo,
		Ledger:    ledger,
		Pricer:    engine,
		Fraud:     checker,
		Payments:  processor,
		Analytics: tracker,
		Notifier:  dispatcher,
		Metrics:   checkoutMetrics,
	}, settings, logger)
	productService := service.NewProductService(productRepo, searcher, logger)
	orderService := service.NewOrderService(orderRepo, transactionRepo, processor, shipping.NewTracker(nil), logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)

	// Initialize router
	mux := router.New(productHandler, orderHandler, checkoutHandler, metricsHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-stop:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newSender publishes to Kafka when brokers are configured and logs otherwise.
func newSender(cfg config.KafkaConfig, logger zerolog.Logger) notification.Sender {
	if len(cfg.Brokers) == 0 {
		logger.Info().Msg("no kafka brokers configured, notifications are logged only")
		return notification.NewLogSender(logger)
	}
	return notification.NewKafkaSender(cfg.Brokers, cfg.NotificationTopic, logger)
}

func shutdown(fn telemetry.ShutdownFunc, name string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error().Err(err).Str("provider", name).Msg("failed to shutdown telemetry")
	}
}
