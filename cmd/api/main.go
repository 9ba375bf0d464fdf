package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/checkout-core/internal/config"
	"github.com/fairyhunter13/checkout-core/internal/gateway"
	"github.com/fairyhunter13/checkout-core/internal/handler"
	"github.com/fairyhunter13/checkout-core/internal/notify"
	"github.com/fairyhunter13/checkout-core/internal/repository"
	"github.com/fairyhunter13/checkout-core/internal/service"
	"github.com/fairyhunter13/checkout-core/internal/validator"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

// gatewayCallsPerOperation bounds one initiate or callback: a token grant,
// the gateway call itself and one status retry.
const gatewayCallsPerOperation = 3

func main() {
	// A local .env file is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using process environment")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry and apply the schema
	pool, err := database.Open(ctx, cfg.DB.DSN(), database.Options{MaxRetries: 5})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Purchase events go to a Redis stream when configured, otherwise to the log
	var (
		notifier    service.Notifier = notify.LogNotifier{}
		redisClient *redis.Client
		eventsPing  handler.Pinger
	)
	if cfg.Redis.URL != "" {
		redisClient, err = notify.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		notifier = notify.NewRedisNotifier(redisClient, cfg.Redis.Stream)
		eventsPing = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// Payment gateways share one bounded HTTP client
	httpClient := gateway.NewHTTPClient(cfg.Gateway.Timeout)
	nagad, err := gateway.NewNagad(cfg.Nagad, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure nagad gateway")
	}
	gateways := gateway.NewRegistry(
		gateway.NewBkash(cfg.Bkash, httpClient),
		nagad,
		gateway.NewUpay(cfg.Upay, httpClient),
	)

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Checkout Core",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Coupon components (layered architecture)
	couponRepo := repository.NewCouponRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)
	couponService := service.NewCouponService(pool, couponRepo, redemptionRepo)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	redemptionHandler := handler.NewRedemptionHandler(couponService, validate)

	// Payment components
	paymentRepo := repository.NewPaymentRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	paymentService := service.NewPaymentService(
		pool, paymentRepo, orderRepo, gateways, notifier,
		gatewayCallsPerOperation*cfg.Gateway.Timeout,
	)
	paymentHandler := handler.NewPaymentHandler(paymentService, validate)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool, eventsPing)
	app.Get("/health", healthHandler.Check)

	// Checkout routes
	app.Post("/api/coupons/validate", redemptionHandler.ValidateCoupon)
	app.Post("/api/coupons/redeem", redemptionHandler.RedeemCoupon)
	app.Post("/api/payment/initiate", paymentHandler.InitiatePayment)
	app.Post("/api/payment/callback/:order_id", paymentHandler.PaymentCallback)
	app.Get("/api/payment/status/:payment_id", paymentHandler.PaymentStatus)

	// Admin routes are only mounted when an API key is configured
	if cfg.Server.AdminAPIKey != "" {
		admin := handler.AdminAuth(cfg.Server.AdminAPIKey)
		app.Post("/api/coupons", admin, couponHandler.CreateCoupon)
		app.Get("/api/coupons", admin, couponHandler.ListCoupons)
		app.Get("/api/coupons/:code", admin, couponHandler.GetCoupon)
		app.Put("/api/coupons/:code", admin, couponHandler.UpdateCoupon)
		app.Delete("/api/coupons/:code", admin, couponHandler.DeleteCoupon)
	} else {
		log.Warn().Msg("ADMIN_API_KEY not set, coupon administration disabled")
	}

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Let pending purchase notifications finish before their sink goes away
	log.Info().Msg("waiting for purchase notifications...")
	paymentService.Wait()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
