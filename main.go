package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtside/session-booking/internal/gateway"
	"github.com/courtside/session-booking/internal/handler"
	"github.com/courtside/session-booking/internal/metrics"
	"github.com/courtside/session-booking/internal/notification"
	"github.com/courtside/session-booking/internal/repository"
	"github.com/courtside/session-booking/internal/service"
	"github.com/courtside/session-booking/pkg/config"
	"github.com/courtside/session-booking/pkg/database"
	"github.com/courtside/session-booking/pkg/kafka"
	"github.com/courtside/session-booking/pkg/logger"
	"github.com/courtside/session-booking/pkg/middleware"
	pkgredis "github.com/courtside/session-booking/pkg/redis"
	"github.com/courtside/session-booking/pkg/telemetry"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting session booking service...")

	ctx := context.Background()

	// Telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer telemetry.Shutdown(ctx)

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Database
	var db *database.PostgresDB
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err = database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Warn(fmt.Sprintf("Database connection failed: %v", err))
		db = nil
	} else {
		defer db.Close()
		appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))
	}

	// Redis
	var redisClient *pkgredis.Client
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
	}
	redisClient, err = pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis connection failed: %v", err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Kafka notifier (best effort; service runs without it)
	var notifier notification.Notifier = notification.NewNoopNotifier()
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(&kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka producer init failed: %v", err))
		} else {
			defer producer.Close()
			notifier = notification.NewKafkaNotifier(producer, cfg.Kafka.NotificationTopic)
			appLog.Info("Kafka notifier enabled")
		}
	}

	// Payment gateway
	var paymentGateway gateway.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		stripeGateway, err := gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Environment:   cfg.Stripe.Environment,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Failed to create Stripe gateway: %v, falling back to mock", err))
		} else {
			paymentGateway = stripeGateway
			appLog.Info("Using Stripe payment gateway")
		}
	}
	if paymentGateway == nil {
		paymentGateway = gateway.NewMockGateway(nil)
		appLog.Warn("Using mock payment gateway")
	}

	// Store
	var store repository.Store
	if db != nil {
		store = repository.NewPostgresStore(db.Pool())
		appLog.Info("Using PostgreSQL store")
	} else {
		store = repository.NewMemoryStore()
		appLog.Warn("Using in-memory store (data will not persist)")
	}

	// Services
	waitlistSvc := service.NewWaitlistService(store, notifier)
	lifecycleSvc := service.NewBookingLifecycle(store, waitlistSvc, notifier)
	cancellationSvc := service.NewCancellationService(store, paymentGateway, waitlistSvc, notifier)
	checkoutSvc := service.NewCheckoutService(store, paymentGateway, &service.CheckoutConfig{
		Currency: cfg.Booking.Currency,
	})

	// Handlers
	webhookHandler := handler.NewWebhookHandler(lifecycleSvc, cfg.Stripe.WebhookSecret, redisClient)
	bookingHandler := handler.NewBookingHandler(checkoutSvc, cancellationSvc)
	waitlistHandler := handler.NewWaitlistHandler(waitlistSvc)

	checkers := map[string]handler.HealthChecker{}
	if db != nil {
		checkers["database"] = db
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}
	healthHandler := handler.NewHealthHandler(checkers)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Webhooks are signature-verified, not JWT-authenticated
	router.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	authMW := middleware.AuthMiddleware(&middleware.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})

	var idempotencyMW gin.HandlerFunc
	if redisClient != nil {
		idemCfg := middleware.DefaultIdempotencyConfig(redisClient.Client())
		idempotencyMW = middleware.IdempotencyMiddleware(idemCfg)
	}

	v1 := router.Group("/api/v1", authMW)
	{
		sessions := v1.Group("/sessions")
		sessions.GET("/:id", bookingHandler.GetSession)
		if idempotencyMW != nil {
			sessions.POST("/:id/bookings", idempotencyMW, bookingHandler.Checkout)
			sessions.POST("/:id/cancel", idempotencyMW, bookingHandler.Cancel)
			sessions.POST("/:id/waitlist", idempotencyMW, waitlistHandler.Join)
		} else {
			sessions.POST("/:id/bookings", bookingHandler.Checkout)
			sessions.POST("/:id/cancel", bookingHandler.Cancel)
			sessions.POST("/:id/waitlist", waitlistHandler.Join)
		}

		v1.GET("/bookings/:id", bookingHandler.GetBooking)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Session booking service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
