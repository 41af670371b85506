package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"order-matching-service/internal/config"
	"order-matching-service/internal/database"
	"order-matching-service/internal/events"
	"order-matching-service/internal/handlers"
	"order-matching-service/internal/middleware"
	"order-matching-service/internal/repository"
	"order-matching-service/internal/secrets"
	"order-matching-service/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logger.WithField("component", "main")

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db, log); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	log.Info("Database models migrated")

	// Redis cache is optional
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = connectRedis(cfg.RedisURL, log)
	}
	cache := repository.NewCache(redisClient, cfg.CacheTTL, logger.WithField("component", "cache"))

	// NATS events are optional
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to NATS, activity events disabled")
		} else {
			publisher = natsPublisher
			log.Info("NATS publisher initialized")
		}
	}

	// GCP Secret Manager holds sales channel credentials
	var credentials services.ShopifyCredentialSource
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize GCP Secret Manager")
		} else {
			credentials = secretManager
			log.Info("GCP Secret Manager initialized")
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db, cache)
	orderRepo := repository.NewOrderRepository(db)
	bundleMatchRepo := repository.NewBundleMatchRepository(db, cache)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	activityService := services.NewActivityService(activityRepo, publisher, logger)
	sessionStore := services.NewSessionStore(cfg.SessionTTL)
	reconciliationService := services.NewReconciliationService(
		productRepo, orderRepo, bundleMatchRepo, activityService, sessionStore, cfg.CommitParallelism, logger,
	)
	orderService := services.NewOrderService(orderRepo, activityService, logger)
	importService := services.NewOrderImportService(productRepo, orderRepo, activityService, logger)
	bundleMatchService := services.NewBundleMatchService(bundleMatchRepo, productRepo, activityService, logger)
	channelService := services.NewChannelSyncService(
		services.NewSecretSourceProvider(credentials, cfg.ShopifySecretName),
		orderRepo, activityService, cfg.PullPageSize, cfg.PullMaxPages, logger,
	)

	// Initialize handlers
	checks := map[string]handlers.HealthCheck{"database": pingDatabase(db)}
	if redisClient != nil {
		checks["redis"] = cache.Ping
	}
	routes := routeHandlers{
		health:        handlers.NewHealthHandler(checks),
		products:      handlers.NewProductHandler(productRepo),
		orders:        handlers.NewOrderHandler(orderService),
		imports:       handlers.NewImportHandler(importService),
		channels:      handlers.NewChannelHandler(channelService),
		bundleMatches: handlers.NewBundleMatchHandler(bundleMatchService),
		activity:      handlers.NewActivityHandler(activityService),
		sessions:      handlers.NewSessionHandler(reconciliationService),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, logger, routes)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Environment}).Info("Order matching service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-quit
	log.Info("Shutting down order-matching-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Flush pending activity entries before closing their sinks
	activityService.Wait()
	publisher.Close()
	if secretManager != nil {
		secretManager.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("Order matching service stopped")
}

type routeHandlers struct {
	health        *handlers.HealthHandler
	products      *handlers.ProductHandler
	orders        *handlers.OrderHandler
	imports       *handlers.ImportHandler
	channels      *handlers.ChannelHandler
	bundleMatches *handlers.BundleMatchHandler
	activity      *handlers.ActivityHandler
	sessions      *handlers.SessionHandler
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, logger *logrus.Logger, h routeHandlers) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check
	router.GET("/health", h.health.Health)
	router.GET("/ready", h.health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.products.List)

		orders := v1.Group("/orders")
		{
			orders.GET("", h.orders.ListComplete)
			orders.GET("/incomplete", h.orders.ListIncomplete)
			orders.POST("/test", h.orders.CreateTestOrder)
			orders.GET("/import/template", h.imports.GetTemplate)
			orders.POST("/import/preview", h.imports.Preview)
			orders.POST("/import", h.imports.Import)
			orders.GET("/:id", h.orders.Get)
			orders.PUT("/:id/status", h.orders.UpdateStatus)
			orders.DELETE("/:id", h.orders.Delete)
		}

		v1.POST("/channels/:marketplace/pull", h.channels.Pull)

		bundleMatches := v1.Group("/bundle-matches")
		{
			bundleMatches.GET("", h.bundleMatches.List)
			bundleMatches.DELETE("/:id", h.bundleMatches.Delete)
		}

		v1.GET("/activity-logs", h.activity.List)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.sessions.Create)
			sessions.GET("/:sessionId", h.sessions.Get)
			sessions.POST("/:sessionId/orders/:orderId/open", h.sessions.OpenOrder)
			sessions.PUT("/:sessionId/orders/:orderId/items/:index", h.sessions.SelectProducts)
			sessions.POST("/:sessionId/orders/:orderId/items/:index/toggle", h.sessions.ToggleProduct)
			sessions.DELETE("/:sessionId/orders/:orderId/items/:index", h.sessions.ClearItem)
			sessions.POST("/:sessionId/reset-auto-matches", h.sessions.ResetAutoMatches)
			sessions.POST("/:sessionId/save", h.sessions.Save)
		}
	}

	return router
}

func connectRedis(redisURL string, log *logrus.Entry) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.WithError(err).Warn("Failed to parse Redis URL, continuing without cache")
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		client.Close()
		return nil
	}
	log.Info("Redis cache connected")
	return client
}

func pingDatabase(db *gorm.DB) handlers.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
