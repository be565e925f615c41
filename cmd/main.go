package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"refund-billing-service/internal/billing"
	"refund-billing-service/internal/clients"
	"refund-billing-service/internal/config"
	"refund-billing-service/internal/events"
	"refund-billing-service/internal/gateway"
	"refund-billing-service/internal/handlers"
	"refund-billing-service/internal/jobs"
	"refund-billing-service/internal/middleware"
	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
	"refund-billing-service/internal/scoreboard"
	"refund-billing-service/internal/services"
	"refund-billing-service/internal/subscription"
)

func main() {
	// Load .env if present (development convenience)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Structured logger shared by all components
	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.JSONFormatter{})
	appLogger.SetLevel(logrus.InfoLevel)

	// Connect to database
	db, err := connectDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.RefundRecord{},
		&models.Scoreboard{},
		&models.PaymentRecord{},
		&models.WebhookEvent{},
	); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}

	// Connect to Redis for checkout markers
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)

	// Plan catalog: built-in table unless overridden
	catalog := billing.DefaultCatalog()
	if cfg.PlanTableJSON != "" {
		catalog, err = billing.ParseCatalog([]byte(cfg.PlanTableJSON))
		if err != nil {
			log.Fatalf("Invalid PLAN_TABLE_JSON: %v", err)
		}
		log.Println("✓ Plan catalog loaded from PLAN_TABLE_JSON")
	}

	// Initialize repositories
	merchantRepo := repository.NewMerchantRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	scoreboardRepo := repository.NewScoreboardRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	checkoutStore := repository.NewCheckoutStore(redisClient)

	// Initialize payment gateway
	paymentGateway, err := gateway.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}
	log.Printf("✓ Payment gateway initialized (%s)", paymentGateway.GetType())

	// Initialize NATS events publisher
	eventsPublisher := events.NewPublisher(cfg.NATSURL, appLogger)
	defer eventsPublisher.Close()

	// Initialize notification client
	notificationClient := clients.NewNotificationClient(cfg.NotificationServiceURL)
	log.Println("✓ Notification client initialized")

	// Initialize core components
	calculator := billing.NewCalculator(catalog, refundRepo, appLogger)
	aggregator := scoreboard.NewAggregator(scoreboardRepo, appLogger)
	reconciler := scoreboard.NewReconciler(refundRepo, scoreboardRepo, appLogger)

	// Initialize services
	refundService := services.NewRefundService(refundRepo, merchantRepo, aggregator, eventsPublisher, notificationClient, appLogger)
	billingService := services.NewBillingService(merchantRepo, billingRepo, calculator, appLogger)
	subscriptionService := subscription.NewService(merchantRepo, checkoutStore, catalog, calculator, paymentGateway, appLogger)
	verificationPoller := subscription.NewPoller(merchantRepo, subscription.DefaultPollInterval, subscription.DefaultMaxAttempts, appLogger)
	webhookService := services.NewWebhookService(merchantRepo, billingRepo, checkoutStore, calculator, paymentGateway, eventsPublisher, notificationClient, appLogger)

	// Initialize handlers
	refundHandler := handlers.NewRefundHandler(refundService)
	billingHandler := handlers.NewBillingHandler(billingService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, verificationPoller)
	adminHandler := handlers.NewAdminHandler(subscriptionService, reconciler)
	webhookHandler := handlers.NewWebhookHandler(webhookService)

	// Start background sweeps (renewal expiry, scheduled downgrades)
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	defer cancelSweeps()
	sweeper := jobs.NewSweeper(merchantRepo, jobs.DefaultSweepInterval, appLogger)
	go sweeper.Run(sweepCtx)

	// Setup router
	router := setupRouter(cfg, merchantRepo, refundHandler, billingHandler, subscriptionHandler, adminHandler, webhookHandler)

	// Start server
	log.Printf("Refund Billing Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// connectDatabase establishes a connection to the database
func connectDatabase(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surface unique-constraint violations as gorm.ErrDuplicatedKey; the
		// webhook path relies on that for delivery arbitration.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✓ Connected to database")
	return db, nil
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	merchantRepo repository.MerchantRepositoryInterface,
	refundHandler *handlers.RefundHandler,
	billingHandler *handlers.BillingHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	adminHandler *handlers.AdminHandler,
	webhookHandler *handlers.WebhookHandler,
) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Initialize rate limiters
	rateLimits := middleware.NewBillingRateLimits()

	// Security headers middleware
	router.Use(middleware.SecurityHeaders())

	// CORS middleware with secure configuration
	corsConfig := middleware.DefaultCORSConfig()
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowedOrigins = strings.Split(allowedOrigins, ",")
	} else {
		// Default for development - in production, set CORS_ALLOWED_ORIGINS
		corsConfig.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	router.Use(middleware.CORS(corsConfig))

	// Request validation middleware
	router.Use(middleware.ValidateRequest())

	// Health check (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "refund-billing-service",
		})
	})

	// Webhooks: signature-verified, no merchant context required
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(rateLimits.Webhook, "ip"))
	{
		webhooks.POST("/razorpay", webhookHandler.HandleRazorpayWebhook)
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	// API routes - require merchant identity
	v1 := router.Group("/api/v1")
	v1.Use(middleware.MerchantMiddleware())
	v1.Use(middleware.RateLimitMiddleware(rateLimits.APIGeneral, "merchant"))
	{
		// Subscription lifecycle: reachable in every status so lapsed
		// merchants can get back in
		sub := v1.Group("/subscription")
		{
			sub.POST("",
				middleware.RateLimitMiddleware(rateLimits.Checkout, "merchant"),
				subscriptionHandler.CreateSubscription)
			sub.GET("/status", subscriptionHandler.GetSubscriptionStatus)
			sub.POST("/verify", subscriptionHandler.VerifyPayment)
			sub.PUT("/plan", subscriptionHandler.UpdatePlan)
			sub.DELETE("", subscriptionHandler.CancelSubscription)
		}

		// Dashboard operations: active subscription required
		dashboard := v1.Group("")
		dashboard.Use(middleware.RequireActiveSubscription(merchantRepo))
		{
			refunds := dashboard.Group("/refunds")
			{
				refunds.POST("",
					middleware.RateLimitMiddleware(rateLimits.Refund, "merchant"),
					refundHandler.CreateRefund)
				refunds.GET("", refundHandler.ListRefunds)
				refunds.GET("/scoreboard", refundHandler.GetScoreboard)
				refunds.GET("/:id", refundHandler.GetRefund)
				refunds.PATCH("/:id/status",
					middleware.RateLimitMiddleware(rateLimits.Refund, "merchant"),
					refundHandler.UpdateRefundStatus)
			}

			billingRoutes := dashboard.Group("/billing")
			{
				billingRoutes.GET("/preview", billingHandler.GetBillingPreview)
				billingRoutes.GET("/payments", billingHandler.ListPayments)
			}
		}
	}

	// Admin routes: static API key, no merchant context
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg.AdminAPIKey))
	{
		admin.POST("/merchants/:id/suspend", adminHandler.SuspendMerchant)
		admin.POST("/merchants/:id/activate", adminHandler.ActivateMerchant)
		admin.POST("/merchants/:id/rescue", adminHandler.RescueMerchant)
		admin.POST("/scoreboards/reconcile", adminHandler.ReconcileScoreboards)
	}

	return router
}
