package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grandstay/hotel-booking-backend/internal/config"
	"github.com/grandstay/hotel-booking-backend/internal/database"
	"github.com/grandstay/hotel-booking-backend/internal/database/memory"
	"github.com/grandstay/hotel-booking-backend/internal/handlers"
	"github.com/grandstay/hotel-booking-backend/internal/locking"
	"github.com/grandstay/hotel-booking-backend/internal/middleware"
	"github.com/grandstay/hotel-booking-backend/internal/payment"
	"github.com/grandstay/hotel-booking-backend/internal/services"
	"github.com/grandstay/hotel-booking-backend/internal/workers"
	"github.com/grandstay/hotel-booking-backend/pkg/notify"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting GrandStay Hotel Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize stores
	var (
		roomStore         services.RoomStore
		bookingStore      services.BookingStore
		paymentStore      services.PaymentStore
		notificationStore services.NotificationStore
		roomLister        handlers.RoomLister
		bookingHistory    handlers.BookingHistory
		paymentHistory    handlers.PaymentHistory
	)

	switch cfg.Store.Driver {
	case "memory":
		logger.Info("Using in-memory stores")
		rooms := memory.NewRoomStore()
		bookings := memory.NewBookingStore()
		payments := memory.NewPaymentStore()
		notifications := memory.NewNotificationStore()
		roomStore, bookingStore, paymentStore, notificationStore = rooms, bookings, payments, notifications
		roomLister, bookingHistory, paymentHistory = rooms, bookings, payments
	default:
		logger.Info("Connecting to database...")
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		rooms := database.NewRoomRepository(db)
		bookings := database.NewBookingRepository(db)
		payments := database.NewPaymentRepository(db)
		notifications := database.NewNotificationRepository(db)
		roomStore, bookingStore, paymentStore, notificationStore = rooms, bookings, payments, notifications
		roomLister, bookingHistory, paymentHistory = rooms, bookings, payments
	}

	// Initialize lock manager
	lockManager := locking.NewLockManager(cfg.Locking.AcquireTimeout, logger)

	// Initialize payment gateways and router
	stripeGateway := payment.NewStripeGateway(payment.StripeConfig{
		APIKey:  cfg.Payment.StripeAPIKey,
		BaseURL: cfg.Payment.StripeBaseURL,
	}, logger)
	paypalGateway := payment.NewPayPalGateway(payment.PayPalConfig{
		ClientID:     cfg.Payment.PayPalClientID,
		ClientSecret: cfg.Payment.PayPalSecret,
		BaseURL:      cfg.Payment.PayPalBaseURL,
	}, logger)

	paymentRouter := payment.NewRouter(payment.RouterConfig{
		MaxFailures:   cfg.Payment.MaxFailures,
		ProbeInterval: cfg.Payment.ProbeInterval,
	}, payment.DefaultRefInference, logger)
	paymentRouter.Register(stripeGateway, payment.Capabilities{
		Methods: []payment.Method{
			payment.MethodCreditCard, payment.MethodDebitCard,
			payment.MethodApplePay, payment.MethodGooglePay,
		},
	})
	paymentRouter.Register(paypalGateway, payment.Capabilities{
		Methods:   []payment.Method{payment.MethodPayPal},
		HighValue: true,
	})

	// Initialize worker pools
	bookingPool := workers.NewPool("booking", cfg.Workers.BookingWorkers, cfg.Workers.BookingQueueDepth, logger)
	effectPool := workers.NewPool("effects", cfg.Workers.EffectWorkers, cfg.Workers.EffectQueueDepth, logger)

	// Initialize services
	logger.Info("Initializing services...")
	sender := notify.NewWebhookSender(notify.WebhookConfig{
		URL:    cfg.Notify.WebhookURL,
		APIKey: cfg.Notify.APIKey,
	}, logger)
	notificationService := services.NewNotificationService(notificationStore, sender, effectPool, logger)

	orchestrator := services.NewBookingOrchestratorService(
		roomStore,
		bookingStore,
		paymentStore,
		paymentRouter,
		lockManager,
		notificationService,
		services.StandardQuote,
		bookingPool,
		effectPool,
		services.OrchestratorConfig{
			LockTimeout:    cfg.Locking.AcquireTimeout,
			PaymentTimeout: cfg.Payment.PaymentTimeout,
			Currency:       cfg.Payment.Currency,
		},
		logger,
	)

	maintenanceConfig := services.DefaultMaintenanceConfig()
	maintenanceConfig.StaleLockAge = cfg.Locking.StaleLockAge
	maintenanceService := services.NewMaintenanceService(lockManager, paymentRouter, orchestrator, maintenanceConfig, logger)
	if err := maintenanceService.Start(); err != nil {
		logger.Fatalf("Failed to start maintenance service: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(orchestrator, roomLister, bookingHistory, paymentHistory, logger)
	opsHandler := handlers.NewOpsHandler(lockManager, paymentRouter, maintenanceService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", opsHandler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/rooms", bookingHandler.ListAvailableRooms)

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.DELETE("/:id", bookingHandler.CancelBooking)
			bookings.POST("/:id/check-in", bookingHandler.CheckIn)
			bookings.POST("/:id/check-out", bookingHandler.CheckOut)
			bookings.GET("/:id/payments", bookingHandler.ListBookingPayments)
		}

		ops := v1.Group("/ops")
		{
			ops.GET("/gateways", opsHandler.GatewayStatuses)
			ops.GET("/locks", opsHandler.HeldLocks)
			ops.GET("/jobs", opsHandler.Jobs)
		}
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	maintenanceService.Stop()

	// Drain booking work before the side-effect pool so refunds and
	// notifications queued by in-flight bookings still run.
	if err := bookingPool.Shutdown(ctx); err != nil {
		logger.Errorf("Booking pool shutdown: %v", err)
	}
	if err := effectPool.Shutdown(ctx); err != nil {
		logger.Errorf("Effect pool shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
