// Package main runs the CampusBuzz HTTP server with the in-process job worker and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campusbuzz/backend/config"
	"github.com/campusbuzz/backend/internal/admin"
	"github.com/campusbuzz/backend/internal/auth"
	"github.com/campusbuzz/backend/internal/events"
	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/internal/middleware"
	"github.com/campusbuzz/backend/internal/models"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/internal/tickets"
	"github.com/campusbuzz/backend/internal/worker"
	"github.com/campusbuzz/backend/pkg/database"
	"github.com/campusbuzz/backend/pkg/queue"
	"github.com/campusbuzz/backend/pkg/redis"
	"github.com/campusbuzz/backend/pkg/response"
	"github.com/campusbuzz/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.TicketsBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.TicketsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, ticket QR images will be rendered on demand", zap.Error(err))
			s3Client = nil
		}
	}

	signer, err := tickets.NewSigner(cfg.Tickets.SigningSecret)
	if err != nil {
		logger.Fatal("ticket signer", zap.Error(err))
	}
	jwtService := auth.NewJWTService(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpireMinutes)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpireDays)*24*time.Hour,
	)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Optional object storage. Interfaces stay nil when S3 is off.
	var (
		objectDeleter events.ObjectDeleter
		cleanupStore  admin.ObjectDeleter
		ticketObjects tickets.ObjectStore
		qrJobs        tickets.QRJobQueue
	)
	if s3Client != nil {
		objectDeleter, cleanupStore, ticketObjects, qrJobs = s3Client, s3Client, s3Client, jobQueue
	}

	// Auth
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, jwtService, auth.CookieWriter{Secure: cfg.Server.SecureCookies}, cfg.Admin, logger)

	// Notifications
	notificationRepo := notifications.NewRepository(pool)
	relay := notifications.NewRelay(notificationRepo, logger)
	fanout := notifications.NewFanout(relay, userRepo)
	notificationHandler := notifications.NewHandler(relay, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, relay, jobQueue, fanout, objectDeleter, logger)
	eventHandler := events.NewHandler(eventService, logger)

	// Tickets
	ticketRepo := tickets.NewRepository(pool)
	issuer := tickets.NewIssuer(ticketRepo, eventRepo, userRepo, signer, relay, qrJobs, logger)
	verifier := tickets.NewVerifier(ticketRepo, eventRepo, signer, logger)
	ticketService := tickets.NewService(ticketRepo, ticketObjects, cfg.Tickets.QRSize, logger)
	ticketHandler := tickets.NewHandler(issuer, verifier, ticketService, logger)

	// Admin
	dashboard := admin.NewDashboard(admin.NewRepository(pool), eventRepo)
	cleaner := admin.NewCleaner(eventRepo, ticketRepo, notificationRepo, cleanupStore, logger)
	adminHandler := admin.NewHandler(dashboard, cleaner, logger)

	// Background worker (admin fan-out, QR upload to S3)
	var qrPublisher worker.QRPublisher
	if s3Client != nil {
		qrPublisher = ticketService
	}
	processor := worker.NewProcessor(jobQueue, fanout, qrPublisher, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", healthHandler(pool, rdb))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.Auth(jwtService)
	optionalAuth := middleware.OptionalAuth(jwtService)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	authLimit := middleware.RateLimit(rdb.Client, "auth", cfg.RateLimit.AuthPerMinute, logger)

	// Auth (public, rate limited per IP)
	router.POST("/register", authLimit, authHandler.Register)
	router.POST("/login", authLimit, authHandler.Login)
	router.POST("/refresh-token", authLimit, authHandler.Refresh)
	router.POST("/logout", authHandler.Logout)
	router.GET("/profile", authHandler.Profile)

	// Events
	router.GET("/events", optionalAuth, eventHandler.List)
	router.GET("/events/pending", requireAuth, adminOnly, eventHandler.Pending)
	router.GET("/events/user/:userId/pending", requireAuth, eventHandler.PendingByOwner)
	router.GET("/events/:id", optionalAuth, eventHandler.GetByID)
	router.POST("/events", requireAuth, eventHandler.Create)
	router.POST("/events/:id/approve", requireAuth, adminOnly, eventHandler.Approve)
	router.DELETE("/events/:id", requireAuth, eventHandler.Delete)

	// Orders (public quote)
	router.POST("/orders/summary", ticketHandler.OrderSummary)

	api := router.Group("")
	api.Use(requireAuth)
	{
		// Tickets
		api.POST("/book-ticket", ticketHandler.Book)
		api.GET("/tickets", ticketHandler.List)
		api.GET("/tickets/:id", ticketHandler.GetByID)
		api.GET("/tickets/:id/qr", ticketHandler.QR)
		api.POST("/tickets/verify", adminOnly, ticketHandler.Verify)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications", notificationHandler.MarkRead)

		// Admin
		api.GET("/admin/dashboard", adminOnly, adminHandler.Dashboard)
		api.POST("/admin/cleanup", adminOnly, adminHandler.Cleanup)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)
	go metrics.CollectQueueDepths(workerCtx, jobQueue, 15*time.Second, logger)
	logger.Info("job worker started", zap.Bool("qr_upload", qrPublisher != nil))

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func healthHandler(pool *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbOK := pool.Ping(ctx) == nil
		redisOK := rdb.Healthy(ctx)
		if !dbOK {
			c.JSON(http.StatusServiceUnavailable, response.Body{
				Success: false,
				Data:    gin.H{"status": "degraded", "database": dbOK, "redis": redisOK},
				Error:   "database unavailable",
			})
			return
		}
		response.OK(c, gin.H{"status": "ok", "database": dbOK, "redis": redisOK})
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
