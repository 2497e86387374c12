// Package main runs the background job worker (admin fan-out, ticket QR upload to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campusbuzz/backend/config"
	"github.com/campusbuzz/backend/internal/auth"
	"github.com/campusbuzz/backend/internal/metrics"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/internal/tickets"
	"github.com/campusbuzz/backend/internal/worker"
	"github.com/campusbuzz/backend/pkg/database"
	"github.com/campusbuzz/backend/pkg/queue"
	"github.com/campusbuzz/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var qrPublisher worker.QRPublisher
	if cfg.AWS.TicketsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.TicketsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		qrPublisher = tickets.NewService(tickets.NewRepository(pool), s3Client, cfg.Tickets.QRSize, logger)
	}

	relay := notifications.NewRelay(notifications.NewRepository(pool), logger)
	fanout := notifications.NewFanout(relay, auth.NewRepository(pool))
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(jobQueue, fanout, qrPublisher, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go metrics.CollectQueueDepths(workerCtx, jobQueue, 15*time.Second, logger)
	logger.Info("worker started", zap.Bool("qr_upload", qrPublisher != nil))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
