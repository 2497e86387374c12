// Package main runs one maintenance cleanup action and exits.
//
//	cleanup --action cleanup-old-events --days-old 60
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campusbuzz/backend/config"
	"github.com/campusbuzz/backend/internal/admin"
	"github.com/campusbuzz/backend/internal/events"
	"github.com/campusbuzz/backend/internal/notifications"
	"github.com/campusbuzz/backend/internal/tickets"
	"github.com/campusbuzz/backend/pkg/database"
	"github.com/campusbuzz/backend/pkg/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one cleanup and returns the process exit code: 0 on success,
// 1 when the action failed or reported item errors, 2 on bad usage.
func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("cleanup", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	action := flags.StringP("action", "a", "", "cleanup action: "+strings.Join(admin.Actions, ", "))
	daysOld := flags.IntP("days-old", "d", admin.DefaultDaysOld, "only touch rows older than this many days")
	timeout := flags.Duration("timeout", 5*time.Minute, "give up after this long")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if !validAction(*action) {
		fmt.Fprintf(stderr, "--action must be one of: %s\n", strings.Join(admin.Actions, ", "))
		flags.PrintDefaults()
		return 2
	}

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Error("database", zap.Error(err))
		return 1
	}
	defer pool.Close()

	var objects admin.ObjectDeleter
	if cfg.AWS.TicketsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.TicketsBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, stored QR images will not be removed", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	cleaner := admin.NewCleaner(
		events.NewRepository(pool),
		tickets.NewRepository(pool),
		notifications.NewRepository(pool),
		objects,
		logger,
	)
	res, err := cleaner.Run(ctx, *action, *daysOld)
	if err != nil {
		logger.Error("cleanup", zap.String("action", *action), zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if len(res.Errors) > 0 {
		return 1
	}
	return 0
}

func validAction(action string) bool {
	for _, a := range admin.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
