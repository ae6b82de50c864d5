package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourfeed/feed-service/internal/cache"
	"github.com/yourfeed/feed-service/internal/config"
	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/events"
	"github.com/yourfeed/feed-service/internal/queue"
	"github.com/yourfeed/feed-service/internal/service"
	"github.com/yourfeed/feed-service/internal/youtube"
	"github.com/yourfeed/feed-service/pkg/logger"
)

const defaultWorkerConcurrency = 4

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)

	cfg, err := config.Load()
	if err != nil {
		slogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		slogger.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.YouTube.APIKey == "" {
		slogger.Error("YouTube API key is required (YOURFEED_YOUTUBE_APIKEY)")
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		slogger.Error("Redis address is required for the refresh worker (YOURFEED_REDIS_ADDR)")
		os.Exit(1)
	}

	slogger.Info("refresh service starting",
		"interval", cfg.Refresh.Interval,
		"concurrency", cfg.YouTube.FetchConcurrency,
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		slogger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close(pool)

	videoRepo := repository.NewVideoRepository(pool)
	favoriteRepo := repository.NewFavoriteRepository(pool)

	memory := cache.NewMemory()
	defer memory.Close()

	ytClient, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		slogger.Error("failed to initialize YouTube client", "error", err)
		os.Exit(1)
	}
	selector := youtube.NewSelector(ytClient, cfg.YouTube.MinDurationSeconds, int64(cfg.YouTube.ScanDepth), logger.Named("selector"))

	var publisher events.Publisher
	if cfg.RabbitMQ.Host != "" {
		amqpPublisher, err := events.NewAMQPPublisher(&cfg.RabbitMQ, logger.Named("amqp"))
		if err != nil {
			slogger.Warn("event publishing to RabbitMQ disabled", "error", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
		}
	}

	reconciler := service.NewReconciler(videoRepo, favoriteRepo, selector, publisher, memory, cfg.YouTube.FetchConcurrency, logger.Named("reconciler"))

	queueClient, err := queue.NewClient(cfg.Redis.Addr, favoriteRepo, logger.Named("queue"))
	if err != nil {
		slogger.Error("failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer queueClient.Close()

	refreshHandler := queue.NewRefreshHandler(reconciler, logger.Named("worker"))
	server, err := queue.NewServer(cfg.Redis.Addr, defaultWorkerConcurrency, refreshHandler, logger.Named("server"))
	if err != nil {
		slogger.Error("failed to create queue server", "error", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		slogger.Info("starting task processing server")
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	ticker := time.NewTicker(cfg.Refresh.Interval)
	defer ticker.Stop()

	// Kick off a full pass immediately so a fresh deployment does not
	// wait a whole interval for its first feed.
	slogger.Info("running initial refresh pass")
	if n, err := queueClient.EnqueueAllUsers(ctx, "startup"); err != nil {
		slogger.Error("initial refresh pass failed", "error", err)
	} else {
		slogger.Info("initial refresh pass enqueued", "users", n)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			slogger.Info("running scheduled refresh pass")
			if n, err := queueClient.EnqueueAllUsers(ctx, "scheduled"); err != nil {
				slogger.Error("scheduled refresh pass failed", "error", err)
			} else {
				slogger.Info("scheduled refresh pass enqueued", "users", n)
			}
		case err := <-serverErr:
			slogger.Error("server error", "error", err)
			os.Exit(1)
		case sig := <-shutdown:
			slogger.Info("shutdown signal received", "signal", sig)
			server.Stop()
			slogger.Info("refresh service stopped gracefully")
			return
		}
	}
}
