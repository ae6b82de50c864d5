package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourfeed/feed-service/internal/cache"
	"github.com/yourfeed/feed-service/internal/config"
	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/events"
	"github.com/yourfeed/feed-service/internal/handler"
	"github.com/yourfeed/feed-service/internal/middleware"
	"github.com/yourfeed/feed-service/internal/queue"
	"github.com/yourfeed/feed-service/internal/service"
	"github.com/yourfeed/feed-service/internal/youtube"
	"github.com/yourfeed/feed-service/pkg/logger"
)

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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		slogger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close(pool)

	slogger.Info("database connection established", "max_conns", cfg.Database.MaxConnections)

	videoRepo := repository.NewVideoRepository(pool)
	flagRepo := repository.NewFlagRepository(pool)
	favoriteRepo := repository.NewFavoriteRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)

	// Shared cache when Redis is configured, in-process otherwise.
	var store cache.Cache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = cache.NewRedis(redisClient, "feedcache")
		slogger.Info("using redis cache", "addr", cfg.Redis.Addr)
	} else {
		memory := cache.NewMemory()
		defer memory.Close()
		store = memory
		slogger.Info("using in-process cache")
	}

	ytClient, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		slogger.Error("failed to initialize YouTube client", "error", err)
		os.Exit(1)
	}

	selector := youtube.NewSelector(ytClient, cfg.YouTube.MinDurationSeconds, int64(cfg.YouTube.ScanDepth), logger.Named("selector"))

	emitter := events.NewEmitter()
	publishers := events.Fanout{emitter}
	var amqpPublisher *events.AMQPPublisher
	if cfg.RabbitMQ.Host != "" {
		amqpPublisher, err = events.NewAMQPPublisher(&cfg.RabbitMQ, logger.Named("amqp"))
		if err != nil {
			slogger.Warn("event publishing to RabbitMQ disabled", "error", err)
		} else {
			defer amqpPublisher.Close()
			publishers = append(publishers, amqpPublisher)
		}
	}

	reconciler := service.NewReconciler(videoRepo, favoriteRepo, selector, publishers, store, cfg.YouTube.FetchConcurrency, logger.Named("reconciler"))
	viewState := service.NewViewState(videoRepo, flagRepo, publishers, logger.Named("viewstate"))
	channelSearch := service.NewChannelSearch(ytClient, store, logger.Named("search"))

	var queueClient *queue.Client
	if cfg.Redis.Addr != "" {
		queueClient, err = queue.NewClient(cfg.Redis.Addr, favoriteRepo, logger.Named("queue"))
		if err != nil {
			slogger.Warn("queue client unavailable, refreshes run inline", "error", err)
		} else {
			defer queueClient.Close()
		}
	}

	var health *handler.HealthHandler
	if amqpPublisher != nil {
		health = handler.NewHealthHandler(pool, amqpPublisher)
	} else {
		health = handler.NewHealthHandler(pool, nil)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:       middleware.NewAPIKeyAuth(cfg.Server.APIKeys, logger.Named("auth")),
		Feed:       handler.NewFeedHandler(reconciler, viewState, queueClient),
		Favorites:  handler.NewFavoriteHandler(favoriteRepo, channelSearch, publishers, queueClient),
		Categories: handler.NewCategoryHandler(categoryRepo),
		Channels:   handler.NewChannelHandler(channelSearch),
		Health:     health,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slogger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slogger.Error("failed to close server", "error", err)
			}
			os.Exit(1)
		}

		slogger.Info("server stopped gracefully")
	}
}
