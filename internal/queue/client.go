package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/db/repository"
)

// Client wraps asynq client for enqueueing feed refresh tasks.
type Client struct {
	asynqClient   *asynq.Client
	favoritesRepo repository.FavoriteRepository
	logger        *zap.Logger
}

// NewClient creates a new queue client.
func NewClient(redisAddr string, favoritesRepo repository.FavoriteRepository, logger *zap.Logger) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		asynqClient:   asynq.NewClient(redisOpt),
		favoritesRepo: favoritesRepo,
		logger:        logger,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueFeedRefresh enqueues a refresh task for one user. Tasks are
// deduplicated per user while one is still pending.
func (c *Client) EnqueueFeedRefresh(ctx context.Context, userID, reason string) error {
	payload, err := NewRefreshFeedTask(userID, reason, map[string]interface{}{
		"enqueued_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeRefreshFeed, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
		asynq.TaskID(fmt.Sprintf("feed:refresh:%s", userID)),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.logger.Debug("refresh already queued", zap.String("user_id", userID))
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("enqueued feed refresh",
		zap.String("user_id", userID),
		zap.String("task_id", info.ID),
		zap.String("reason", reason))
	return nil
}

// EnqueueAllUsers enqueues a refresh for every user with at least one
// followed channel. Used by the periodic scheduler.
func (c *Client) EnqueueAllUsers(ctx context.Context, reason string) (int, error) {
	userIDs, err := c.favoritesRepo.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	enqueued := 0
	for _, userID := range userIDs {
		if err := c.EnqueueFeedRefresh(ctx, userID, reason); err != nil {
			c.logger.Warn("enqueue failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
