package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/service"
)

// RefreshHandler processes feed refresh tasks.
type RefreshHandler struct {
	reconciler *service.Reconciler
	logger     *zap.Logger
}

// NewRefreshHandler creates a refresh task handler.
func NewRefreshHandler(reconciler *service.Reconciler, logger *zap.Logger) *RefreshHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshHandler{reconciler: reconciler, logger: logger}
}

// ProcessTask implements asynq.HandlerFunc.
func (h *RefreshHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalRefreshFeedPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	report, err := h.reconciler.RefreshFeed(ctx, payload.UserID)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeValidation, apperrors.CodeBusinessRule, apperrors.CodeUnauthorized, apperrors.CodeForbidden:
			// Retrying cannot fix the request itself.
			h.logger.Error("refresh failed, not retrying",
				zap.String("user_id", payload.UserID),
				zap.Error(err))
			return fmt.Errorf("refresh feed: %w: %w", asynq.SkipRetry, err)
		}
		return fmt.Errorf("refresh feed: %w", err)
	}

	h.logger.Info("refresh task done",
		zap.String("user_id", payload.UserID),
		zap.Int("channels", report.Channels),
		zap.Int("failed", report.Failed))
	return nil
}
