package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/middleware"
	"github.com/yourfeed/feed-service/internal/queue"
	"github.com/yourfeed/feed-service/internal/service"
	"github.com/yourfeed/feed-service/pkg/logger"
)

// FeedHandler serves the reconciled feed and the per-video state
// mutators.
type FeedHandler struct {
	reconciler  *service.Reconciler
	viewState   *service.ViewState
	queueClient *queue.Client
}

// NewFeedHandler creates a FeedHandler. queueClient may be nil; refresh
// then runs synchronously in the request.
func NewFeedHandler(reconciler *service.Reconciler, viewState *service.ViewState, queueClient *queue.Client) *FeedHandler {
	return &FeedHandler{
		reconciler:  reconciler,
		viewState:   viewState,
		queueClient: queueClient,
	}
}

// List returns the user's videos, optionally narrowed by ?bucket=.
func (h *FeedHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)

	items, err := h.viewState.Feed(c.Request.Context(), userID, c.Query("bucket"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": items, "count": len(items)})
}

// Refresh reconciles the feed. With ?async=true the work is queued and
// 202 returned; otherwise the run executes inline and its report is the
// response.
func (h *FeedHandler) Refresh(c *gin.Context) {
	userID := middleware.UserID(c)

	if c.Query("async") == "true" && h.queueClient != nil {
		if err := h.queueClient.EnqueueFeedRefresh(c.Request.Context(), userID, "api"); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	report, err := h.reconciler.RefreshFeed(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Named("http").Info("feed refreshed via API",
		zap.String("user_id", userID),
		zap.Int("channels", report.Channels))
	c.JSON(http.StatusOK, report)
}

// MarkWatched moves the video into the watched bucket.
func (h *FeedHandler) MarkWatched(c *gin.Context) {
	h.mutate(c, h.viewState.MarkWatched)
}

// RemoveFromWatched takes the video out of the watched bucket.
func (h *FeedHandler) RemoveFromWatched(c *gin.Context) {
	h.mutate(c, h.viewState.RemoveFromWatched)
}

// MarkLater moves the video into the watch-later bucket.
func (h *FeedHandler) MarkLater(c *gin.Context) {
	h.mutate(c, h.viewState.MarkLater)
}

// RemoveFromLater takes the video out of the watch-later bucket.
func (h *FeedHandler) RemoveFromLater(c *gin.Context) {
	h.mutate(c, h.viewState.RemoveFromLater)
}

// MarkDeleted soft-deletes the video.
func (h *FeedHandler) MarkDeleted(c *gin.Context) {
	h.mutate(c, h.viewState.MarkDeleted)
}

// RestoreDeleted brings a soft-deleted video back.
func (h *FeedHandler) RestoreDeleted(c *gin.Context) {
	h.mutate(c, h.viewState.RestoreDeleted)
}

func (h *FeedHandler) mutate(c *gin.Context, op func(ctx context.Context, userID, videoID string) error) {
	userID := middleware.UserID(c)
	videoID := c.Param("id")

	if err := op(c.Request.Context(), userID, videoID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "videoId": videoID})
}
