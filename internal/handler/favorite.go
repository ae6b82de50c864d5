package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/events"
	"github.com/yourfeed/feed-service/internal/middleware"
	"github.com/yourfeed/feed-service/internal/queue"
	"github.com/yourfeed/feed-service/internal/service"
	"github.com/yourfeed/feed-service/pkg/logger"
)

// FavoriteHandler manages the user's followed channels.
type FavoriteHandler struct {
	favorites   repository.FavoriteRepository
	channels    *service.ChannelSearch
	publisher   events.Publisher
	queueClient *queue.Client
}

// NewFavoriteHandler creates a FavoriteHandler. publisher and
// queueClient may be nil.
func NewFavoriteHandler(favorites repository.FavoriteRepository, channels *service.ChannelSearch, publisher events.Publisher, queueClient *queue.Client) *FavoriteHandler {
	return &FavoriteHandler{
		favorites:   favorites,
		channels:    channels,
		publisher:   publisher,
		queueClient: queueClient,
	}
}

// AddFavoriteRequest is the body for following a channel.
type AddFavoriteRequest struct {
	ChannelID  string `json:"channelId" binding:"required"`
	CategoryID string `json:"categoryId"`
}

// List returns the user's followed channels.
func (h *FavoriteHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)

	channels, err := h.favorites.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels, "count": len(channels)})
}

// Add follows a channel. Channel metadata comes from the upstream
// lookup so stored favorites always carry title and thumbnail.
func (h *FavoriteHandler) Add(c *gin.Context) {
	userID := middleware.UserID(c)

	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	channel, err := h.channels.Details(ctx, req.ChannelID)
	if err != nil {
		respondError(c, err)
		return
	}
	channel.CategoryID = req.CategoryID

	if err := h.favorites.Add(ctx, userID, channel); err != nil {
		respondError(c, err)
		return
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(ctx, events.New(events.TypeFavoriteAdded, userID, channel.ID, ""))
	}
	if h.queueClient != nil {
		if err := h.queueClient.EnqueueFeedRefresh(ctx, userID, "favorite_added"); err != nil {
			logger.Named("http").Warn("refresh enqueue failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, channel)
}

// Remove unfollows a channel.
func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID := middleware.UserID(c)
	channelID := c.Param("id")

	if err := h.favorites.Remove(c.Request.Context(), userID, channelID); err != nil {
		respondError(c, err)
		return
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(c.Request.Context(), events.New(events.TypeFavoriteRemoved, userID, channelID, ""))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "channelId": channelID})
}

// SetCategoryRequest is the body for assigning a favorite to a
// category. An empty category id clears the assignment.
type SetCategoryRequest struct {
	CategoryID string `json:"categoryId"`
}

// SetCategory assigns the followed channel to a category.
func (h *FavoriteHandler) SetCategory(c *gin.Context) {
	userID := middleware.UserID(c)
	channelID := c.Param("id")

	var req SetCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}

	if err := h.favorites.UpdateCategory(c.Request.Context(), userID, channelID, req.CategoryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "channelId": channelID, "categoryId": req.CategoryID})
}
