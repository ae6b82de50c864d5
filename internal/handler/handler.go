// Package handler provides HTTP request handlers for the application.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/middleware"
	"github.com/yourfeed/feed-service/pkg/logger"
)

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// respondError translates storage and domain errors into HTTP responses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "Internal Server Error"

	switch {
	case db.IsNotFound(err):
		status = http.StatusNotFound
		code = "Not Found"
	case db.IsDuplicateKey(err):
		status = http.StatusConflict
		code = "Conflict"
	case db.IsImmutableRecord(err):
		status = http.StatusConflict
		code = "Conflict"
	default:
		if appCode := apperrors.CodeOf(err); appCode != apperrors.CodeUnknown {
			status = apperrors.HTTPStatus(appCode)
			code = string(appCode)
		}
	}

	log := logger.Named("http")
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	} else {
		log.Warn("request rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.JSON(status, ErrorResponse{
		Status:    status,
		Error:     code,
		Message:   err.Error(),
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// RouterConfig bundles everything the HTTP surface needs.
type RouterConfig struct {
	Auth       *middleware.APIKeyAuth
	Feed       *FeedHandler
	Favorites  *FavoriteHandler
	Categories *CategoryHandler
	Channels   *ChannelHandler
	Health     *HealthHandler
}

// NewRouter wires all endpoints onto a gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", cfg.Health.LivenessProbe)
	router.GET("/health/ready", cfg.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(cfg.Auth.Middleware())

	api.GET("/feed", cfg.Feed.List)
	api.POST("/feed/refresh", cfg.Feed.Refresh)

	api.POST("/videos/:id/watched", cfg.Feed.MarkWatched)
	api.DELETE("/videos/:id/watched", cfg.Feed.RemoveFromWatched)
	api.POST("/videos/:id/later", cfg.Feed.MarkLater)
	api.DELETE("/videos/:id/later", cfg.Feed.RemoveFromLater)
	api.POST("/videos/:id/deleted", cfg.Feed.MarkDeleted)
	api.POST("/videos/:id/restore", cfg.Feed.RestoreDeleted)

	api.GET("/favorites", cfg.Favorites.List)
	api.POST("/favorites", cfg.Favorites.Add)
	api.DELETE("/favorites/:id", cfg.Favorites.Remove)
	api.PUT("/favorites/:id/category", cfg.Favorites.SetCategory)

	api.GET("/categories", cfg.Categories.List)
	api.POST("/categories", cfg.Categories.Create)
	api.PUT("/categories/:id", cfg.Categories.Update)
	api.DELETE("/categories/:id", cfg.Categories.Delete)

	api.GET("/channels/search", cfg.Channels.Search)
	api.GET("/channels/:id", cfg.Channels.Details)

	return router
}
