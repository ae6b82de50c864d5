package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourfeed/feed-service/internal/service"
)

// ChannelHandler serves the channel discovery endpoints.
type ChannelHandler struct {
	search *service.ChannelSearch
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(search *service.ChannelSearch) *ChannelHandler {
	return &ChannelHandler{search: search}
}

// Search finds channels matching ?q=.
func (h *ChannelHandler) Search(c *gin.Context) {
	channels, err := h.search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels, "count": len(channels)})
}

// Details returns channel metadata by id.
func (h *ChannelHandler) Details(c *gin.Context) {
	channel, err := h.search.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, channel)
}
