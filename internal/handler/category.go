package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/middleware"
)

// CategoryHandler manages user-defined channel categories.
type CategoryHandler struct {
	categories repository.CategoryRepository
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(categories repository.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// CategoryRequest is the body for creating or updating a category.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// List returns the user's categories, seeding the defaults on first
// contact so every user starts with the same baseline set.
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	if err := h.categories.SeedDefaults(ctx, userID); err != nil {
		respondError(c, err)
		return
	}

	categories, err := h.categories.ListByUser(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}

// Create adds a user-defined category.
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.UserID(c)

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}

	category := models.NewCategory(req.Name, req.Description, req.Color)
	if err := h.categories.Create(c.Request.Context(), userID, category); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// Update edits a user-defined category. Default categories refuse
// mutation with a conflict.
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.UserID(c)
	categoryID := c.Param("id")

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	category, err := h.categories.GetByID(ctx, userID, categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	category.Name = req.Name
	category.Description = req.Description
	if req.Color != "" {
		category.Color = req.Color
	}

	if err := h.categories.Update(ctx, userID, category); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// Delete removes a user-defined category.
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)
	categoryID := c.Param("id")

	if err := h.categories.Delete(c.Request.Context(), userID, categoryID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "categoryId": categoryID})
}
