package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a user-defined grouping for followed channels. Default
// categories are seeded once per user and cannot be edited or removed.
type Category struct {
	ID          string    `db:"category_id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	IsDefault   bool      `db:"is_default" json:"isDefault"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// NewCategory creates a user-defined (non-default) category.
func NewCategory(name, description, color string) *Category {
	if color == "" {
		color = "#6B7280"
	}
	return &Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Color:       color,
		IsDefault:   false,
		CreatedAt:   time.Now(),
	}
}

// DefaultCategories returns the set seeded for every new user.
func DefaultCategories() []*Category {
	now := time.Now()
	return []*Category{
		{ID: "default-entertainment", Name: "Entertainment", Description: "Entertainment, comedy and gaming channels", Color: "#EF4444", IsDefault: true, CreatedAt: now},
		{ID: "default-science", Name: "Science", Description: "Science and educational channels", Color: "#3B82F6", IsDefault: true, CreatedAt: now},
		{ID: "default-sport", Name: "Sport", Description: "Sport and fitness channels", Color: "#10B981", IsDefault: true, CreatedAt: now},
		{ID: "default-technology", Name: "Technology", Description: "Technology and engineering channels", Color: "#8B5CF6", IsDefault: true, CreatedAt: now},
	}
}
