package models

import "time"

// Channel is a followed content source. CategoryID is empty when the
// user has not filed the channel under a category.
type Channel struct {
	ID          string    `db:"channel_id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	CategoryID  string    `db:"category_id" json:"categoryId,omitempty"`
	AddedAt     time.Time `db:"added_at" json:"-"`
}

// NewChannel creates a Channel with the given metadata.
func NewChannel(id, title, description, thumbnail string) *Channel {
	return &Channel{
		ID:          id,
		Title:       title,
		Description: description,
		Thumbnail:   thumbnail,
		AddedAt:     time.Now(),
	}
}
