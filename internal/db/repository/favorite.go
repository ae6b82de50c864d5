package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
)

// FavoriteRepository manages a user's followed channels.
type FavoriteRepository interface {
	// ListByUser retrieves the user's followed channels, oldest first.
	ListByUser(ctx context.Context, userID string) ([]*models.Channel, error)

	// Add follows a channel. Following an already-followed channel is a
	// no-op.
	Add(ctx context.Context, userID string, channel *models.Channel) error

	// Remove unfollows a channel.
	Remove(ctx context.Context, userID, channelID string) error

	// UpdateCategory files the channel under a category; empty
	// categoryID clears the assignment.
	UpdateCategory(ctx context.Context, userID, channelID, categoryID string) error

	// ListUserIDs returns every user that follows at least one channel.
	ListUserIDs(ctx context.Context) ([]string, error)
}

type favoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository creates a FavoriteRepository.
func NewFavoriteRepository(pool *pgxpool.Pool) FavoriteRepository {
	return &favoriteRepository{pool: pool}
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID string) ([]*models.Channel, error) {
	query := `
		SELECT channel_id, title, description, thumbnail, category_id, added_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY added_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list favorites")
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel := &models.Channel{}
		var categoryID sql.NullString
		err := rows.Scan(
			&channel.ID,
			&channel.Title,
			&channel.Description,
			&channel.Thumbnail,
			&categoryID,
			&channel.AddedAt,
		)
		if err != nil {
			return nil, db.WrapError(err, "scan favorite")
		}
		channel.CategoryID = categoryID.String
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate favorites")
	}

	return channels, nil
}

func (r *favoriteRepository) Add(ctx context.Context, userID string, channel *models.Channel) error {
	query := `
		INSERT INTO favorites (user_id, channel_id, title, description, thumbnail, category_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (user_id, channel_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		userID,
		channel.ID,
		channel.Title,
		channel.Description,
		channel.Thumbnail,
		channel.CategoryID,
	)
	if err != nil {
		return db.WrapError(err, "add favorite")
	}

	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, channelID string) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND channel_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, channelID)
	if err != nil {
		return db.WrapError(err, "remove favorite")
	}
	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "remove favorite")
	}

	return nil
}

func (r *favoriteRepository) UpdateCategory(ctx context.Context, userID, channelID, categoryID string) error {
	query := `
		UPDATE favorites
		SET category_id = NULLIF($1, '')
		WHERE user_id = $2 AND channel_id = $3
	`

	result, err := r.pool.Exec(ctx, query, categoryID, userID, channelID)
	if err != nil {
		return db.WrapError(err, "update favorite category")
	}
	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update favorite category")
	}

	return nil
}

func (r *favoriteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM favorites ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list favorite user ids")
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, db.WrapError(err, "scan favorite user id")
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate favorite user ids")
	}

	return userIDs, nil
}
