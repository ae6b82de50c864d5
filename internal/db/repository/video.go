// Package repository implements per-user persistence over PostgreSQL.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
)

// VideoRepository defines operations on a user's tracked videos.
type VideoRepository interface {
	// GetAllByUser retrieves every tracked video, deleted ones included.
	GetAllByUser(ctx context.Context, userID string) ([]*models.Video, error)

	// GetByID retrieves a single video.
	GetByID(ctx context.Context, userID, videoID string) (*models.Video, error)

	// Upsert creates or updates a video keyed by video id.
	Upsert(ctx context.Context, userID string, video *models.Video) error

	// Delete physically removes a video record.
	Delete(ctx context.Context, userID, videoID string) error

	// SetDeleted flips the soft-delete flag on an existing record.
	SetDeleted(ctx context.Context, userID, videoID string, deleted bool) error
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const videoColumns = `video_id, channel_id, title, description, thumbnail,
	channel_title, channel_thumbnail, published_at, is_deleted, first_seen_at, updated_at`

func (r *videoRepository) GetAllByUser(ctx context.Context, userID string) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = $1
		ORDER BY published_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "get videos by user")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) GetByID(ctx context.Context, userID, videoID string) (*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = $1 AND video_id = $2
	`

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, userID, videoID).Scan(
		&video.VideoID,
		&video.ChannelID,
		&video.Title,
		&video.Description,
		&video.Thumbnail,
		&video.ChannelTitle,
		&video.ChannelThumbnail,
		&video.PublishedAt,
		&video.IsDeleted,
		&video.FirstSeenAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) Upsert(ctx context.Context, userID string, video *models.Video) error {
	query := `
		INSERT INTO videos (user_id, video_id, channel_id, title, description, thumbnail,
			channel_title, channel_thumbnail, published_at, is_deleted, first_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    thumbnail = EXCLUDED.thumbnail,
		    channel_title = EXCLUDED.channel_title,
		    channel_thumbnail = EXCLUDED.channel_thumbnail,
		    published_at = EXCLUDED.published_at,
		    is_deleted = EXCLUDED.is_deleted,
		    updated_at = EXCLUDED.updated_at
		RETURNING first_seen_at
	`

	now := time.Now()
	video.UpdatedAt = now
	if video.FirstSeenAt.IsZero() {
		video.FirstSeenAt = now
	}

	err := r.pool.QueryRow(ctx, query,
		userID,
		video.VideoID,
		video.ChannelID,
		video.Title,
		video.Description,
		video.Thumbnail,
		video.ChannelTitle,
		video.ChannelThumbnail,
		video.PublishedAt,
		video.IsDeleted,
		video.FirstSeenAt,
		video.UpdatedAt,
	).Scan(&video.FirstSeenAt)
	if err != nil {
		return db.WrapError(err, "upsert video")
	}

	return nil
}

func (r *videoRepository) Delete(ctx context.Context, userID, videoID string) error {
	query := `DELETE FROM videos WHERE user_id = $1 AND video_id = $2`

	result, err := r.pool.Exec(ctx, query, userID, videoID)
	if err != nil {
		return db.WrapError(err, "delete video")
	}
	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "delete video")
	}

	return nil
}

func (r *videoRepository) SetDeleted(ctx context.Context, userID, videoID string, deleted bool) error {
	query := `
		UPDATE videos
		SET is_deleted = $1, updated_at = $2
		WHERE user_id = $3 AND video_id = $4
	`

	result, err := r.pool.Exec(ctx, query, deleted, time.Now(), userID, videoID)
	if err != nil {
		return db.WrapError(err, "set video deleted flag")
	}
	if result.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "set video deleted flag")
	}

	return nil
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.VideoID,
			&video.ChannelID,
			&video.Title,
			&video.Description,
			&video.Thumbnail,
			&video.ChannelTitle,
			&video.ChannelThumbnail,
			&video.PublishedAt,
			&video.IsDeleted,
			&video.FirstSeenAt,
			&video.UpdatedAt,
		)
		if err != nil {
			return nil, db.WrapError(err, "scan video")
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate videos")
	}

	return videos, nil
}
