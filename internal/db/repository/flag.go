package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
)

// FlagRepository manages watched/later bucket membership. One row per
// (user, video); the primary key makes simultaneous membership in both
// buckets unrepresentable.
type FlagRepository interface {
	// Buckets returns the bucket for every flagged video of the user.
	Buckets(ctx context.Context, userID string) (map[string]models.Bucket, error)

	// SetBucket places the video in the given bucket, displacing any
	// previous bucket assignment.
	SetBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error

	// ClearBucket removes the video from whichever bucket it is in.
	ClearBucket(ctx context.Context, userID, videoID string) error

	// RemoveFromBucket removes the video only if it is in that bucket.
	RemoveFromBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error
}

type flagRepository struct {
	pool *pgxpool.Pool
}

// NewFlagRepository creates a FlagRepository.
func NewFlagRepository(pool *pgxpool.Pool) FlagRepository {
	return &flagRepository{pool: pool}
}

func (r *flagRepository) Buckets(ctx context.Context, userID string) (map[string]models.Bucket, error) {
	query := `SELECT video_id, bucket FROM video_flags WHERE user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "get video buckets")
	}
	defer rows.Close()

	buckets := make(map[string]models.Bucket)
	for rows.Next() {
		var videoID string
		var bucket models.Bucket
		if err := rows.Scan(&videoID, &bucket); err != nil {
			return nil, db.WrapError(err, "scan video bucket")
		}
		buckets[videoID] = bucket
	}
	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate video buckets")
	}

	return buckets, nil
}

func (r *flagRepository) SetBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error {
	query := `
		INSERT INTO video_flags (user_id, video_id, bucket)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET bucket = EXCLUDED.bucket, created_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, userID, videoID, bucket); err != nil {
		return db.WrapError(err, "set video bucket")
	}
	return nil
}

func (r *flagRepository) ClearBucket(ctx context.Context, userID, videoID string) error {
	query := `DELETE FROM video_flags WHERE user_id = $1 AND video_id = $2`

	if _, err := r.pool.Exec(ctx, query, userID, videoID); err != nil {
		return db.WrapError(err, "clear video bucket")
	}
	return nil
}

func (r *flagRepository) RemoveFromBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error {
	query := `DELETE FROM video_flags WHERE user_id = $1 AND video_id = $2 AND bucket = $3`

	if _, err := r.pool.Exec(ctx, query, userID, videoID, bucket); err != nil {
		return db.WrapError(err, "remove video from bucket")
	}
	return nil
}
