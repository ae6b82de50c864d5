package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/db/testutil"
)

func TestFlagRepository_SetBucket(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videoRepo := NewVideoRepository(td.Pool)
	repo := NewFlagRepository(td.Pool)
	ctx := context.Background()

	t.Run("places video in bucket", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video123", "UC123")))

		err := repo.SetBucket(ctx, "user-1", "video123", models.BucketWatched)
		require.NoError(t, err)

		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.BucketWatched, buckets["video123"])
	})

	t.Run("reassigning displaces previous bucket", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video123", "UC123")))
		require.NoError(t, repo.SetBucket(ctx, "user-1", "video123", models.BucketWatched))

		err := repo.SetBucket(ctx, "user-1", "video123", models.BucketLater)
		require.NoError(t, err)

		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.Equal(t, models.BucketLater, buckets["video123"])
	})

	t.Run("rejects flag for untracked video", func(t *testing.T) {
		td.TruncateTables(t)

		err := repo.SetBucket(ctx, "user-1", "missing", models.BucketWatched)
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}

func TestFlagRepository_Buckets(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videoRepo := NewVideoRepository(td.Pool)
	repo := NewFlagRepository(td.Pool)
	ctx := context.Background()

	t.Run("returns all flags for the user", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video-a", "UC1")))
		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video-b", "UC2")))
		require.NoError(t, repo.SetBucket(ctx, "user-1", "video-a", models.BucketWatched))
		require.NoError(t, repo.SetBucket(ctx, "user-1", "video-b", models.BucketLater))

		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]models.Bucket{
			"video-a": models.BucketWatched,
			"video-b": models.BucketLater,
		}, buckets)
	})

	t.Run("returns empty map when nothing is flagged", func(t *testing.T) {
		td.TruncateTables(t)

		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, buckets)
	})
}

func TestFlagRepository_ClearBucket(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videoRepo := NewVideoRepository(td.Pool)
	repo := NewFlagRepository(td.Pool)
	ctx := context.Background()

	t.Run("removes the flag whatever the bucket", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video123", "UC123")))
		require.NoError(t, repo.SetBucket(ctx, "user-1", "video123", models.BucketLater))

		err := repo.ClearBucket(ctx, "user-1", "video123")
		require.NoError(t, err)

		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, buckets)
	})

	t.Run("clearing an unflagged video is a no-op", func(t *testing.T) {
		td.TruncateTables(t)

		err := repo.ClearBucket(ctx, "user-1", "missing")
		assert.NoError(t, err)
	})
}

func TestFlagRepository_RemoveFromBucket(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videoRepo := NewVideoRepository(td.Pool)
	repo := NewFlagRepository(td.Pool)
	ctx := context.Background()

	t.Run("removes only from the named bucket", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video123", "UC123")))
		require.NoError(t, repo.SetBucket(ctx, "user-1", "video123", models.BucketWatched))

		// Wrong bucket: flag stays.
		require.NoError(t, repo.RemoveFromBucket(ctx, "user-1", "video123", models.BucketLater))
		buckets, err := repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.BucketWatched, buckets["video123"])

		require.NoError(t, repo.RemoveFromBucket(ctx, "user-1", "video123", models.BucketWatched))
		buckets, err = repo.Buckets(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, buckets)
	})
}

func TestFlagRepository_CascadeOnVideoDelete(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videoRepo := NewVideoRepository(td.Pool)
	repo := NewFlagRepository(td.Pool)
	ctx := context.Background()

	td.TruncateTables(t)

	require.NoError(t, videoRepo.Upsert(ctx, "user-1", trackedVideo("video123", "UC123")))
	require.NoError(t, repo.SetBucket(ctx, "user-1", "video123", models.BucketWatched))

	require.NoError(t, videoRepo.Delete(ctx, "user-1", "video123"))

	buckets, err := repo.Buckets(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, buckets)
}
