package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/events"
)

// FeedItem is a tracked video together with its bucket membership.
type FeedItem struct {
	*models.Video
	Bucket models.Bucket `json:"bucket,omitempty"`
}

// ViewState applies user actions to tracked videos: bucket membership
// (watched / watch-later) and soft deletion. A video sits in at most
// one bucket; assigning one replaces the other.
type ViewState struct {
	videos    repository.VideoRepository
	flags     repository.FlagRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewViewState creates a ViewState service. publisher may be nil.
func NewViewState(videos repository.VideoRepository, flags repository.FlagRepository, publisher events.Publisher, logger *zap.Logger) *ViewState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewState{videos: videos, flags: flags, publisher: publisher, logger: logger}
}

// Feed returns the user's videos newest first. bucket narrows the
// result: "watched", "later", "deleted", or "" for every visible video.
func (s *ViewState) Feed(ctx context.Context, userID string, bucket string) ([]*FeedItem, error) {
	switch bucket {
	case "", "deleted", string(models.BucketWatched), string(models.BucketLater):
	default:
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unknown bucket %q", bucket))
	}

	videos, err := s.videos.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	buckets, err := s.flags.Buckets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load buckets: %w", err)
	}

	items := make([]*FeedItem, 0, len(videos))
	for _, v := range videos {
		b := buckets[v.VideoID]
		switch bucket {
		case "deleted":
			if !v.IsDeleted {
				continue
			}
		case "":
			if v.IsDeleted {
				continue
			}
		default:
			if v.IsDeleted || string(b) != bucket {
				continue
			}
		}
		items = append(items, &FeedItem{Video: v, Bucket: b})
	}
	return items, nil
}

// MarkWatched puts the video in the watched bucket. A soft-deleted
// video becomes visible again first; watching something is incompatible
// with having deleted it.
func (s *ViewState) MarkWatched(ctx context.Context, userID, videoID string) error {
	return s.assignBucket(ctx, userID, videoID, models.BucketWatched)
}

// MarkLater puts the video in the watch-later bucket, restoring it if
// soft-deleted.
func (s *ViewState) MarkLater(ctx context.Context, userID, videoID string) error {
	return s.assignBucket(ctx, userID, videoID, models.BucketLater)
}

func (s *ViewState) assignBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error {
	video, err := s.videos.GetByID(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if video.IsDeleted {
		if err := s.videos.SetDeleted(ctx, userID, videoID, false); err != nil {
			return err
		}
	}
	if err := s.flags.SetBucket(ctx, userID, videoID, bucket); err != nil {
		return err
	}
	s.notify(ctx, userID, video.ChannelID, videoID)
	return nil
}

// MarkDeleted soft-deletes the video and drops its bucket membership.
// Deletion is remembered: the reconciler will not resurface this video
// id.
func (s *ViewState) MarkDeleted(ctx context.Context, userID, videoID string) error {
	video, err := s.videos.GetByID(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if err := s.flags.ClearBucket(ctx, userID, videoID); err != nil && !db.IsNotFound(err) {
		return err
	}
	if err := s.videos.SetDeleted(ctx, userID, videoID, true); err != nil {
		return err
	}
	s.notify(ctx, userID, video.ChannelID, videoID)
	return nil
}

// RestoreDeleted clears the soft-delete flag, returning the video to
// the visible feed with no bucket.
func (s *ViewState) RestoreDeleted(ctx context.Context, userID, videoID string) error {
	video, err := s.videos.GetByID(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if !video.IsDeleted {
		return nil
	}
	if err := s.videos.SetDeleted(ctx, userID, videoID, false); err != nil {
		return err
	}
	s.notify(ctx, userID, video.ChannelID, videoID)
	return nil
}

// RemoveFromWatched takes the video out of the watched bucket. The
// video stays in the feed.
func (s *ViewState) RemoveFromWatched(ctx context.Context, userID, videoID string) error {
	return s.removeFromBucket(ctx, userID, videoID, models.BucketWatched)
}

// RemoveFromLater takes the video out of the watch-later bucket.
func (s *ViewState) RemoveFromLater(ctx context.Context, userID, videoID string) error {
	return s.removeFromBucket(ctx, userID, videoID, models.BucketLater)
}

func (s *ViewState) removeFromBucket(ctx context.Context, userID, videoID string, bucket models.Bucket) error {
	video, err := s.videos.GetByID(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if err := s.flags.RemoveFromBucket(ctx, userID, videoID, bucket); err != nil {
		if db.IsNotFound(err) {
			// Not in the bucket; removal is idempotent.
			return nil
		}
		return err
	}
	s.notify(ctx, userID, video.ChannelID, videoID)
	return nil
}

func (s *ViewState) notify(ctx context.Context, userID, channelID, videoID string) {
	if s.publisher == nil {
		return
	}
	event := events.New(events.TypeVideoStateChanged, userID, channelID, videoID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
