package youtube

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/db/models"
)

const (
	// DefaultMinDurationSeconds excludes clips at or under three
	// minutes. A 181-second video qualifies; a 180-second one does not.
	DefaultMinDurationSeconds = 180

	// DefaultScanDepth is how many recent uploads are examined before
	// giving up on a channel for this cycle.
	DefaultScanDepth = 10
)

// Selector picks a channel's latest qualifying video: the most recent
// upload that is not a Short and exceeds the minimum duration.
type Selector struct {
	source      Source
	minDuration int
	scanDepth   int64
	logger      *zap.Logger
}

// NewSelector creates a Selector over the given source. Zero values for
// minDurationSeconds and scanDepth fall back to the defaults.
func NewSelector(source Source, minDurationSeconds int, scanDepth int64, logger *zap.Logger) *Selector {
	if minDurationSeconds <= 0 {
		minDurationSeconds = DefaultMinDurationSeconds
	}
	if scanDepth <= 0 {
		scanDepth = DefaultScanDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		source:      source,
		minDuration: minDurationSeconds,
		scanDepth:   scanDepth,
		logger:      logger,
	}
}

// LatestQualifying returns the first qualifying upload for the channel,
// or (nil, nil) when none of the recent uploads qualify or the channel
// cannot be evaluated this cycle. A nil video is "no new video", never a
// fetch failure. Only context cancellation is surfaced as an error.
func (s *Selector) LatestQualifying(ctx context.Context, channelID string) (*models.Video, error) {
	playlistID, err := s.source.UploadsPlaylistID(ctx, channelID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("uploads playlist unavailable",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return nil, nil
	}

	uploads, err := s.source.RecentUploads(ctx, playlistID, s.scanDepth)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("recent uploads lookup failed",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return nil, nil
	}

	for _, upload := range uploads {
		if IsShort(upload) {
			s.logger.Debug("skipping short",
				zap.String("channel_id", channelID),
				zap.String("video_id", upload.VideoID),
			)
			continue
		}

		// A single bad candidate lookup must not abort the channel.
		iso, err := s.source.VideoDuration(ctx, upload.VideoID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("duration lookup failed, skipping candidate",
				zap.String("video_id", upload.VideoID),
				zap.Error(err),
			)
			continue
		}
		seconds, err := ParseDuration(iso)
		if err != nil {
			s.logger.Warn("unparseable duration, skipping candidate",
				zap.String("video_id", upload.VideoID),
				zap.String("duration", iso),
			)
			continue
		}
		if seconds <= s.minDuration {
			continue
		}

		return uploadToVideo(upload), nil
	}

	return nil, nil
}

// IsShort applies the best-effort Short heuristic: marker substrings in
// title or description, or a /shorts/ segment in any thumbnail URL.
// YouTube exposes no authoritative flag for this.
func IsShort(u Upload) bool {
	title := strings.ToLower(u.Title)
	description := strings.ToLower(u.Description)
	if strings.Contains(title, "shorts") || strings.Contains(title, "#shorts") ||
		strings.Contains(description, "shorts") || strings.Contains(description, "#shorts") {
		return true
	}
	for _, url := range []string{u.ThumbnailDefault, u.ThumbnailMedium, u.ThumbnailHigh} {
		if strings.Contains(url, "/shorts/") {
			return true
		}
	}
	return false
}

func uploadToVideo(u Upload) *models.Video {
	video := models.NewVideo(u.VideoID, u.ChannelID, u.Title, u.Description, bestUploadThumbnail(u), u.ChannelTitle, u.PublishedAt)
	if video.PublishedAt.IsZero() {
		video.PublishedAt = time.Now()
	}
	return video
}

func bestUploadThumbnail(u Upload) string {
	switch {
	case u.ThumbnailHigh != "":
		return u.ThumbnailHigh
	case u.ThumbnailMedium != "":
		return u.ThumbnailMedium
	default:
		return u.ThumbnailDefault
	}
}
