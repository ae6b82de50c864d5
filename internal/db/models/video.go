package models

import "time"

// Video represents the latest qualifying video tracked for one of a
// user's followed channels. At most one non-deleted Video exists per
// channel per user; the reconciler maintains that invariant.
type Video struct {
	VideoID          string    `db:"video_id" json:"id"`
	ChannelID        string    `db:"channel_id" json:"channelId"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	Thumbnail        string    `db:"thumbnail" json:"thumbnail"`
	ChannelTitle     string    `db:"channel_title" json:"channelTitle"`
	ChannelThumbnail string    `db:"channel_thumbnail" json:"channelThumbnail"`
	PublishedAt      time.Time `db:"published_at" json:"publishedAt"`
	IsDeleted        bool      `db:"is_deleted" json:"is_deleted"`
	FirstSeenAt      time.Time `db:"first_seen_at" json:"-"`
	UpdatedAt        time.Time `db:"updated_at" json:"-"`
}

// NewVideo creates a visible Video for the given channel.
func NewVideo(videoID, channelID, title, description, thumbnail, channelTitle string, publishedAt time.Time) *Video {
	now := time.Now()
	return &Video{
		VideoID:      videoID,
		ChannelID:    channelID,
		Title:        title,
		Description:  description,
		Thumbnail:    thumbnail,
		ChannelTitle: channelTitle,
		PublishedAt:  publishedAt,
		IsDeleted:    false,
		FirstSeenAt:  now,
		UpdatedAt:    now,
	}
}

// UpdateMetadata refreshes upstream-owned fields without touching the
// deleted flag.
func (v *Video) UpdateMetadata(title, description, thumbnail, channelTitle string) {
	v.Title = title
	v.Description = description
	v.Thumbnail = thumbnail
	v.ChannelTitle = channelTitle
	v.UpdatedAt = time.Now()
}

// Bucket is the user-assigned viewing bucket for a video. A video is a
// member of at most one bucket; the video_flags primary key enforces it.
type Bucket string

const (
	BucketWatched Bucket = "watched"
	BucketLater   Bucket = "later"
)

// Valid reports whether b is a known bucket value.
func (b Bucket) Valid() bool {
	return b == BucketWatched || b == BucketLater
}
