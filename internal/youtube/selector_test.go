package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourfeed/feed-service/internal/db/models"
)

// fakeSource serves canned uploads plus per-video durations.
type fakeSource struct {
	playlistID  string
	playlistErr error
	uploads     []Upload
	uploadsErr  error
	durations   map[string]string
	durationErr map[string]error
}

func (f *fakeSource) SearchChannels(ctx context.Context, query string) ([]*models.Channel, error) {
	return nil, nil
}

func (f *fakeSource) ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error) {
	return nil, nil
}

func (f *fakeSource) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if f.playlistErr != nil {
		return "", f.playlistErr
	}
	return f.playlistID, nil
}

func (f *fakeSource) RecentUploads(ctx context.Context, playlistID string, max int64) ([]Upload, error) {
	if f.uploadsErr != nil {
		return nil, f.uploadsErr
	}
	if int64(len(f.uploads)) > max {
		return f.uploads[:max], nil
	}
	return f.uploads, nil
}

func (f *fakeSource) VideoDuration(ctx context.Context, videoID string) (string, error) {
	if err, ok := f.durationErr[videoID]; ok {
		return "", err
	}
	return f.durations[videoID], nil
}

func upload(id, title string) Upload {
	return Upload{
		VideoID:      id,
		Title:        title,
		ChannelID:    "UC1",
		ChannelTitle: "Channel One",
		PublishedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLatestQualifyingSkipsShortsAndPicksFirstRegular(t *testing.T) {
	src := &fakeSource{
		playlistID: "UU1",
		uploads: []Upload{
			upload("v1", "new #shorts clip"),
			upload("v2", "quick shorts compilation"),
			upload("v3", "teaser"),
			upload("v4", "full length episode"),
		},
		durations: map[string]string{
			"v3": "PT45S",   // regular title but too brief
			"v4": "PT12M3S", // first real candidate
		},
	}
	s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	video, err := s.LatestQualifying(context.Background(), "UC1")
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "v4", video.VideoID)
	assert.Equal(t, "UC1", video.ChannelID)
	assert.False(t, video.IsDeleted)
}

func TestLatestQualifyingDurationBoundary(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		wantID   string
	}{
		{name: "exactly the minimum is excluded", duration: "PT3M", wantID: ""},
		{name: "one second over qualifies", duration: "PT3M1S", wantID: "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				playlistID: "UU1",
				uploads:    []Upload{upload("v1", "episode")},
				durations:  map[string]string{"v1": tt.duration},
			}
			s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

			video, err := s.LatestQualifying(context.Background(), "UC1")
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, video)
			} else {
				require.NotNil(t, video)
				assert.Equal(t, tt.wantID, video.VideoID)
			}
		})
	}
}

func TestLatestQualifyingNoQualifier(t *testing.T) {
	src := &fakeSource{
		playlistID: "UU1",
		uploads: []Upload{
			upload("v1", "#shorts one"),
			upload("v2", "#shorts two"),
		},
	}
	s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	video, err := s.LatestQualifying(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Nil(t, video)
}

func TestLatestQualifyingChannelFailureIsNotAnError(t *testing.T) {
	src := &fakeSource{playlistErr: errors.New("quota exceeded")}
	s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	video, err := s.LatestQualifying(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Nil(t, video)

	src = &fakeSource{playlistID: "UU1", uploadsErr: errors.New("boom")}
	s = NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	video, err = s.LatestQualifying(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Nil(t, video)
}

func TestLatestQualifyingSkipsBrokenCandidate(t *testing.T) {
	src := &fakeSource{
		playlistID: "UU1",
		uploads: []Upload{
			upload("v1", "episode one"),
			upload("v2", "episode two"),
		},
		durations:   map[string]string{"v2": "PT10M"},
		durationErr: map[string]error{"v1": errors.New("not found")},
	}
	s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	video, err := s.LatestQualifying(context.Background(), "UC1")
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "v2", video.VideoID)
}

func TestLatestQualifyingContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{playlistErr: ctx.Err()}
	s := NewSelector(src, DefaultMinDurationSeconds, DefaultScanDepth, nil)

	_, err := s.LatestQualifying(ctx, "UC1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsShort(t *testing.T) {
	tests := []struct {
		name string
		u    Upload
		want bool
	}{
		{name: "shorts in title", u: Upload{Title: "My SHORTS reel"}, want: true},
		{name: "hashtag in description", u: Upload{Title: "clip", Description: "subscribe! #shorts"}, want: true},
		{name: "shorts path in thumbnail", u: Upload{Title: "clip", ThumbnailHigh: "https://i.ytimg.com/shorts/abc/hq.jpg"}, want: true},
		{name: "regular video", u: Upload{Title: "Weekly review", Description: "long form"}, want: false},
		{name: "word containing shorts", u: Upload{Title: "best shortstop plays"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsShort(tt.u))
		})
	}
}
