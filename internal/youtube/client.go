// Package youtube wraps the YouTube Data API v3 surface the feed
// pipeline consumes: channel search, uploads-playlist resolution,
// recent-upload listing and per-video duration lookup.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/metrics"
	"github.com/yourfeed/feed-service/internal/retry"
)

const searchMaxResults = 10

// ErrNoUploads is returned when a channel has no uploads playlist.
var ErrNoUploads = errors.New("channel has no uploads playlist")

// Upload is one entry of a channel's uploads playlist, in the shape the
// selector filters on.
type Upload struct {
	VideoID          string
	Title            string
	Description      string
	ChannelID        string
	ChannelTitle     string
	PublishedAt      time.Time
	ThumbnailDefault string
	ThumbnailMedium  string
	ThumbnailHigh    string
}

// Source is the external video-hosting query surface. Pure
// request/response, no state.
type Source interface {
	SearchChannels(ctx context.Context, query string) ([]*models.Channel, error)
	ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error)
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)
	RecentUploads(ctx context.Context, playlistID string, max int64) ([]Upload, error)
	VideoDuration(ctx context.Context, videoID string) (string, error)
}

// Client implements Source against the real YouTube Data API.
type Client struct {
	service  *youtube.Service
	retryCfg retry.Config
}

// NewClient creates a YouTube API client authenticated by API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create YouTube service: %w", err)
	}
	return &Client{service: service, retryCfg: retry.DefaultConfig()}, nil
}

// SearchChannels returns up to 10 channels matching the query. A second
// channels.list pass upgrades thumbnails to the channel's own artwork;
// when that pass fails the search snippets are used as-is.
func (c *Client) SearchChannels(ctx context.Context, query string) ([]*models.Channel, error) {
	var response *youtube.SearchListResponse
	err := c.do(ctx, "search.list", func(ctx context.Context) error {
		var err error
		response, err = c.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("channel").
			MaxResults(searchMaxResults).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	channels := make([]*models.Channel, 0, len(response.Items))
	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.ChannelId == "" || item.Snippet == nil {
			continue
		}
		ids = append(ids, item.Id.ChannelId)
		channels = append(channels, &models.Channel{
			ID:          item.Id.ChannelId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Thumbnail:   bestSearchThumbnail(item.Snippet.Thumbnails),
		})
	}
	if len(channels) == 0 {
		return nil, nil
	}

	details, err := c.channelSnippets(ctx, ids)
	if err != nil {
		// Best effort: search snippets carry lower-resolution artwork
		// but are good enough to render.
		return channels, nil
	}
	for _, ch := range channels {
		if d, ok := details[ch.ID]; ok {
			if d.Thumbnail != "" {
				ch.Thumbnail = d.Thumbnail
			}
			if d.Description != "" {
				ch.Description = d.Description
			}
		}
	}
	return channels, nil
}

// ChannelDetails returns the channel's title, description and artwork.
func (c *Client) ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error) {
	details, err := c.channelSnippets(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	ch, ok := details[channelID]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "channel not found").WithDetail("channel_id", channelID)
	}
	return ch, nil
}

func (c *Client) channelSnippets(ctx context.Context, channelIDs []string) (map[string]*models.Channel, error) {
	var response *youtube.ChannelListResponse
	err := c.do(ctx, "channels.list", func(ctx context.Context) error {
		var err error
		response, err = c.service.Channels.List([]string{"snippet"}).
			Id(channelIDs...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	details := make(map[string]*models.Channel, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil {
			continue
		}
		details[item.Id] = &models.Channel{
			ID:          item.Id,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Thumbnail:   bestChannelThumbnail(item.Snippet.Thumbnails),
		}
	}
	return details, nil
}

// UploadsPlaylistID resolves the channel's uploads playlist.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var response *youtube.ChannelListResponse
	err := c.do(ctx, "channels.list", func(ctx context.Context) error {
		var err error
		response, err = c.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(response.Items) == 0 ||
		response.Items[0].ContentDetails == nil ||
		response.Items[0].ContentDetails.RelatedPlaylists == nil ||
		response.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("channel %s: %w", channelID, ErrNoUploads)
	}
	return response.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// RecentUploads lists the playlist's most recent entries, newest first,
// as returned by the API. One page only.
func (c *Client) RecentUploads(ctx context.Context, playlistID string, max int64) ([]Upload, error) {
	var response *youtube.PlaylistItemListResponse
	err := c.do(ctx, "playlistItems.list", func(ctx context.Context) error {
		var err error
		response, err = c.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(max).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	uploads := make([]Upload, 0, len(response.Items))
	for _, item := range response.Items {
		snippet := item.Snippet
		if snippet == nil || snippet.ResourceId == nil || snippet.ResourceId.VideoId == "" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, snippet.PublishedAt)
		upload := Upload{
			VideoID:      snippet.ResourceId.VideoId,
			Title:        snippet.Title,
			Description:  snippet.Description,
			ChannelID:    snippet.ChannelId,
			ChannelTitle: snippet.ChannelTitle,
			PublishedAt:  publishedAt,
		}
		if snippet.Thumbnails != nil {
			if snippet.Thumbnails.Default != nil {
				upload.ThumbnailDefault = snippet.Thumbnails.Default.Url
			}
			if snippet.Thumbnails.Medium != nil {
				upload.ThumbnailMedium = snippet.Thumbnails.Medium.Url
			}
			if snippet.Thumbnails.High != nil {
				upload.ThumbnailHigh = snippet.Thumbnails.High.Url
			}
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// VideoDuration returns the video's ISO-8601 duration string.
func (c *Client) VideoDuration(ctx context.Context, videoID string) (string, error) {
	var response *youtube.VideoListResponse
	err := c.do(ctx, "videos.list", func(ctx context.Context) error {
		var err error
		response, err = c.service.Videos.List([]string{"contentDetails"}).
			Id(videoID).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(response.Items) == 0 || response.Items[0].ContentDetails == nil {
		return "", apperrors.New(apperrors.CodeNotFound, "video details not found").WithDetail("video_id", videoID)
	}
	return response.Items[0].ContentDetails.Duration, nil
}

// do runs one API call with retry on transient failures and records the
// outcome metric.
func (c *Client) do(ctx context.Context, endpoint string, call func(context.Context) error) error {
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		if err := call(ctx); err != nil {
			return classify(err)
		}
		return nil
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.YouTubeAPIRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

// classify maps googleapi failures onto the AppError taxonomy so the
// retry layer can tell transient from permanent.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		code := apperrors.FromHTTPStatus(gerr.Code)
		// Quota exhaustion arrives as 403 with a rate-limit reason.
		if gerr.Code == 403 {
			for _, e := range gerr.Errors {
				if e.Reason == "quotaExceeded" || e.Reason == "rateLimitExceeded" {
					code = apperrors.CodeRateLimit
				}
			}
		}
		return apperrors.Wrap(code, "youtube api request failed", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeNetwork, "youtube api unreachable", err)
}

func bestSearchThumbnail(t *youtube.ThumbnailDetails) string {
	return bestChannelThumbnail(t)
}

func bestChannelThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	switch {
	case t.High != nil && t.High.Url != "":
		return t.High.Url
	case t.Medium != nil && t.Medium.Url != "":
		return t.Medium.Url
	case t.Default != nil && t.Default.Url != "":
		return t.Default.Url
	}
	return ""
}
