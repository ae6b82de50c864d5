package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/apperrors"
	"github.com/yourfeed/feed-service/internal/cache"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/metrics"
	"github.com/yourfeed/feed-service/internal/youtube"
)

// ChannelSearch serves channel lookups through the TTL cache so
// repeated queries stay off the YouTube quota.
type ChannelSearch struct {
	source youtube.Source
	store  cache.Cache
	logger *zap.Logger
}

// NewChannelSearch creates a ChannelSearch.
func NewChannelSearch(source youtube.Source, store cache.Cache, logger *zap.Logger) *ChannelSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelSearch{source: source, store: store, logger: logger}
}

// Search finds channels matching the query. Results are cached per
// normalized query.
func (s *ChannelSearch) Search(ctx context.Context, query string) ([]*models.Channel, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "search query must not be empty")
	}

	key := cache.SearchKey(query)
	if cached, ok := cache.GetJSON[[]*models.Channel](ctx, s.store, key); ok {
		metrics.CacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheHits.WithLabelValues("miss").Inc()

	channels, err := s.source.SearchChannels(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.store, key, channels, cache.TTLSearchResults); err != nil {
		s.logger.Warn("search cache write failed", zap.String("query", query), zap.Error(err))
	}
	return channels, nil
}

// Details returns channel metadata by id, cached per channel.
func (s *ChannelSearch) Details(ctx context.Context, channelID string) (*models.Channel, error) {
	if channelID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "channel id must not be empty")
	}

	key := cache.ChannelKey(channelID)
	if cached, ok := cache.GetJSON[*models.Channel](ctx, s.store, key); ok {
		metrics.CacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheHits.WithLabelValues("miss").Inc()

	channel, err := s.source.ChannelDetails(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.store, key, channel, cache.TTLChannelDetails); err != nil {
		s.logger.Warn("channel cache write failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	return channel, nil
}
