// Package cache provides a TTL-bounded key/value layer shielding the
// rate-limited YouTube API from redundant calls. Two backends exist: an
// in-process map and Redis for deployments that share a cache across
// replicas.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Freshness windows per entry class.
const (
	TTLSearchResults  = 10 * time.Minute
	TTLChannelDetails = 1 * time.Hour
	TTLLatestVideos   = 15 * time.Minute
)

// Cache is a key/value store with per-entry expiration. Get reports a
// miss for absent or expired entries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// GetJSON fetches and unmarshals a cached value. Decode failures are
// treated as misses so a stale schema never poisons the caller.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// SetJSON marshals and stores a value with the given TTL.
func SetJSON[T any](ctx context.Context, c Cache, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// SearchKey builds the cache key for a channel search query.
func SearchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

// ChannelKey builds the cache key for channel details.
func ChannelKey(channelID string) string {
	return "channel:" + channelID
}

// LatestVideosKey builds an order-independent key for a latest-videos
// fetch across a set of channels.
func LatestVideosKey(channelIDs []string) string {
	ids := make([]string, len(channelIDs))
	copy(ids, channelIDs)
	sort.Strings(ids)
	return "latest:" + strings.Join(ids, ",")
}
