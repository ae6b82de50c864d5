// Package service implements the feed pipeline: reconciling the latest
// qualifying upload of each followed channel into per-user video
// records, the view-state mutators over those records, and the cached
// channel-search path.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourfeed/feed-service/internal/cache"
	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/db/repository"
	"github.com/yourfeed/feed-service/internal/events"
	"github.com/yourfeed/feed-service/internal/metrics"
)

const defaultFetchConcurrency = 4

// Selector yields the newest regular-length video of a channel, or nil
// when the channel has none worth showing.
type Selector interface {
	LatestQualifying(ctx context.Context, channelID string) (*models.Video, error)
}

// RefreshReport summarizes one reconciliation run. UpdatedChannels
// lists every channel whose stored record changed (insert, metadata
// update or supersede); FailedChannels lists the ones a caller may want
// to retry.
type RefreshReport struct {
	Channels        int      `json:"channels"`
	Inserted        int      `json:"inserted"`
	Updated         int      `json:"updated"`
	Superseded      int      `json:"superseded"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	UpdatedChannels []string `json:"updatedChannels,omitempty"`
	SkippedChannels []string `json:"skippedChannels,omitempty"`
	FailedChannels  []string `json:"failedChannels,omitempty"`
	Inconsistencies []string `json:"inconsistencies,omitempty"`
	Stale           bool     `json:"stale"`
}

// Reconciler drives feed refreshes. Each run fetches the latest
// qualifying video per followed channel and folds it into the user's
// stored records, preserving user state (deletions, buckets) along the
// way. Runs for the same user are sequenced: a run that has been
// overtaken by a newer one stops persisting and reports itself stale.
type Reconciler struct {
	videos      repository.VideoRepository
	favorites   repository.FavoriteRepository
	selector    Selector
	publisher   events.Publisher
	store       cache.Cache
	concurrency int
	logger      *zap.Logger

	mu     sync.Mutex
	runSeq map[string]uint64
}

// NewReconciler creates a Reconciler. publisher and store may be nil.
func NewReconciler(
	videos repository.VideoRepository,
	favorites repository.FavoriteRepository,
	selector Selector,
	publisher events.Publisher,
	store cache.Cache,
	concurrency int,
	logger *zap.Logger,
) *Reconciler {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		videos:      videos,
		favorites:   favorites,
		selector:    selector,
		publisher:   publisher,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
		runSeq:      make(map[string]uint64),
	}
}

// RefreshFeed reconciles all of the user's followed channels. Channel
// failures are isolated: one channel's API or storage error never
// aborts the rest of the run.
func (r *Reconciler) RefreshFeed(ctx context.Context, userID string) (*RefreshReport, error) {
	start := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	seq := r.beginRun(userID)

	channels, err := r.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	report := &RefreshReport{Channels: len(channels)}
	if len(channels) == 0 {
		return report, nil
	}

	existing, err := r.videos.GetAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tracked videos: %w", err)
	}
	byChannel := make(map[string][]*models.Video, len(existing))
	for _, v := range existing {
		byChannel[v.ChannelID] = append(byChannel[v.ChannelID], v)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.concurrency)
	)
	for _, ch := range channels {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ch *models.Channel) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := r.reconcileChannel(ctx, userID, seq, ch, byChannel[ch.ID])

			mu.Lock()
			defer mu.Unlock()
			switch outcome.decision {
			case decisionInsert:
				report.Inserted++
				report.UpdatedChannels = append(report.UpdatedChannels, ch.ID)
			case decisionUpsert:
				report.Updated++
				report.UpdatedChannels = append(report.UpdatedChannels, ch.ID)
			case decisionSupersede:
				report.Superseded++
				report.UpdatedChannels = append(report.UpdatedChannels, ch.ID)
			case decisionKeep, decisionSkip, decisionStale:
				report.Skipped++
				report.SkippedChannels = append(report.SkippedChannels, ch.ID)
			case decisionFail:
				report.Failed++
				report.FailedChannels = append(report.FailedChannels, ch.ID)
			}
			if outcome.decision == decisionStale {
				report.Stale = true
			}
			if outcome.inconsistency != "" {
				report.Inconsistencies = append(report.Inconsistencies, outcome.inconsistency)
			}
		}(ch)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	r.invalidateFeedCache(ctx, channels)

	r.logger.Info("feed refresh finished",
		zap.String("user_id", userID),
		zap.Int("channels", report.Channels),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("superseded", report.Superseded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("stale", report.Stale),
		zap.Duration("elapsed", time.Since(start)))

	return report, nil
}

const (
	decisionInsert    = "insert"
	decisionUpsert    = "upsert"
	decisionSupersede = "supersede"
	decisionKeep      = "keep"
	decisionSkip      = "skip"
	decisionStale     = "stale"
	decisionFail      = "fail"
)

type channelOutcome struct {
	decision      string
	inconsistency string
}

func (r *Reconciler) reconcileChannel(ctx context.Context, userID string, seq uint64, ch *models.Channel, prior []*models.Video) channelOutcome {
	latest, err := r.selector.LatestQualifying(ctx, ch.ID)
	if err != nil {
		metrics.RefreshFailures.Inc()
		r.logger.Warn("channel fetch failed",
			zap.String("user_id", userID),
			zap.String("channel_id", ch.ID),
			zap.Error(err))
		return r.outcome(decisionFail, "")
	}
	if latest == nil {
		// Nothing qualifying upstream; stored records stand.
		return r.outcome(decisionSkip, "")
	}
	latest.ChannelThumbnail = ch.Thumbnail
	if latest.ChannelTitle == "" {
		latest.ChannelTitle = ch.Title
	}

	current := currentRecord(prior)

	if current != nil && current.VideoID == latest.VideoID {
		if current.IsDeleted {
			// The user deleted this exact video; re-surfacing it
			// would undo their choice.
			return r.outcome(decisionKeep, "")
		}
		if !r.runIsCurrent(userID, seq) {
			return r.outcome(decisionStale, "")
		}
		latest.FirstSeenAt = current.FirstSeenAt
		if err := r.videos.Upsert(ctx, userID, latest); err != nil {
			metrics.RefreshFailures.Inc()
			r.logger.Error("metadata upsert failed",
				zap.String("user_id", userID),
				zap.String("video_id", latest.VideoID),
				zap.Error(err))
			return r.outcome(decisionFail, "")
		}
		r.publish(ctx, events.New(events.TypeVideoUpdated, userID, ch.ID, latest.VideoID))
		return r.outcome(decisionUpsert, "")
	}

	if !r.runIsCurrent(userID, seq) {
		return r.outcome(decisionStale, "")
	}

	if len(prior) == 0 {
		if err := r.videos.Upsert(ctx, userID, latest); err != nil {
			metrics.RefreshFailures.Inc()
			r.logger.Error("video insert failed",
				zap.String("user_id", userID),
				zap.String("video_id", latest.VideoID),
				zap.Error(err))
			return r.outcome(decisionFail, "")
		}
		r.publish(ctx, events.New(events.TypeVideoAdded, userID, ch.ID, latest.VideoID))
		return r.outcome(decisionInsert, "")
	}

	// A newer upload replaces whatever the channel had, deleted or
	// not. The old record goes away entirely so its video id can
	// reappear later as a fresh insert.
	for _, old := range prior {
		if err := r.videos.Delete(ctx, userID, old.VideoID); err != nil && !db.IsNotFound(err) {
			metrics.RefreshFailures.Inc()
			r.logger.Error("supersede delete failed",
				zap.String("user_id", userID),
				zap.String("video_id", old.VideoID),
				zap.Error(err))
			return r.outcome(decisionFail, "")
		}
	}
	if err := r.videos.Upsert(ctx, userID, latest); err != nil {
		metrics.RefreshFailures.Inc()
		msg := fmt.Sprintf("channel %s: prior record removed but insert of %s failed: %v", ch.ID, latest.VideoID, err)
		r.logger.Error("supersede insert failed",
			zap.String("user_id", userID),
			zap.String("channel_id", ch.ID),
			zap.String("video_id", latest.VideoID),
			zap.Error(err))
		return r.outcome(decisionFail, msg)
	}
	r.publish(ctx, events.New(events.TypeVideoSuperseded, userID, ch.ID, latest.VideoID))
	return r.outcome(decisionSupersede, "")
}

// currentRecord returns the channel's live record, falling back to the
// most recently updated one when everything is soft-deleted.
func currentRecord(prior []*models.Video) *models.Video {
	var newest *models.Video
	for _, v := range prior {
		if !v.IsDeleted {
			return v
		}
		if newest == nil || v.UpdatedAt.After(newest.UpdatedAt) {
			newest = v
		}
	}
	return newest
}

func (r *Reconciler) outcome(decision, inconsistency string) channelOutcome {
	metrics.ReconcileDecisions.WithLabelValues(decision).Inc()
	return channelOutcome{decision: decision, inconsistency: inconsistency}
}

func (r *Reconciler) publish(ctx context.Context, event events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("event publish failed",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func (r *Reconciler) beginRun(userID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runSeq[userID]++
	return r.runSeq[userID]
}

func (r *Reconciler) runIsCurrent(userID string, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runSeq[userID] == seq
}

func (r *Reconciler) invalidateFeedCache(ctx context.Context, channels []*models.Channel) {
	if r.store == nil {
		return
	}
	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
	}
	if err := r.store.Delete(ctx, cache.LatestVideosKey(ids)); err != nil {
		r.logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}
