package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourfeed/feed-service/internal/db"
	"github.com/yourfeed/feed-service/internal/db/models"
	"github.com/yourfeed/feed-service/internal/events"
)

// In-memory repositories; enough behavior to exercise the decision
// table without a database.

type fakeVideoRepo struct {
	mu        sync.Mutex
	videos    map[string]*models.Video // keyed by video id, single user
	upsertErr error
	deleteErr error
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[string]*models.Video)}
}

func (r *fakeVideoRepo) GetAllByUser(ctx context.Context, userID string) ([]*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		clone := *v
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeVideoRepo) GetByID(ctx context.Context, userID, videoID string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, db.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *fakeVideoRepo) Upsert(ctx context.Context, userID string, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	clone := *video
	if existing, ok := r.videos[video.VideoID]; ok {
		clone.FirstSeenAt = existing.FirstSeenAt
	}
	r.videos[video.VideoID] = &clone
	return nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, userID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.videos[videoID]; !ok {
		return db.ErrNotFound
	}
	delete(r.videos, videoID)
	return nil
}

func (r *fakeVideoRepo) SetDeleted(ctx context.Context, userID, videoID string, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return db.ErrNotFound
	}
	v.IsDeleted = deleted
	return nil
}

type fakeFavoriteRepo struct {
	channels []*models.Channel
}

func (r *fakeFavoriteRepo) ListByUser(ctx context.Context, userID string) ([]*models.Channel, error) {
	return r.channels, nil
}

func (r *fakeFavoriteRepo) Add(ctx context.Context, userID string, channel *models.Channel) error {
	r.channels = append(r.channels, channel)
	return nil
}

func (r *fakeFavoriteRepo) Remove(ctx context.Context, userID, channelID string) error {
	return nil
}

func (r *fakeFavoriteRepo) UpdateCategory(ctx context.Context, userID, channelID, categoryID string) error {
	return nil
}

func (r *fakeFavoriteRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	return []string{"user-1"}, nil
}

// fakeSelector returns a configured video per channel.
type fakeSelector struct {
	mu        sync.Mutex
	latest    map[string]*models.Video
	errs      map[string]error
	entered   chan struct{} // closed on first call, when set
	release   chan struct{} // when set, LatestQualifying blocks until closed
	enterOnce sync.Once
}

func (s *fakeSelector) LatestQualifying(ctx context.Context, channelID string) (*models.Video, error) {
	if s.entered != nil {
		s.enterOnce.Do(func() { close(s.entered) })
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[channelID]; ok {
		return nil, err
	}
	v, ok := s.latest[channelID]
	if !ok {
		return nil, nil
	}
	clone := *v
	return &clone, nil
}

func latestVideo(videoID, channelID string) *models.Video {
	return models.NewVideo(videoID, channelID, "title "+videoID, "desc", "thumb", "Channel "+channelID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
}

func channel(id string) *models.Channel {
	return &models.Channel{ID: id, Title: "Channel " + id, Thumbnail: "https://thumb/" + id}
}

const testUser = "user-1"

func TestRefreshFeedFirstContactInserts(t *testing.T) {
	videos := newFakeVideoRepo()
	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1"), channel("UC2")}}
	selector := &fakeSelector{latest: map[string]*models.Video{
		"UC1": latestVideo("v1", "UC1"),
		"UC2": latestVideo("v2", "UC2"),
	}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 2, nil)

	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Channels)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 0, report.Failed)

	stored, _ := videos.GetByID(context.Background(), testUser, "v1")
	require.NotNil(t, stored)
	assert.Equal(t, "https://thumb/UC1", stored.ChannelThumbnail)
	assert.False(t, stored.IsDeleted)
}

func TestRefreshFeedIsIdempotent(t *testing.T) {
	videos := newFakeVideoRepo()
	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": latestVideo("v1", "UC1")}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)

	_, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	first, _ := videos.GetByID(context.Background(), testUser, "v1")

	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Inserted)

	second, _ := videos.GetByID(context.Background(), testUser, "v1")
	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt, "first-seen timestamp must survive re-reconciliation")
	assert.Len(t, videos.videos, 1)
}

func TestRefreshFeedMetadataUpdatePreservesVisibility(t *testing.T) {
	videos := newFakeVideoRepo()
	existing := latestVideo("v1", "UC1")
	require.NoError(t, videos.Upsert(context.Background(), testUser, existing))

	refreshed := latestVideo("v1", "UC1")
	refreshed.Title = "retitled"

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": refreshed}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	stored, _ := videos.GetByID(context.Background(), testUser, "v1")
	assert.Equal(t, "retitled", stored.Title)
	assert.False(t, stored.IsDeleted)
}

func TestRefreshFeedDeletedStaysDeleted(t *testing.T) {
	videos := newFakeVideoRepo()
	existing := latestVideo("v1", "UC1")
	existing.IsDeleted = true
	require.NoError(t, videos.Upsert(context.Background(), testUser, existing))

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": latestVideo("v1", "UC1")}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"UC1"}, report.SkippedChannels)

	stored, _ := videos.GetByID(context.Background(), testUser, "v1")
	assert.True(t, stored.IsDeleted, "re-reconciling the same video must not undo a deletion")
}

func TestRefreshFeedSupersedesDeletedSibling(t *testing.T) {
	videos := newFakeVideoRepo()
	old := latestVideo("v1", "UC1")
	old.IsDeleted = true
	require.NoError(t, videos.Upsert(context.Background(), testUser, old))

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": latestVideo("v2", "UC1")}}

	publisher := events.NewEmitter()
	sub, cancel := publisher.Subscribe(8)
	defer cancel()

	r := NewReconciler(videos, favorites, selector, publisher, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Superseded)

	_, err = videos.GetByID(context.Background(), testUser, "v1")
	assert.True(t, db.IsNotFound(err), "old record must be removed so its id can return later")

	stored, getErr := videos.GetByID(context.Background(), testUser, "v2")
	require.NoError(t, getErr)
	assert.False(t, stored.IsDeleted, "the superseding video starts visible")

	event := <-sub
	assert.Equal(t, events.TypeVideoSuperseded, event.Type)
	assert.Equal(t, "v2", event.VideoID)
}

func TestRefreshFeedSupersedesVisiblePrior(t *testing.T) {
	videos := newFakeVideoRepo()
	require.NoError(t, videos.Upsert(context.Background(), testUser, latestVideo("v1", "UC1")))

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": latestVideo("v2", "UC1")}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Superseded)
	assert.Equal(t, []string{"UC1"}, report.UpdatedChannels)

	// At most one record per channel survives.
	assert.Len(t, videos.videos, 1)
	_, ok := videos.videos["v2"]
	assert.True(t, ok)
}

func TestRefreshFeedNoQualifierLeavesRecordsAlone(t *testing.T) {
	videos := newFakeVideoRepo()
	require.NoError(t, videos.Upsert(context.Background(), testUser, latestVideo("v1", "UC1")))

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{}} // nothing upstream

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, videos.videos, 1)
}

func TestRefreshFeedIsolatesChannelFailures(t *testing.T) {
	videos := newFakeVideoRepo()
	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1"), channel("UC2"), channel("UC3")}}
	selector := &fakeSelector{
		latest: map[string]*models.Video{
			"UC1": latestVideo("v1", "UC1"),
			"UC3": latestVideo("v3", "UC3"),
		},
		errs: map[string]error{"UC2": errors.New("api down")},
	}

	r := NewReconciler(videos, favorites, selector, nil, nil, 3, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	assert.ElementsMatch(t, []string{"UC1", "UC3"}, report.UpdatedChannels)
	assert.Equal(t, []string{"UC2"}, report.FailedChannels, "callers need the failed channel id to retry it")
}

func TestRefreshFeedSupersedeInsertFailureIsReported(t *testing.T) {
	videos := newFakeVideoRepo()
	require.NoError(t, videos.Upsert(context.Background(), testUser, latestVideo("v1", "UC1")))
	videos.upsertErr = errors.New("disk full")

	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}
	selector := &fakeSelector{latest: map[string]*models.Video{"UC1": latestVideo("v2", "UC1")}}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)
	report, err := r.RefreshFeed(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Inconsistencies, 1)
	assert.Contains(t, report.Inconsistencies[0], "UC1")
}

func TestRefreshFeedStaleRunDoesNotPersist(t *testing.T) {
	videos := newFakeVideoRepo()
	favorites := &fakeFavoriteRepo{channels: []*models.Channel{channel("UC1")}}

	entered := make(chan struct{})
	release := make(chan struct{})
	selector := &fakeSelector{
		latest:  map[string]*models.Video{"UC1": latestVideo("v1", "UC1")},
		entered: entered,
		release: release,
	}

	r := NewReconciler(videos, favorites, selector, nil, nil, 1, nil)

	firstDone := make(chan *RefreshReport, 1)
	go func() {
		report, err := r.RefreshFeed(context.Background(), testUser)
		assert.NoError(t, err)
		firstDone <- report
	}()

	// Overtake the run once it is mid-fetch, then let it proceed.
	<-entered
	r.beginRun(testUser)
	close(release)

	report := <-firstDone
	assert.True(t, report.Stale, "overtaken run must report itself stale")
	assert.Equal(t, 0, report.Inserted)
	assert.Len(t, videos.videos, 0, "overtaken run must not write")
}
