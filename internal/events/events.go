// Package events carries store-change notifications from the write path
// to subscribers: the API layer's in-process emitter and, when
// configured, a RabbitMQ exchange for external consumers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a store change.
type Type string

const (
	TypeVideoAdded        Type = "video.added"
	TypeVideoUpdated      Type = "video.updated"
	TypeVideoSuperseded   Type = "video.superseded"
	TypeVideoStateChanged Type = "video.state_changed"
	TypeFavoriteAdded     Type = "favorite.added"
	TypeFavoriteRemoved   Type = "favorite.removed"
)

// Event is one store-change notification.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id"`
	ChannelID  string    `json:"channel_id,omitempty"`
	VideoID    string    `json:"video_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New creates an Event with a fresh id and timestamp.
func New(eventType Type, userID, channelID, videoID string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		ChannelID:  channelID,
		VideoID:    videoID,
		OccurredAt: time.Now(),
	}
}

// Publisher delivers store-change events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emitter is an in-process Publisher with channel-based subscriptions.
// Delivery is best-effort: a subscriber that falls behind loses events
// rather than blocking the write path.
type Emitter struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
}

// NewEmitter creates an Emitter.
func NewEmitter() *Emitter {
	return &Emitter{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be
// called to release the subscription.
func (e *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan Event, buffer)
	e.subscribers[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all subscribers without blocking.
func (e *Emitter) Publish(_ context.Context, event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; drop.
		}
	}
	return nil
}

// Fanout publishes every event to multiple publishers, returning the
// first error after attempting all of them.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
