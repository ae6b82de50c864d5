package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversToSubscribers(t *testing.T) {
	e := NewEmitter()
	ctx := context.Background()

	subA, cancelA := e.Subscribe(4)
	defer cancelA()
	subB, cancelB := e.Subscribe(4)
	defer cancelB()

	event := New(TypeVideoAdded, "user-1", "UC1", "v1")
	require.NoError(t, e.Publish(ctx, event))

	gotA := <-subA
	gotB := <-subB
	assert.Equal(t, event.ID, gotA.ID)
	assert.Equal(t, event.ID, gotB.ID)
	assert.Equal(t, TypeVideoAdded, gotA.Type)
}

func TestEmitterCancelStopsDelivery(t *testing.T) {
	e := NewEmitter()
	ctx := context.Background()

	sub, cancel := e.Subscribe(1)
	cancel()

	// Publishing after cancel must not panic or block.
	require.NoError(t, e.Publish(ctx, New(TypeVideoUpdated, "user-1", "UC1", "v1")))

	_, open := <-sub
	assert.False(t, open, "cancelled subscription channel should be closed")
}

func TestEmitterDropsWhenSubscriberIsFull(t *testing.T) {
	e := NewEmitter()
	ctx := context.Background()

	sub, cancel := e.Subscribe(1)
	defer cancel()

	require.NoError(t, e.Publish(ctx, New(TypeVideoAdded, "user-1", "UC1", "v1")))
	// Buffer is full; this one is dropped rather than blocking.
	require.NoError(t, e.Publish(ctx, New(TypeVideoAdded, "user-1", "UC1", "v2")))

	first := <-sub
	assert.Equal(t, "v1", first.VideoID)
	select {
	case unexpected := <-sub:
		t.Fatalf("expected drop, got %v", unexpected)
	default:
	}
}

type errPublisher struct{ err error }

func (p errPublisher) Publish(ctx context.Context, event Event) error { return p.err }

type recordPublisher struct{ events []Event }

func (p *recordPublisher) Publish(ctx context.Context, event Event) error {
	p.events = append(p.events, event)
	return nil
}

func TestFanoutAttemptsAllPublishers(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("amqp down")
	rec := &recordPublisher{}

	f := Fanout{errPublisher{err: boom}, rec}
	err := f.Publish(ctx, New(TypeFavoriteAdded, "user-1", "UC1", ""))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.events, 1, "later publishers still receive the event")
}

func TestNewPopulatesEnvelope(t *testing.T) {
	event := New(TypeVideoStateChanged, "user-1", "UC1", "v1")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "UC1", event.ChannelID)
	assert.Equal(t, "v1", event.VideoID)
	assert.False(t, event.OccurredAt.IsZero())
}
