package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetrack/pkg/logger"
)

// gatedPublisher blocks every Publish until release is closed.
type gatedPublisher struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	events []*Event
	closed bool
	once   sync.Once
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedPublisher) Publish(ctx context.Context, event *Event) error {
	g.once.Do(func() { close(g.started) })
	<-g.release

	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
	return nil
}

func (g *gatedPublisher) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func TestAsyncPublisherDoesNotWaitOnBroker(t *testing.T) {
	inner := newGatedPublisher()
	pub := NewAsyncPublisher(inner, 4, time.Second, logger.Discard())

	returned := make(chan error, 1)
	go func() {
		returned <- pub.Publish(context.Background(), NewEvent(EventLoginSucceeded, "u-1", "user@example.com"))
	}()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on the wrapped publisher")
	}

	close(inner.release)
	require.NoError(t, pub.Close())

	assert.Len(t, inner.events, 1)
	assert.True(t, inner.closed)
}

func TestAsyncPublisherDropsWhenQueueFull(t *testing.T) {
	inner := newGatedPublisher()
	pub := NewAsyncPublisher(inner, 1, time.Second, logger.Discard())
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, NewEvent(EventLoginSucceeded, "u-1", "a@example.com")))
	<-inner.started

	require.NoError(t, pub.Publish(ctx, NewEvent(EventLoginSucceeded, "u-2", "b@example.com")))
	assert.ErrorIs(t, pub.Publish(ctx, NewEvent(EventLoginSucceeded, "u-3", "c@example.com")), ErrQueueFull)

	close(inner.release)
	require.NoError(t, pub.Close())
	assert.Len(t, inner.events, 2)
}

func TestAsyncPublisherRejectsAfterClose(t *testing.T) {
	inner := newGatedPublisher()
	close(inner.release)
	pub := NewAsyncPublisher(inner, 1, time.Second, logger.Discard())

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	err := pub.Publish(context.Background(), NewEvent(EventLoginSucceeded, "u-1", "a@example.com"))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
