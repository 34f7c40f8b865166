package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"issuetrack/pkg/logger"
)

var (
	ErrQueueFull       = errors.New("activity queue full")
	ErrPublisherClosed = errors.New("activity publisher closed")
)

// AsyncPublisher queues events and forwards them to the wrapped publisher on a
// single background goroutine. Publish never waits on the broker; when the
// queue is full the event is dropped and ErrQueueFull returned.
type AsyncPublisher struct {
	next    Publisher
	queue   chan *Event
	timeout time.Duration
	logger  *logger.Logger

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewAsyncPublisher starts the forwarding goroutine. Each forwarded event gets
// its own deadline of timeout, detached from the request that produced it.
func NewAsyncPublisher(next Publisher, size int, timeout time.Duration, log *logger.Logger) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.GetDefault()
	}

	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan *Event, size),
		timeout: timeout,
		logger:  log,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Publish(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)

	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, event); err != nil {
			p.logger.WithError(err).Warn("Failed to forward activity event",
				slog.String("type", string(event.Type)),
				slog.String("event_id", event.ID.String()),
			)
		}
		cancel()
	}
}

// Close stops accepting events, drains the queue, then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		p.closeErr = p.next.Close()
	})
	return p.closeErr
}
