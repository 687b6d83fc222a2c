package event

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/viant/wtr/service/messaging"
	"github.com/viant/wtr/service/messaging/memory"
)

// Listener delivers events to a handler on its own goroutine, in publish
// order.
type Listener[T any] struct {
	id      string
	queue   *memory.Queue[Event[T]]
	handler func(*Event[T])
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	pending atomic.Int64
}

// NewListener creates a stopped listener.
func NewListener[T any](id string, buffer int, handler func(*Event[T])) *Listener[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener[T]{
		id:      id,
		queue:   memory.NewQueue[Event[T]](memory.Config{QueueBuffer: buffer}),
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// ID returns the subscription id.
func (l *Listener[T]) ID() string { return l.id }

func (l *Listener[T]) deliver(ctx context.Context, e *Event[T]) error {
	l.pending.Add(1)
	if err := l.queue.Publish(ctx, e); err != nil {
		l.pending.Add(-1)
		return err
	}
	return nil
}

// Start runs the delivery loop.
func (l *Listener[T]) Start() {
	go func() {
		defer close(l.done)
		for {
			msg, err := l.queue.Consume(l.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
					return
				}
				continue
			}
			_ = msg.Ack()
			l.handler(msg.T())
			l.pending.Add(-1)
		}
	}()
}

// Stop terminates the delivery loop; undelivered events are dropped.
func (l *Listener[T]) Stop() {
	l.cancel()
	l.queue.Close()
}

// Drain stops the listener once every accepted event was handled or ctx is
// done, whichever comes first.
func (l *Listener[T]) Drain(ctx context.Context) {
	defer l.Stop()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for l.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case <-ticker.C:
		}
	}
}

// Done is closed once the delivery loop exited.
func (l *Listener[T]) Done() <-chan struct{} { return l.done }
