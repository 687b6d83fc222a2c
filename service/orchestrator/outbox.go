package orchestrator

import (
	"context"
	"sync"
)

// outbox runs deferred work in enqueue order on a single goroutine. Enqueue
// never blocks, so it is safe to call with the control lock held.
type outbox struct {
	mux     sync.Mutex
	pending []func()
	closed  bool
	signal  chan struct{}
	done    chan struct{}
}

func newOutbox() *outbox {
	ret := &outbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go ret.run()
	return ret
}

func (o *outbox) enqueue(fn func()) bool {
	o.mux.Lock()
	if o.closed {
		o.mux.Unlock()
		return false
	}
	o.pending = append(o.pending, fn)
	o.mux.Unlock()
	select {
	case o.signal <- struct{}{}:
	default:
	}
	return true
}

func (o *outbox) run() {
	defer close(o.done)
	for {
		o.mux.Lock()
		batch := o.pending
		o.pending = nil
		closed := o.closed
		o.mux.Unlock()
		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-o.signal
	}
}

// flush waits until everything enqueued so far has run.
func (o *outbox) flush(ctx context.Context) error {
	marker := make(chan struct{})
	if !o.enqueue(func() { close(marker) }) {
		return o.wait(ctx)
	}
	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting work; pending work still runs.
func (o *outbox) close() {
	o.mux.Lock()
	o.closed = true
	o.mux.Unlock()
	select {
	case o.signal <- struct{}{}:
	default:
	}
}

func (o *outbox) wait(ctx context.Context) error {
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
