package event

import (
	"context"
	"sync"
	"time"
)

// Publisher fans typed events out to every subscribed listener.
type Publisher[T any] struct {
	mu        sync.RWMutex
	listeners []*Listener[T]
}

// NewPublisher creates a publisher without listeners.
func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{}
}

// Publish delivers the event to every listener. Events without listeners
// are dropped.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	p.mu.RLock()
	listeners := append([]*Listener[T](nil), p.listeners...)
	p.mu.RUnlock()
	var firstErr error
	for _, listener := range listeners {
		if err := listener.deliver(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Publisher[T]) add(listener *Listener[T]) {
	p.mu.Lock()
	p.listeners = append(p.listeners, listener)
	p.mu.Unlock()
}

func (p *Publisher[T]) remove(id string) bool {
	listener := p.detach(id)
	if listener == nil {
		return false
	}
	listener.Stop()
	return true
}

func (p *Publisher[T]) drain(ctx context.Context, id string) bool {
	listener := p.detach(id)
	if listener == nil {
		return false
	}
	listener.Drain(ctx)
	return true
}

func (p *Publisher[T]) detach(id string) *Listener[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, listener := range p.listeners {
		if listener.id == id {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return listener
		}
	}
	return nil
}

func (p *Publisher[T]) stopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, listener := range p.listeners {
		listener.Stop()
	}
	p.listeners = nil
}
