// Package event provides typed, in-process notifications. Every subscriber
// gets its own ordered delivery queue so a slow consumer never reorders
// events for the others.
package event

import (
	"context"
	"reflect"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Option customises the service.
type Option func(s *Service)

// WithBuffer sets the per-listener queue buffer.
func WithBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.buffer = size
		}
	}
}

type subscription struct {
	stop  func() bool
	drain func(ctx context.Context) bool
}

// Service is a registry of typed publishers.
type Service struct {
	publishers map[reflect.Type]any
	stoppers   map[string]subscription
	buffer     int
	mux        sync.RWMutex
}

// New creates an event service.
func New(opts ...Option) *Service {
	ret := &Service{
		publishers: make(map[reflect.Type]any),
		stoppers:   make(map[string]subscription),
		buffer:     1024,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// PublisherOf returns the publisher for T, creating it on first use.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.publishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.publishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T]()
	s.publishers[key] = publisher
	return publisher
}

// Subscribe registers handler for events carrying T and returns the
// subscription id.
func Subscribe[T any](s *Service, handler func(*Event[T])) string {
	publisher := PublisherOf[T](s)
	id := ulid.Make().String()
	listener := NewListener[T](id, s.buffer, handler)
	listener.Start()
	publisher.add(listener)
	s.mux.Lock()
	s.stoppers[id] = subscription{
		stop:  func() bool { return publisher.remove(id) },
		drain: func(ctx context.Context) bool { return publisher.drain(ctx, id) },
	}
	s.mux.Unlock()
	return id
}

// Publish sends event to every subscriber of T.
func Publish[T any](ctx context.Context, s *Service, event *Event[T]) error {
	if s == nil {
		return nil
	}
	return PublisherOf[T](s).Publish(ctx, event)
}

// Unsubscribe stops a subscription; unknown ids are ignored.
func (s *Service) Unsubscribe(id string) bool {
	s.mux.Lock()
	sub, ok := s.stoppers[id]
	delete(s.stoppers, id)
	s.mux.Unlock()
	if !ok {
		return false
	}
	return sub.stop()
}

// Drain ends a subscription after its already published events were
// handled or ctx is done.
func (s *Service) Drain(ctx context.Context, id string) bool {
	s.mux.Lock()
	sub, ok := s.stoppers[id]
	delete(s.stoppers, id)
	s.mux.Unlock()
	if !ok {
		return false
	}
	return sub.drain(ctx)
}

// Close stops every listener.
func (s *Service) Close() {
	s.mux.Lock()
	publishers := make([]any, 0, len(s.publishers))
	for _, publisher := range s.publishers {
		publishers = append(publishers, publisher)
	}
	s.stoppers = make(map[string]subscription)
	s.mux.Unlock()
	for _, publisher := range publishers {
		if stopper, ok := publisher.(interface{ stopAll() }); ok {
			stopper.stopAll()
		}
	}
}
