// Package nats forwards in-process notifications to a NATS subject tree so
// remote dashboards can follow a run.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/service/event"
)

// DefaultSubjectPrefix prefixes every forwarded subject.
const DefaultSubjectPrefix = "wtr"

// Publisher is the subset of *nats.Conn used by the forwarder.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect dials a NATS server with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Forwarder republishes events as JSON on "<prefix>.<eventType>".
type Forwarder struct {
	conn   Publisher
	prefix string
	logger *log.Logger
	mu     sync.Mutex
	subs   []string
	srv    *event.Service
}

// Option customises a forwarder.
type Option func(f *Forwarder)

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(f *Forwarder) {
		if prefix != "" {
			f.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for publish failures.
func WithLogger(l *log.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}

// New creates a forwarder bound to srv.
func New(srv *event.Service, conn Publisher, opts ...Option) *Forwarder {
	ret := &Forwarder{conn: conn, prefix: DefaultSubjectPrefix, srv: srv}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.Or(ret.logger)
	return ret
}

// Subject returns the subject used for an event type.
func (f *Forwarder) Subject(eventType string) string {
	if eventType == "" {
		eventType = "event"
	}
	return f.prefix + "." + eventType
}

// Forward subscribes the forwarder to events carrying T.
func Forward[T any](f *Forwarder) string {
	id := event.Subscribe[T](f.srv, func(e *event.Event[T]) {
		if err := f.publish(e.Type(), e); err != nil {
			f.logger.Warn("failed to forward event", "type", e.Type(), "err", err)
		}
	})
	f.mu.Lock()
	f.subs = append(f.subs, id)
	f.mu.Unlock()
	return id
}

func (f *Forwarder) publish(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %v event: %w", eventType, err)
	}
	return f.conn.Publish(f.Subject(eventType), data)
}

// Close forwards the events already published, bounded by ctx, and ends
// every forwarding subscription.
func (f *Forwarder) Close(ctx context.Context) {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, id := range subs {
		f.srv.Drain(ctx, id)
	}
}
