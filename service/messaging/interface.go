// Package messaging defines the ordered queue abstraction used to deliver
// lifecycle signals into the orchestrator's control loop.
package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing to or consuming from a closed queue.
var ErrClosed = errors.New("messaging: queue closed")

// Queue represents an ordered message queue for any payload type.
type Queue[T any] interface {
	// Publish appends a message; messages are consumed in publish order.
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available, the context is done or
	// the queue is closed.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges processing of this message.
	Ack() error
}
