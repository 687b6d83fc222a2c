package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/service/messaging"
)

type TestPayload struct {
	ID    string
	Count int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx := context.Background()
	payload := TestPayload{ID: "test-1", Count: 1}

	require.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
}

func TestQueue_PreservesOrderPerProducer(t *testing.T) {
	queue := NewQueue[TestPayload](Config{QueueBuffer: 8})
	ctx := context.Background()
	producers, perProducer := 4, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				payload := TestPayload{ID: fmt.Sprintf("p%d", producer), Count: i}
				assert.NoError(t, queue.Publish(ctx, &payload))
			}
		}(p)
	}

	last := map[string]int{}
	for i := 0; i < producers*perProducer; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		payload := message.T()
		if previous, ok := last[payload.ID]; ok {
			assert.Equal(t, previous+1, payload.Count, "out of order for %s", payload.ID)
		} else {
			assert.Equal(t, 0, payload.Count)
		}
		last[payload.ID] = payload.Count
	}
	wg.Wait()
}

func TestQueue_ContextAndClose(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(cancelled, &TestPayload{ID: "x"}))

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	queue.Close()
	queue.Close()
	_, err = queue.Consume(context.Background())
	assert.ErrorIs(t, err, messaging.ErrClosed)
	assert.ErrorIs(t, queue.Publish(context.Background(), &TestPayload{}), messaging.ErrClosed)
}
