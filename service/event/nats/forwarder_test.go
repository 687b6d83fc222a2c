package nats

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/service/event"
)

type recordingConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (r *recordingConn) Publish(subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return nil
}

func (r *recordingConn) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

type runSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

func TestForwarder_Forward(t *testing.T) {
	srv := event.New()
	defer srv.Close()
	conn := &recordingConn{}
	forwarder := New(srv, conn, WithSubjectPrefix("ci"), WithLogger(logger.Discard()))
	Forward[runSummary](forwarder)

	anEvent := event.NewEvent(&event.Context{EventType: event.TypeRunFinished}, runSummary{Total: 3, Passed: 2})
	require.NoError(t, event.Publish(context.Background(), srv, anEvent))
	assert.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)

	conn.mu.Lock()
	assert.Equal(t, "ci.run-finished", conn.subjects[0])
	var decoded event.Event[runSummary]
	assert.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	conn.mu.Unlock()
	assert.Equal(t, 3, decoded.Data.Total)
	assert.Equal(t, event.TypeRunFinished, decoded.Context.EventType)

	forwarder.Close(context.Background())
	require.NoError(t, event.Publish(context.Background(), srv, anEvent))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, conn.count())
}

func TestForwarder_Subject(t *testing.T) {
	forwarder := New(event.New(), &recordingConn{})
	assert.Equal(t, "wtr.session-status-updated", forwarder.Subject(event.TypeSessionStatusUpdated))
	assert.Equal(t, "wtr.event", forwarder.Subject(""))
}
