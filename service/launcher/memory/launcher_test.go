package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/launcher"
)

func channelSink(buffer int) (launcher.Sink, chan *session.Event) {
	events := make(chan *session.Event, buffer)
	return launcher.SinkFunc(func(ctx context.Context, event *session.Event) error {
		select {
		case events <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}), events
}

func collect(t *testing.T, events chan *session.Event, n int) []session.EventType {
	t.Helper()
	var ret []session.EventType
	for len(ret) < n {
		select {
		case event := <-events:
			ret = append(ret, event.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %v events: %v", len(ret), ret)
		}
	}
	return ret
}

func TestLauncher_Script(t *testing.T) {
	testCases := []struct {
		name     string
		script   *Script
		expected []session.EventType
	}{
		{
			name:   "passing",
			script: PassingScript("a", "b"),
			expected: []session.EventType{
				session.EventSessionStarted,
				session.EventTestStarted, session.EventTestFinished,
				session.EventTestStarted, session.EventTestFinished,
				session.EventSessionFinished,
			},
		},
		{
			name:     "no tests",
			script:   &Script{},
			expected: []session.EventType{session.EventSessionStarted, session.EventSessionFinished},
		},
		{
			name:     "crash",
			script:   &Script{Crash: "page crashed"},
			expected: []session.EventType{session.EventSessionStarted, session.EventSessionError},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sink, events := channelSink(16)
			srv := New("chromium", WithDefaultScript(tc.script), WithSink(sink))
			ctx := context.Background()
			require.NoError(t, srv.Start(ctx))
			require.NoError(t, srv.StartSession(ctx, "s1", "a.test.js"))
			assert.Equal(t, tc.expected, collect(t, events, len(tc.expected)))
			require.NoError(t, srv.StopSession(ctx, "s1"))
			assert.True(t, srv.Stopped("s1"))
			require.NoError(t, srv.Stop(ctx))
		})
	}
}

func TestLauncher_Verdict(t *testing.T) {
	sink, events := channelSink(16)
	srv := New("firefox", WithSink(sink), WithScript("b.test.js", &Script{
		Tests: []Test{{Name: "ok", Passed: true}, {Name: "bad", Error: "expected 2"}},
	}))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	require.NoError(t, srv.StartSession(ctx, "s1", "b.test.js"))
	var finished *session.Event
	for finished == nil {
		select {
		case event := <-events:
			if event.Type == session.EventSessionFinished {
				finished = event
			}
		case <-time.After(time.Second):
			t.Fatal("session did not finish")
		}
	}
	require.NotNil(t, finished.Passed)
	assert.False(t, *finished.Passed)
	assert.Equal(t, "s1", finished.SessionID)
}

func TestLauncher_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sink, _ := channelSink(16)

	srv := New("webkit", WithSink(sink), WithConcurrency(3), WithDefaultScript(&Script{HangOnStart: true}))
	assert.Equal(t, 3, launcher.ConcurrencyLimit(srv, 0))
	assert.ErrorIs(t, srv.StartSession(ctx, "s1", "a.test.js"), launcher.ErrNotActive)
	require.NoError(t, srv.Start(ctx))
	require.NoError(t, srv.Start(ctx))
	assert.Equal(t, 1, srv.Starts())
	assert.True(t, srv.IsActive())

	require.NoError(t, srv.StartSession(ctx, "s1", "a.test.js"))
	require.NoError(t, srv.StartSession(ctx, "s2", "b.test.js"))
	assert.Equal(t, 2, srv.Peak())
	assert.Equal(t, []string{"s1", "s2"}, srv.Started())

	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
	assert.False(t, srv.IsActive())
	assert.True(t, srv.Stopped("s2"))
	assert.NoError(t, srv.StopSession(ctx, "unknown"))

	failing := New("edge", WithStartError(errors.New("binary missing")))
	assert.Error(t, failing.Start(ctx))
	assert.False(t, failing.IsActive())

	refusing := New("chromium", WithSink(sink), WithScript("x.test.js", &Script{StartError: errors.New("no page")}))
	require.NoError(t, refusing.Start(ctx))
	assert.Error(t, refusing.StartSession(ctx, "s3", "x.test.js"))
}
