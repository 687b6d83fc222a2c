package timeout

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/wtr/internal/clock"
	"github.com/viant/wtr/runtime/session"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	active := !m.stopped
	m.stopped = true
	return active
}

type manualClock struct {
	mux    sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) afterFunc(_ time.Duration, fn func()) clock.Timer {
	c.mux.Lock()
	defer c.mux.Unlock()
	timer := &manualTimer{fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

type firing struct {
	id         string
	kind       session.ErrorKind
	generation uint64
}

func TestSupervisor_ArmAndFire(t *testing.T) {
	manual := &manualClock{}
	var fired []firing
	srv := New(func(id string, kind session.ErrorKind, generation uint64) {
		fired = append(fired, firing{id, kind, generation})
	}, WithAfterFunc(manual.afterFunc))

	first := srv.Arm("s1", session.KindBrowserStartTimeout, time.Second)
	second := srv.Arm("s1", session.KindTestsStartTimeout, time.Second)
	assert.True(t, manual.timers[0].stopped)
	assert.False(t, srv.IsCurrent("s1", session.KindBrowserStartTimeout, first))
	assert.True(t, srv.IsCurrent("s1", session.KindTestsStartTimeout, second))
	kind, ok := srv.Armed("s1")
	assert.True(t, ok)
	assert.Equal(t, session.KindTestsStartTimeout, kind)

	// a stale callback still fires but is no longer current
	manual.timers[0].fn()
	manual.timers[1].fn()
	assert.Equal(t, []firing{
		{"s1", session.KindBrowserStartTimeout, first},
		{"s1", session.KindTestsStartTimeout, second},
	}, fired)

	srv.Disarm("s1")
	assert.False(t, srv.IsCurrent("s1", session.KindTestsStartTimeout, second))
	assert.Equal(t, 0, srv.Len())
}

func TestSupervisor_Disabled(t *testing.T) {
	manual := &manualClock{}
	srv := New(func(string, session.ErrorKind, uint64) {}, WithAfterFunc(manual.afterFunc))
	srv.Arm("s1", session.KindTestsFinishTimeout, 0)
	assert.Empty(t, manual.timers)
	_, ok := srv.Armed("s1")
	assert.False(t, ok)

	srv.Arm("s2", session.KindTestsFinishTimeout, time.Second)
	srv.Arm("s3", session.KindTestsFinishTimeout, time.Second)
	srv.DisarmAll()
	assert.Equal(t, 0, srv.Len())
	srv.Forget("s2")
}

func TestSupervisor_RealTimer(t *testing.T) {
	fired := make(chan session.ErrorKind, 1)
	srv := New(func(_ string, kind session.ErrorKind, _ uint64) { fired <- kind })
	srv.Arm("s1", session.KindBrowserStartTimeout, 10*time.Millisecond)
	select {
	case kind := <-fired:
		assert.Equal(t, session.KindBrowserStartTimeout, kind)
	case <-time.After(time.Second):
		t.Fatal("deadline did not fire")
	}
}
