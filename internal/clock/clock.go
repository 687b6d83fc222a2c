// Package clock abstracts wall-clock access so that timestamps and timers can
// be stubbed in tests.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// AfterFuncFunc schedules fn after d. Override in tests to control timers.
var AfterFuncFunc = func(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Timer is the subset of *time.Timer used by callers.
type Timer interface {
	Stop() bool
}

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Since returns the time elapsed since t according to NowFunc.
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }

// AfterFunc is a thin wrapper around AfterFuncFunc.
func AfterFunc(d time.Duration, fn func()) Timer { return AfterFuncFunc(d, fn) }
