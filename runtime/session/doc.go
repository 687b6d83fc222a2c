// Package session defines the session value object, its state machine and the
// lifecycle events that drive it.
//
// A session is one attempt to run one test file in one launcher. Its status
// only moves along the edges accepted by ValidateTransition; terminal
// statuses (finished, failed, stopped) are final. A rerun never revives a
// session, it creates a new one with an incremented RetryCount.
package session
