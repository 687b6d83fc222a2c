package orchestrator

import "errors"

var (
	ErrAlreadyStarted  = errors.New("run already started")
	ErrNotStarted      = errors.New("run not started")
	ErrStopped         = errors.New("run stopped")
	ErrNoLaunchers     = errors.New("no launchers registered")
	ErrUnknownLauncher = errors.New("unknown launcher")
)
