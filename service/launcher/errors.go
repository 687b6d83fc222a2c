package launcher

import (
	"errors"
	"fmt"
)

// ErrNotActive is returned when a session is requested from a stopped launcher.
var ErrNotActive = errors.New("launcher is not active")

// StartError reports a launcher that could not start.
type StartError struct {
	Launcher string
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start launcher %v: %v", e.Launcher, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
