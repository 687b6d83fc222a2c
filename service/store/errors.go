package store

import "errors"

var (
	ErrNotFound     = errors.New("session not found")
	ErrDuplicate    = errors.New("session already exists")
	ErrNotScheduled = errors.New("session is not scheduled")
	ErrTerminal     = errors.New("session is terminal")
)
