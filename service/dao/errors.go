package dao

import "errors"

var (
	// ErrNotFound is returned when no session history entry has the id.
	ErrNotFound = errors.New("dao: not found")
	// ErrInvalidID is returned for an empty session id.
	ErrInvalidID = errors.New("dao: invalid id")
	// ErrNilEntity is returned when saving a nil session.
	ErrNilEntity = errors.New("dao: nil entity")
)
