package internaltypes

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrAlreadyRunning means another instance holds the run lock.
	ErrAlreadyRunning = errors.New("another instance is already running")
)
