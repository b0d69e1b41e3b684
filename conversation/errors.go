package conversation

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCapacity is returned when the store capacity is not positive.
	ErrInvalidCapacity = errors.New("session capacity must be positive")
)
