package ai

import "errors"

var (
	// ErrMalformedOutput indicates model output could not be decoded.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrNoChoices indicates the model returned no completion.
	ErrNoChoices = errors.New("model returned no choices")

	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid ai config")
)

// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
