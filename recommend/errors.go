package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/fabmatch/search"
)

// ErrorCode classifies a user-visible failure.
type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is the only error type returned to callers of Pipeline, apart from
// context cancellation.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("recommend: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("recommend: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// Code returns the ErrorCode carried by err, or "" if err is not an *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	// ErrEmptyQuery is wrapped by INVALID_INPUT errors for blank queries.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidTopK is wrapped by INVALID_INPUT errors for out-of-range top_k.
	ErrInvalidTopK = errors.New("top_k out of range")

	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)

// searchError maps a retrieval failure to a user-visible error.
func searchError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, search.ErrEmbeddingFailed):
		return newError(ErrorUpstream, "embedding service unavailable", err)
	default:
		return newError(ErrorInternal, "search failed", err)
	}
}
