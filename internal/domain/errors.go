package domain

import "errors"

// Sentinel errors shared across modules. Handlers map these to HTTP status
// codes; services wrap them with fmt.Errorf("...: %w", err) for context.
var (
	// ErrNotFound - the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoPriceHistory - the stock exists but has no usable price history
	ErrNoPriceHistory = errors.New("no price history available")

	// ErrExternalService - an upstream provider failed after retries
	ErrExternalService = errors.New("external service unavailable")

	// ErrMalformedResponse - an upstream response could not be parsed
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrTaskNotCancellable - the task already reached a terminal state
	ErrTaskNotCancellable = errors.New("task is not cancellable")
)
