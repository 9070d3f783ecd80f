package limiter

import "errors"

var (
	// ErrStoreUnavailable wraps every failure of a durable WindowStore:
	// connection errors, timeouts, script errors and malformed replies.
	ErrStoreUnavailable = errors.New("limiter: window store unavailable")

	ErrInvalidLimits = errors.New("limiter: limits must be positive")
)
