package display

import "errors"

var (
	// ErrInvalidCode means the code is not 6 alphanumeric characters after
	// normalization.
	ErrInvalidCode = errors.New("invalid display code format")

	// ErrCodeNotFound means no event is bound to the code.
	ErrCodeNotFound = errors.New("display code not found")

	// ErrSessionNotFound means no session exists for the id.
	ErrSessionNotFound = errors.New("display session not found")

	// ErrSessionExpired means the session's TTL has passed; it has been
	// evicted.
	ErrSessionExpired = errors.New("display session expired")

	// ErrSessionMismatch means the session was minted for a different event.
	ErrSessionMismatch = errors.New("session does not match requested event")
)
