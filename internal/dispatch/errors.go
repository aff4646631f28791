package dispatch

import "errors"

var (
	ErrNotAuthenticated = errors.New("sender connection is not authenticated")
	ErrSenderMismatch   = errors.New("event senderId does not match authenticated user")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrPersistFailed    = errors.New("failed to persist message")
)

// Client-facing error messages
const (
	MsgNotAuthenticated = "Not authenticated"
	MsgSenderMismatch   = "senderId does not match authenticated user"
	MsgRateLimited      = "Rate limit exceeded"
	MsgPersistFailed    = "Failed to save message"
)
