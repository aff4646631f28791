package auth

import "errors"

// Messages match what clients of the real-time channel already display
var (
	ErrMissingUserID   = errors.New("Missing userId in authentication")
	ErrMissingToken    = errors.New("Missing token in authentication")
	ErrInvalidToken    = errors.New("Invalid authentication token")
	ErrSubjectMismatch = errors.New("Token does not match userId")
	ErrUnknownUser     = errors.New("Unknown user")
	ErrUnknownMode     = errors.New("unknown auth mode")
)
