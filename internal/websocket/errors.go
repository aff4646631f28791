package websocket

import "errors"

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timeout")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)

// Client-facing protocol error messages
const (
	MsgInvalidFormat        = "Invalid message format"
	MsgUnknownEvent         = "Unknown event type"
	MsgNotAuthenticated     = "Not authenticated"
	MsgAlreadyAuthenticated = "Already authenticated"
	MsgInvalidUserID        = "Invalid userId"
	MsgAuthFailed           = "Authentication failed"
	MsgServerBusy           = "Server busy, retry the message"
)
