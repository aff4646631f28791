package interfaces

// Connection is a live transport handle held by the registry.
// Implementations must make WriteJSON safe for concurrent callers.
type Connection interface {
	// WriteJSON serializes v and queues it for the client
	WriteJSON(v interface{}) error

	// Close closes the transport and releases its resources
	Close() error

	// GetUserID returns the identity bound at handshake, or "" before it
	GetUserID() string

	// IsAuthenticated reports whether the handshake has completed
	IsAuthenticated() bool

	// IsOpen reports whether the transport can still accept writes
	IsOpen() bool
}
