package interfaces

// Registry maps authenticated user identities to their live connection.
// It is the only shared mutable state of the real-time core and must be safe
// for concurrent use from every connection handler.
type Registry interface {
	// Register inserts or overwrites the entry for userID
	Register(userID string, conn Connection)

	// Unregister removes the entry for userID if present
	Unregister(userID string)

	// Release removes the entry only while it still points at conn, so a
	// replaced connection closing late cannot evict its successor
	Release(userID string, conn Connection) bool

	// Lookup returns the registered connection for userID
	Lookup(userID string) (Connection, bool)

	// Send delivers payload to userID if registered and open. A false result
	// is the normal offline case, not an error.
	Send(userID string, payload interface{}) bool

	// ForEach visits a snapshot of all entries; returning false stops early
	ForEach(fn func(userID string, conn Connection) bool)

	// Count returns the number of registered users
	Count() int
}
