package websocket

import (
	"sync"

	"github.com/rs/zerolog"

	"portal/pkg/interfaces"
	"portal/pkg/logger"
)

// Registry maps authenticated user ids to their live connection
// ARCHITECTURAL DISCOVERY: Pure connection management without business logic
// maintains clean separation between connection tracking and message delivery
type Registry struct {
	mu            sync.RWMutex // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy lookup patterns
	connections   map[string]interfaces.Connection
	closeReplaced bool
	log           zerolog.Logger
}

// NewRegistry creates an empty registry. With closeReplaced set, a handle
// overwritten by a newer registration for the same user is closed; otherwise
// it is left open until it closes on its own.
func NewRegistry(closeReplaced bool) *Registry {
	return &Registry{
		connections:   make(map[string]interfaces.Connection),
		closeReplaced: closeReplaced,
		log:           logger.Component("registry"),
	}
}

// Register inserts or overwrites the entry for userID
func (r *Registry) Register(userID string, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	previous, exists := r.connections[userID]
	r.connections[userID] = conn
	r.mu.Unlock()

	if !exists || previous == conn {
		return
	}

	r.log.Info().Str("user_id", userID).Bool("closed_previous", r.closeReplaced).Msg("connection replaced")
	if r.closeReplaced {
		// FUNCTIONAL DISCOVERY: Close asynchronously so a slow peer cannot
		// stall registration
		go func() { _ = previous.Close() }()
	}
}

// Unregister removes the entry for userID regardless of which handle it holds
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, userID)
}

// Release removes userID only while it still maps to conn
// RACE CONDITION FIX: prevents an orphaned handle closing late from
// unregistering the connection that replaced it
func (r *Registry) Release(userID string, conn interfaces.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered, exists := r.connections[userID]
	if !exists || registered != conn {
		return false
	}
	delete(r.connections, userID)
	return true
}

func (r *Registry) Lookup(userID string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.connections[userID]
	return conn, exists
}

// Send delivers payload to userID when registered and open. Offline is the
// normal false case; write failures are logged, never returned.
func (r *Registry) Send(userID string, payload interface{}) bool {
	conn, exists := r.Lookup(userID)
	if !exists || !conn.IsOpen() {
		return false
	}

	if err := conn.WriteJSON(payload); err != nil {
		r.log.Debug().Err(err).Str("user_id", userID).Msg("delivery failed")
		return false
	}
	return true
}

// ForEach visits a snapshot taken under the read lock, so fn may call back
// into the registry
func (r *Registry) ForEach(fn func(userID string, conn interfaces.Connection) bool) {
	r.mu.RLock()
	snapshot := make(map[string]interfaces.Connection, len(r.connections))
	for id, conn := range r.connections {
		snapshot[id] = conn
	}
	r.mu.RUnlock()

	for id, conn := range snapshot {
		if !fn(id, conn) {
			return
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// GetStats returns registry statistics for monitoring
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	open := 0
	for _, conn := range r.connections {
		if conn.IsOpen() {
			open++
		}
	}
	return map[string]int{
		"total_connections": len(r.connections),
		"open_connections":  open,
	}
}
