package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"portal/pkg/types"
)

// State is the handshake state of a connection
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Connection implements the interfaces.Connection interface
// ARCHITECTURAL DISCOVERY: WebSocket writes must be serialized to prevent race conditions
// so every payload goes through writeCh to a single writer goroutine
type Connection struct {
	id           string
	conn         *websocket.Conn
	writeCh      chan []byte
	writeTimeout time.Duration
	userID       string // Bound at authentication, never changes afterwards
	state        State
	authTimer    *time.Timer
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
	mu           sync.RWMutex // Protects userID, state and authTimer
}

// NewConnection wraps conn and starts its writer goroutine
func NewConnection(conn *websocket.Conn, bufferSize int, writeTimeout time.Duration) *Connection {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.NewString(),
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.Close()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues v for the writer goroutine
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close closes the connection with a normal closure frame
func (c *Connection) Close() error {
	return c.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode sends a close frame carrying code and reason, then tears the
// transport down. Only the first call has any effect.
func (c *Connection) CloseWithCode(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		c.mu.Unlock()

		c.cancel()

		if c.conn != nil {
			// WriteControl is safe to call concurrently with the writer goroutine
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
			err = c.conn.Close()
		}
	})
	return err
}

// StartAuthTimer closes the connection with the authentication timeout code
// if it is still unauthenticated after d. onTimeout runs before the close.
func (c *Connection) StartAuthTimer(d time.Duration, onTimeout func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authTimer = time.AfterFunc(d, func() {
		c.mu.Lock()
		expired := c.state == StateUnauthenticated
		if expired {
			// Claim the transition so a late authenticate cannot win
			c.state = StateClosed
		}
		c.mu.Unlock()

		if !expired {
			return
		}
		if onTimeout != nil {
			onTimeout()
		}
		_ = c.CloseWithCode(types.CloseAuthTimeout, types.CloseAuthTimeoutReason)
	})
}

// Authenticate binds userID and cancels the handshake timer. It returns false
// unless the connection was still unauthenticated.
func (c *Connection) Authenticate(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnauthenticated {
		return false
	}
	c.userID = userID
	c.state = StateAuthenticated
	if c.authTimer != nil {
		c.authTimer.Stop()
	}
	return true
}

func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) IsAuthenticated() bool {
	return c.State() == StateAuthenticated
}

func (c *Connection) IsOpen() bool {
	return c.State() != StateClosed && c.ctx.Err() == nil
}

func (c *Connection) GetUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Connection) ID() string {
	return c.id
}

// Context is cancelled when the connection closes
func (c *Connection) Context() context.Context {
	return c.ctx
}
