package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"portal/internal/auth"
	"portal/pkg/interfaces"
	"portal/pkg/logger"
	"portal/pkg/types"
)

// maxFrameSize bounds a single inbound frame
const maxFrameSize = 64 * 1024

// WebSocket upgrader with production-ready settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// FUNCTIONAL DISCOVERY: Allow all origins; the portal UI is served
		// from a separate host in development
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// MessageSubmitter accepts authenticated message events for asynchronous
// dispatch. Submit must not block on persistence.
type MessageSubmitter interface {
	Submit(sender interfaces.Connection, event *types.MessageEvent) error
}

// HandlerConfig carries transport timing
type HandlerConfig struct {
	AuthTimeout  time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// DefaultHandlerConfig matches the server defaults
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		AuthTimeout:  10 * time.Second,
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

// Handler upgrades requests and runs the authentication handshake and read
// loop of each connection
// ARCHITECTURAL DISCOVERY: The handler owns connection lifecycle only; message
// persistence and fan-out are delegated to the submitter
type Handler struct {
	registry      interfaces.Registry
	authenticator auth.Authenticator
	submitter     MessageSubmitter
	config        HandlerConfig
	log           zerolog.Logger

	// Every upgraded connection, including those still in the handshake window
	openMu sync.Mutex
	open   map[*Connection]struct{}
}

func NewHandler(registry interfaces.Registry, authenticator auth.Authenticator, submitter MessageSubmitter, config HandlerConfig) *Handler {
	defaults := DefaultHandlerConfig()
	if config.AuthTimeout <= 0 {
		config.AuthTimeout = defaults.AuthTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &Handler{
		registry:      registry,
		authenticator: authenticator,
		submitter:     submitter,
		config:        config,
		log:           logger.Component("websocket"),
		open:          make(map[*Connection]struct{}),
	}
}

// HandleWebSocket upgrades the request and starts the handshake window.
// Identity is presented afterwards with an authenticate event.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	wsConn := NewConnection(conn, h.config.BufferSize, h.config.WriteTimeout)
	h.log.Debug().Str("conn_id", wsConn.ID()).Str("remote", r.RemoteAddr).Msg("connection opened")

	h.track(wsConn)
	wsConn.StartAuthTimer(h.config.AuthTimeout, func() {
		h.log.Info().Str("conn_id", wsConn.ID()).Dur("timeout", h.config.AuthTimeout).Msg("authentication timeout")
	})

	go h.handleConnection(wsConn)
}

// handleConnection runs heartbeat and the read pump until the transport closes
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		// Only an authenticated connection has a registry entry; Release keeps
		// a newer connection for the same user in place
		if userID := conn.GetUserID(); userID != "" {
			if h.registry.Release(userID, conn) {
				h.log.Info().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("connection unregistered")
			}
		}
		_ = conn.Close()
		h.untrack(conn)
	}()

	conn.conn.SetReadLimit(maxFrameSize)

	// TECHNICAL DISCOVERY: read deadline refreshed by pongs with pings sent at a
	// shorter interval keeps idle but healthy clients connected
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	go h.pingLoop(conn)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) && conn.IsOpen() {
				h.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("websocket read error")
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}
		h.handleFrame(conn, data)
	}
}

func (h *Handler) track(conn *Connection) {
	h.openMu.Lock()
	h.open[conn] = struct{}{}
	h.openMu.Unlock()
}

func (h *Handler) untrack(conn *Connection) {
	h.openMu.Lock()
	delete(h.open, conn)
	h.openMu.Unlock()
}

// CloseAll closes every open connection with 1001 "Server shutting down",
// authenticated or not, and returns how many it closed
func (h *Handler) CloseAll() int {
	h.openMu.Lock()
	conns := make([]*Connection, 0, len(h.open))
	for conn := range h.open {
		conns = append(conns, conn)
	}
	h.openMu.Unlock()

	for _, conn := range conns {
		_ = conn.CloseWithCode(websocket.CloseGoingAway, "Server shutting down")
	}
	return len(conns)
}

func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				return
			}
		case <-conn.Context().Done():
			return
		}
	}
}

// handleFrame decodes one event and routes it by type. Every failure is
// reported to the sender and leaves the connection open.
func (h *Handler) handleFrame(conn *Connection, data []byte) {
	var envelope types.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.reply(conn, types.NewErrorEvent(MsgInvalidFormat))
		return
	}

	switch envelope.Type {
	case types.EventAuthenticate:
		h.handleAuthenticate(conn, data)
	case types.EventMessage:
		h.handleMessage(conn, data)
	default:
		h.reply(conn, types.NewErrorEvent(MsgUnknownEvent))
	}
}

func (h *Handler) handleAuthenticate(conn *Connection, data []byte) {
	if conn.IsAuthenticated() {
		h.reply(conn, types.NewErrorEvent(MsgAlreadyAuthenticated))
		return
	}

	var event types.AuthenticateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.reply(conn, types.NewErrorEvent(MsgInvalidFormat))
		return
	}

	ctx, cancel := context.WithTimeout(conn.Context(), h.config.AuthTimeout)
	defer cancel()

	userID, err := h.authenticator.Authenticate(ctx, event.UserID, event.Token)
	if err != nil {
		h.log.Info().Err(err).Str("conn_id", conn.ID()).Str("claimed_user", event.UserID).Msg("authentication rejected")
		h.reply(conn, types.NewErrorEvent(authErrorMessage(err)))
		return
	}
	if !types.IsValidID(userID) {
		h.reply(conn, types.NewErrorEvent(MsgInvalidUserID))
		return
	}

	// Loses only to the handshake timer
	if !conn.Authenticate(userID) {
		return
	}

	h.registry.Register(userID, conn)
	h.log.Info().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("connection authenticated")
	h.reply(conn, types.NewAuthenticatedEvent(userID))
}

func (h *Handler) handleMessage(conn *Connection, data []byte) {
	if !conn.IsAuthenticated() {
		h.reply(conn, types.NewErrorEvent(MsgNotAuthenticated))
		return
	}

	var event types.MessageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.reply(conn, types.NewErrorEvent(MsgInvalidFormat))
		return
	}

	if err := h.submitter.Submit(conn, &event); err != nil {
		h.log.Warn().Err(err).Str("user_id", conn.GetUserID()).Msg("message rejected by hub")
		h.reply(conn, types.ErrorEvent{
			Type:            types.EventError,
			Message:         MsgServerBusy,
			Retryable:       true,
			ClientMessageID: event.ClientMessageID,
		})
	}
}

func (h *Handler) reply(conn *Connection, payload interface{}) {
	if err := conn.WriteJSON(payload); err != nil {
		h.log.Debug().Err(err).Str("conn_id", conn.ID()).Msg("reply dropped")
	}
}

// authErrorMessage exposes the authenticator's own rejections and hides
// infrastructure failures
func authErrorMessage(err error) string {
	for _, known := range []error{
		auth.ErrMissingUserID, auth.ErrMissingToken, auth.ErrInvalidToken,
		auth.ErrSubjectMismatch, auth.ErrUnknownUser,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return MsgAuthFailed
}
