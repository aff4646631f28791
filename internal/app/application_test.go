package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/api"
	"portal/internal/config"
	"portal/pkg/types"
)

type e2e struct {
	app    *Application
	server *httptest.Server
}

func newE2E(t *testing.T) *e2e {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "portal.db")
	cfg.WebSocket.AuthTimeout = 500 * time.Millisecond

	app, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, app.startWorkers(ctx))

	server := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		server.Close()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
		cancel()
	})
	return &e2e{app: app, server: server}
}

func (e *e2e) connect(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.WriteJSON(types.AuthenticateEvent{Type: types.EventAuthenticate, UserID: userID}))
	var ack types.AuthenticatedEvent
	require.NoError(t, readJSON(client, &ack, time.Second))
	require.Equal(t, types.EventAuthenticated, ack.Type)
	return client
}

func readJSON(client *websocket.Conn, v interface{}, timeout time.Duration) error {
	if err := client.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return client.ReadJSON(v)
}

// expectSilence asserts nothing arrives within d
func expectSilence(t *testing.T, client *websocket.Conn, d time.Duration) {
	t.Helper()
	var extra map[string]any
	err := readJSON(client, &extra, d)
	assert.Error(t, err, "unexpected event %v", extra)
}

func (e *e2e) history(t *testing.T, userID, query string) []types.Message {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/messages"+query, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", userID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []types.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *e2e) post(t *testing.T, userID, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/messages", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func waitForRows(t *testing.T, e *e2e, userID, query string, n int) []types.Message {
	t.Helper()
	var rows []types.Message
	require.Eventually(t, func() bool {
		rows = e.history(t, userID, query)
		return len(rows) >= n
	}, 3*time.Second, 20*time.Millisecond)
	return rows
}

func TestApplication_DirectMessageEndToEnd(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	require.NoError(t, alice.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "hello bob",
	}))

	var pushed types.NewMessageEvent
	require.NoError(t, readJSON(bob, &pushed, 2*time.Second))
	assert.Equal(t, types.EventNewMessage, pushed.Type)
	assert.Equal(t, "alice", pushed.Message.SenderID)
	assert.Equal(t, "hello bob", pushed.Message.Content)

	// The push follows the durable write
	rows := e.history(t, "bob", "?receiverId=alice")
	require.Len(t, rows, 1)
	assert.Equal(t, pushed.Message.ID, rows[0].ID)

	expectSilence(t, alice, 200*time.Millisecond)
}

func TestApplication_OfflineRecipientStillPersisted(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")

	require.NoError(t, alice.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, ReceiverID: "carol", Content: "see this later",
	}))

	rows := waitForRows(t, e, "carol", "", 1)
	assert.Equal(t, "alice", rows[0].SenderID)
	expectSilence(t, alice, 200*time.Millisecond)
}

func TestApplication_UnauthenticatedMessageNotPersisted(t *testing.T) {
	e := newE2E(t)
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, SenderID: "alice", ReceiverID: "bob", Content: "sneaky",
	}))

	var reply types.ErrorEvent
	require.NoError(t, readJSON(client, &reply, time.Second))
	assert.Equal(t, types.EventError, reply.Type)
	assert.Empty(t, e.history(t, "bob", ""))
}

func TestApplication_HandshakeTimeoutClosesConnection(t *testing.T) {
	e := newE2E(t)
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	var ignored map[string]any
	err = readJSON(client, &ignored, 2*time.Second)
	require.Error(t, err)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, types.CloseAuthTimeout, closeErr.Code)
	assert.Equal(t, types.CloseAuthTimeoutReason, closeErr.Text)
	assert.Equal(t, 0, e.app.registry.Count())
}

func TestApplication_StopClosesPendingHandshakes(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	pending, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer pending.Close()

	// A reply proves the server side is tracking the handshake connection
	require.NoError(t, pending.WriteJSON(types.MessageEvent{Type: types.EventMessage, ReceiverID: "bob", Content: "early"}))
	var reply types.ErrorEvent
	require.NoError(t, readJSON(pending, &reply, time.Second))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.app.Stop(stopCtx))

	for _, client := range []*websocket.Conn{pending, alice} {
		var ignored map[string]any
		err := readJSON(client, &ignored, 2*time.Second)
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	}
	assert.Equal(t, 0, e.app.registry.Count())
}

func TestApplication_HistoryIsOrdered(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, alice.WriteJSON(types.MessageEvent{
			Type: types.EventMessage, ReceiverID: "bob", Content: content,
		}))
	}

	rows := waitForRows(t, e, "alice", "?receiverId=bob", 3)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].CreatedAt.Before(rows[i-1].CreatedAt))
	}
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{rows[0].Content, rows[1].Content, rows[2].Content})
}

func TestApplication_DualPathWithKeyCollapsesToOneRow(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")
	bob := e.connect(t, "bob")

	require.NoError(t, alice.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, ReceiverID: "bob", Content: "once", ClientMessageID: "k-1",
	}))
	resp := e.post(t, "alice", `{"content":"once","receiverId":"bob"}`,
		map[string]string{api.IdempotencyKeyHeader: "k-1"})
	assert.Contains(t, []int{http.StatusOK, http.StatusCreated}, resp.StatusCode)

	var pushed types.NewMessageEvent
	require.NoError(t, readJSON(bob, &pushed, 2*time.Second))
	assert.Equal(t, "once", pushed.Message.Content)
	expectSilence(t, bob, 300*time.Millisecond)

	rows := e.history(t, "alice", "?receiverId=bob")
	assert.Len(t, rows, 1)
}

func TestApplication_DualPathWithoutKeyCreatesTwoRows(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")

	require.NoError(t, alice.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, ReceiverID: "bob", Content: "twice",
	}))
	resp := e.post(t, "alice", `{"content":"twice","receiverId":"bob"}`, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	rows := waitForRows(t, e, "alice", "?receiverId=bob", 2)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].Content, rows[1].Content)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestApplication_SenderMismatchRejected(t *testing.T) {
	e := newE2E(t)
	alice := e.connect(t, "alice")

	require.NoError(t, alice.WriteJSON(types.MessageEvent{
		Type: types.EventMessage, SenderID: "mallory", ReceiverID: "bob", Content: "spoof",
	}))

	var reply types.ErrorEvent
	require.NoError(t, readJSON(alice, &reply, 2*time.Second))
	assert.Equal(t, types.EventError, reply.Type)
	assert.False(t, reply.Retryable)
	assert.Empty(t, e.history(t, "bob", ""))
}

func TestApplication_HealthAndStats(t *testing.T) {
	e := newE2E(t)
	e.connect(t, "alice")

	resp, err := http.Get(e.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "alice")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats api.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Connections["total_connections"])
}

func TestNewApplication_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HTTP.Port = 0

	_, err := NewApplication(cfg)
	assert.Error(t, err)
}
