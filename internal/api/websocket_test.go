package api_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1-visualizer/backend/internal/api"
	"github.com/f1-visualizer/backend/internal/models"
)

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/ws/sessions"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	// Server greets with a connected message.
	var hello api.WSMessage
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, api.MsgTypeConnected, hello.Type)
	return ws
}

func TestWebSocketPing(t *testing.T) {
	env := newTestEnv(t)
	ws := dialWS(t, env)

	require.NoError(t, ws.WriteJSON(api.WSMessage{Type: api.MsgTypePing}))

	var msg api.WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, api.MsgTypePong, msg.Type)
}

func TestWebSocketSubscribeProgress(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)
	ws := dialWS(t, env)

	require.NoError(t, ws.WriteJSON(api.WSMessage{Type: api.MsgTypeSubscribe, SessionID: id}))

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg api.WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, api.MsgTypeStatus, msg.Type)
	require.NotNil(t, msg.Session)
	assert.Equal(t, models.StatusComplete, msg.Session.Status)
	assert.Equal(t, id, msg.SessionID)
}

func TestWebSocketSubscribeUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	ws := dialWS(t, env)

	require.NoError(t, ws.WriteJSON(api.WSMessage{Type: api.MsgTypeSubscribe, SessionID: "nope"}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, api.MsgTypeError, msg.Type)
	assert.Contains(t, msg.Message, "not found")
}

func TestWebSocketUnknownType(t *testing.T) {
	env := newTestEnv(t)
	ws := dialWS(t, env)

	require.NoError(t, ws.WriteJSON(api.WSMessage{Type: "bogus"}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg api.WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, api.MsgTypeError, msg.Type)
	assert.Contains(t, msg.Message, "unknown message type")
}
