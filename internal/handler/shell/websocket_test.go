package shell

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatservice "github.com/zhouzirui/legal-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/legal-assistant/backend/internal/view"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func startServer(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	return startServerWithOrigins(t, []string{"*"})
}

func startServerWithOrigins(t *testing.T, origins []string) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	svc := chatservice.NewService()
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	r := chi.NewRouter()
	NewWebSocketHandler(svc, renderer, origins, nil).RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func wsURL(srv *httptest.Server, sessionID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, sessionID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) StatePayload {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, "state", msg.Type, string(msg.Data))
	var state StatePayload
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	return state
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

func TestWebSocketSubmitFlow(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	initial := readState(t, conn)
	assert.Zero(t, initial.MessageCount)
	assert.False(t, initial.Composer.ContextVisible)

	send(t, conn, "question", map[string]string{"text": "What is consideration?"})
	state := readState(t, conn)
	assert.Equal(t, "What is consideration?", state.Composer.Question)

	send(t, conn, "toggleContext", map[string]bool{"visible": true})
	state = readState(t, conn)
	assert.True(t, state.Composer.ContextVisible)

	send(t, conn, "context", map[string]string{"text": "Loan agreement dispute"})
	state = readState(t, conn)
	assert.Equal(t, "Loan agreement dispute", state.Composer.Context)

	send(t, conn, "submit", nil)
	state = readState(t, conn)
	assert.Equal(t, 2, state.MessageCount)
	assert.Empty(t, state.Composer.Question)
	assert.Empty(t, state.Composer.Context)
	assert.False(t, state.Composer.ContextVisible)
	html := string(state.MessagesHTML)
	assert.Contains(t, html, "Context: Loan agreement dispute")
	assert.Contains(t, html, "Indian Contract Act, 1872")
}

func TestWebSocketBlankSubmitKeepsState(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	readState(t, conn)

	send(t, conn, "question", map[string]string{"text": "   "})
	readState(t, conn)
	send(t, conn, "submit", nil)
	state := readState(t, conn)

	assert.Zero(t, state.MessageCount)
	assert.Equal(t, "   ", state.Composer.Question)
}

func TestWebSocketContextWhileHidden(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	readState(t, conn)

	send(t, conn, "context", map[string]string{"text": "nope"})
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	state := readState(t, conn)
	assert.Empty(t, state.Composer.Context)
}

func TestWebSocketUnknownType(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	readState(t, conn)

	send(t, conn, "upload", nil)
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Data), "unsupported message type: upload")
}

func TestWebSocketDisconnectDiscardsSession(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	readState(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool { return svc.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := startServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketSecondClientRejected(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreatePageSession(context.Background())
	require.NoError(t, err)

	owner := dial(t, srv, session.ID)
	readState(t, owner)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, session.ID), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	send(t, owner, "question", TextMessage{Text: "still mine"})
	state := readState(t, owner)
	assert.Equal(t, "still mine", state.Composer.Question)
	assert.Equal(t, 1, svc.Count())
}

func TestWebSocketOversizedFrameClosesConnection(t *testing.T) {
	srv, svc := startServer(t)
	session, err := svc.CreatePageSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, session.ID)
	readState(t, conn)

	huge := strings.Repeat("a", maxMessageSize+1)
	_ = conn.WriteJSON(map[string]any{"type": "question", "data": TextMessage{Text: huge}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool { return svc.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, svc := startServerWithOrigins(t, []string{"http://legal.test"})
	session, err := svc.CreatePageSession(context.Background())
	require.NoError(t, err)

	header := http.Header{"Origin": []string{"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, session.ID), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The page's own socket can still attach afterwards.
	header = http.Header{"Origin": []string{"http://legal.test"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, session.ID), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	readState(t, conn)
}
