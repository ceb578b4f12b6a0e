package wsserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/eventbus"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
)

type echoPayload struct {
	Message string `json:"message"`
}

func newTestServer(t *testing.T) (*httptest.Server, *eventbus.Bus) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, registry.RegisterTyped(reg, "echo", "echoes the message back", func(ctx context.Context, sess registry.SessionContext, p echoPayload) (string, any, error) {
		return "ok", map[string]any{"echoed": p.Message, "sessionId": sess.SessionID}, nil
	}))
	events := eventbus.New()
	srv := httptest.NewServer(New(reg.Invoke, events))
	t.Cleanup(srv.Close)
	return srv, events
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServeHTTP_DispatchesToolCallAndReturnsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{ID: "1", Name: "echo", Arguments: json.RawMessage(`{"message":"hi"}`), SessionID: "sess1"}))

	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "1", resp.ID)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Content, 1)
	require.Contains(t, resp.Content[0].Text, "echoed")
}

func TestServeHTTP_UnknownToolReturnsErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{ID: "2", Name: "nope", SessionID: "sess1"}))

	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.Len(t, resp.Content, 1)
	require.Contains(t, resp.Content[0].Text, "UnknownTool")
}

func TestServeHTTP_ForwardsBusEventsToSubscribedSession(t *testing.T) {
	srv, events := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Request{ID: "1", Name: "echo", Arguments: json.RawMessage(`{"message":"hi"}`), SessionID: "sess1"}))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))

	events.Publish("combat.attack", map[string]any{"hit": true})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var raw map[string]any
	require.NoError(t, conn.ReadJSON(&raw))
	require.Contains(t, raw, "event")
}
