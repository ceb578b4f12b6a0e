// Package wsserver is the optional websocket transport adapter selected by
// RPGCORE_TRANSPORT=websocket in cmd/server/main.go, an alternative to the
// default stdio MCP transport for callers that want a long-lived connection.
// It is adapted from the teacher's internal/server.Client (readPump/writePump,
// ping/pong keepalive, upgrader) and internal/network.Hub (register/unregister
// a per-connection subscriber), generalized from the teacher's continuous
// game-command loop into one request/response tool invocation per inbound
// frame, dispatched through the same Invoke function the stdio transport
// calls — cmd/server/main.go wires both transports to its one
// session-serialized, audited entry point rather than to
// internal/registry.Registry.Invoke directly.
package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/eventbus"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/registry"
	"github.com/Mnehmos/mnehmos.rpg.mcp/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Invoke is the session-serialized, audited entry point this transport
// dispatches every frame through — the same function signature
// internal/registry.Registry.Invoke has, but callers must pass their actual
// wrapper (cmd/server's auditedInvoke), never reg.Invoke itself, or the
// per-session single-flight lock, audit trail, and event bus all silently
// stop applying to this transport.
type Invoke func(ctx context.Context, name string, raw json.RawMessage, sess registry.SessionContext) (registry.Envelope, error)

// Server upgrades HTTP connections to websockets and dispatches each framed
// request through invoke. Zero value is not usable; construct with New.
type Server struct {
	invoke Invoke
	events *eventbus.Bus
}

func New(invoke Invoke, events *eventbus.Bus) *Server {
	return &Server{invoke: invoke, events: events}
}

// Request is one inbound frame: a tool invocation scoped to a session, the
// same (name, arguments, sessionId) triple the stdio transport carries.
type Request struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	SessionID string          `json:"sessionId"`
}

// Response echoes the request id alongside the registry's response envelope.
// A failed invocation arrives as an error envelope in Content; this server
// never sets Error.
type Response struct {
	ID      string             `json:"id"`
	Content []registry.Content `json:"content,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// event is pushed to a connection out-of-band from any tool response, for
// callers that stay connected to observe world/combat state changes other
// sessions caused (the teacher's Hub broadcast, generalized from per-entity
// game state to named domain events).
type event struct {
	Event *eventPayload `json:"event"`
}

type eventPayload struct {
	ID      int64          `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// ServeHTTP upgrades the connection and runs its read/write pumps until the
// client disconnects. Mount at whatever path cmd/server chooses.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan any, 256)}
	go c.writePump()
	s.readPump(c)
}

type client struct {
	conn *websocket.Conn
	send chan any
}

// readPump decodes one Request per frame and dispatches it synchronously;
// unlike the teacher's continuous command loop this never touches a shared
// game instance directly, every call goes through s.invoke so the same
// per-session serialization (internal/session.Manager), audit logging, and
// event publication cmd/server wires into that function apply regardless of
// transport.
func (s *Server) readPump(c *client) {
	defer func() {
		close(c.send)
		if err := c.conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("failed to close websocket connection")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var unsubscribe func()
	defer func() {
		if unsubscribe != nil {
			unsubscribe()
		}
	}()

	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.WithError(err).Warn("websocket read error")
			}
			return
		}

		if req.SessionID != "" && unsubscribe == nil && s.events != nil {
			unsubscribe = s.subscribeEvents(c, req.SessionID)
		}

		env, err := s.invoke(context.Background(), req.Name, req.Arguments, registry.SessionContext{SessionID: req.SessionID})
		if err != nil {
			env = registry.ToErrorEnvelope(err)
		}
		c.send <- Response{ID: req.ID, Content: env.Content}
	}
}

// subscribeEvents mirrors the teacher's Hub.Register: one bus subscription
// per connection, forwarding every event into the same send channel the
// tool responses use so frame ordering on the wire reflects emission order.
func (s *Server) subscribeEvents(c *client, sessionID string) func() {
	ch, unsub := s.events.Subscribe("ws:" + sessionID)
	go func() {
		for evt := range ch {
			c.send <- event{Event: &eventPayload{ID: evt.ID, Type: evt.Type, Payload: evt.Payload}}
		}
	}()
	return unsub
}

// writePump serializes every queued message to the wire and keeps the
// connection alive with periodic pings, identical in shape to the teacher's
// Client.writePump.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
