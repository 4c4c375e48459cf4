package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/smtpsink/smtpsink/pkg/msghub"
	"github.com/smtpsink/smtpsink/pkg/server/web"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// options for gorilla connection upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(req *http.Request) bool { return true },
}

// msgListener couples a hub registration to one WebSocket session.
type msgListener struct {
	hub *msghub.Hub
	c   chan []byte // queue of serialized notifications
}

// newMsgListener creates a listener and registers it with the hub.
func newMsgListener(hub *msghub.Hub) *msgListener {
	ml := &msgListener{
		hub: hub,
		c:   make(chan []byte, 100),
	}
	hub.AddListener(ml)
	return ml
}

// Receive queues an incoming payload for the socket without blocking the
// hub; a session that cannot keep up is dropped rather than queued further.
func (ml *msgListener) Receive(payload []byte) error {
	select {
	case ml.c <- payload:
		return nil
	default:
		return errors.New("observer queue full")
	}
}

// WSReader makes sure the websocket client is still connected, discards any
// messages from client.
func (ml *msgListener) WSReader(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()
	defer ml.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn().Err(err).Msg("Failed to setup read deadline")
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Warn().Err(err).Msg("Failed to set read deadline in pong")
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				slog.Warn().Err(err).Msg("Socket error")
			} else {
				slog.Debug().Msg("Closing socket")
			}
			break
		}
	}
}

// WSWriter relays queued notifications to the websocket client and keeps the
// connection alive with pings.
func (ml *msgListener) WSWriter(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ml.Close()
	}()

	// Handle payloads from hub until msgListener is closed.
	for {
		select {
		case payload, ok := <-ml.c:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for msg")
			}
			if !ok {
				// msgListener closed, exit.
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if conn.WriteMessage(websocket.TextMessage, payload) != nil {
				// Write failed.
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for ping")
			}
			if conn.WriteMessage(websocket.PingMessage, []byte{}) != nil {
				return
			}
		}
	}
}

// Close removes the listener registration.
func (ml *msgListener) Close() {
	select {
	case <-ml.c:
		// Already closed
	default:
		ml.hub.RemoveListener(ml)
		close(ml.c)
	}
}

// MonitorMessagesV1 is a web handler which upgrades the connection to a
// websocket and notifies the client of each captured message.
func MonitorMessagesV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	log.Debug().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Msg("Upgraded to WebSocket")
	// Create, register listener; then interact with conn.
	ml := newMsgListener(ctx.MsgHub)
	go ml.WSWriter(conn)
	ml.WSReader(conn)
	return nil
}
