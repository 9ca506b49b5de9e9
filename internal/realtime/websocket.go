package realtime

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

const identityLocal = "realtime_identity"

// WebSocketHandler upgrades HTTP requests to hub-registered websocket
// sessions.
type WebSocketHandler struct {
	hub    *Hub
	authMW *auth.Middleware
	logger *zap.Logger
}

// NewWebSocketHandler constructs the handler.
func NewWebSocketHandler(hub *Hub, authMW *auth.Middleware, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, authMW: authMW, logger: logger}
}

// Upgrade gates the route on a websocket upgrade request and resolves the
// optional identity beforehand. Resolution fails open: an absent or invalid
// token still admits the connection, unbound.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		token = c.Cookies("token")
	}
	identity := h.authMW.ResolveRealtime(c.UserContext(), token)
	c.Locals(identityLocal, identity)
	return c.Next()
}

// Serve returns the websocket session handler. A dedicated writer drains
// the hub connection so per-connection delivery order follows publish
// order; the read loop exists to detect disconnects, which silently remove
// the connection from every channel.
func (h *WebSocketHandler) Serve() fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		identity, _ := ws.Locals(identityLocal).(*domain.User)
		conn := h.hub.Register(identity)
		defer h.hub.Unregister(conn)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for frame := range conn.Frames() {
				if err := ws.WriteJSON(frame); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.hub.Unregister(conn)
		<-writerDone
	})
}
