package server

import (
	"context"
	"encoding/json"

	"quad/internal/middleware"
	"quad/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// UpgradeRequired rejects plain HTTP requests on websocket routes.
func (s *Server) UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// presenceFrame is the inbound message shape on the presence socket.
type presenceFrame struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// WebSocketPresenceHandler handles GET /api/ws/presence. While the socket
// is open the connection itself keeps the user online; explicit heartbeat
// and typing frames update typing state immediately. Status changes for
// any tracked user are pushed to the client as they happen.
func (s *Server) WebSocketPresenceHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket presence register failed",
				"user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var frame presenceFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				middleware.Logger.Warn("invalid presence frame", "user_id", userID)
				return
			}
			switch frame.Type {
			case "heartbeat":
				s.presenceService.Heartbeat(context.Background(), userID, frame.Typing, "socket")
			case "typing":
				s.presenceService.Heartbeat(context.Background(), userID, frame.Typing, "socket")
			}
		}

		parent := s.shutdownCtx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		// The open connection heartbeats on the user's behalf.
		go s.presenceService.KeepAlive(ctx, userID)
		go client.WritePump()

		// Initial snapshot so the client does not wait for the first change.
		if snapshot, err := json.Marshal(fiber.Map{
			"type":    "presence",
			"payload": s.presenceService.Status(userID),
		}); err == nil {
			client.TrySend(snapshot)
		}

		client.ReadPump()
	})
}
