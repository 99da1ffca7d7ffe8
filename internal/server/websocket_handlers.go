package server

import (
	"context"
	"log"

	"warden/internal/trust"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedHandler serves the moderator live feed over WebSocket. Only recognized
// staff may connect; every moderation event is pushed as a JSON payload.
func (s *Server) FeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		id, ok := conn.Locals("memberID").(string)
		if !ok || id == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		member, err := s.gateway.Member(ctx, id)
		if err != nil || !trust.Recognized(member) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"forbidden"}`))
			_ = conn.Close()
			return
		}

		if !s.featureFlags.Enabled("mod_feed", id) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"feed disabled"}`))
			_ = conn.Close()
			return
		}

		if err := s.hub.Register(id, conn); err != nil {
			log.Printf("feed: failed to register member %s: %v", id, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.Unregister(id, conn)

		log.Printf("feed: member %s (%s) connected", id, member.Username)

		// The feed is push-only; drain the connection until the client leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
