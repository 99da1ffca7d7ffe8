package server

import (
	"context"
	"log/slog"

	"warden/internal/cache"
	"warden/internal/models"
	"warden/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

const welcomeMessage = "Welcome to the server! Read the rules channel before posting. " +
	"Moderators are available if you run into trouble."

type memberJoinBody struct {
	MemberID string `json:"member_id"`
}

// MemberJoinEvent ingests a member-join notification over HTTP. The same
// path is driven directly by the platform gateway in production.
func (s *Server) MemberJoinEvent(c *fiber.Ctx) error {
	var req memberJoinBody
	if err := c.BodyParser(&req); err != nil || req.MemberID == "" {
		return fail(c, models.NewValidationError("member_id is required"))
	}
	s.HandleMemberJoin(req.MemberID)
	return c.JSON(fiber.Map{"status": "accepted"})
}

// HandleMemberJoin greets a newly joined member with a direct message.
// Delivery is best-effort and deduplicated: a member who rejoins within the
// dedup window is not greeted twice.
func (s *Server) HandleMemberJoin(joinedID string) {
	ctx := s.shutdownCtx
	if ctx == nil {
		ctx = context.Background()
	}

	if !s.featureFlags.Enabled("welcome_dm", joinedID) {
		return
	}
	if !cache.ClaimOnce(ctx, cache.WelcomeKey(joinedID), cache.WelcomeTTL) {
		return
	}

	if err := s.gateway.SendDirectMessage(ctx, joinedID, welcomeMessage); err != nil {
		slog.WarnContext(ctx, "failed to deliver welcome message", "member_id", joinedID, "err", err)
		return
	}

	if err := s.notifier.Publish(ctx, notifications.Event{
		Type:     notifications.EventWelcome,
		TargetID: joinedID,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish welcome event", "err", err)
	}
}
