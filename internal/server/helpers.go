package server

import (
	"fmt"
	"time"

	"warden/internal/models"
	"warden/internal/trust"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// wsTicketTTL bounds how long an issued WebSocket ticket stays redeemable.
const wsTicketTTL = 30 * time.Second

// memberID returns the authenticated caller's platform member ID from locals.
func memberID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals("memberID").(string)
	if !ok || id == "" {
		return "", models.NewUnauthorizedError("Authorization required")
	}
	return id, nil
}

// actor resolves the authenticated caller to a guild member with their
// current role set. Trust is always evaluated against live roles.
func (s *Server) actor(c *fiber.Ctx) (trust.Member, error) {
	id, err := memberID(c)
	if err != nil {
		return trust.Member{}, err
	}
	member, err := s.gateway.Member(c.UserContext(), id)
	if err != nil {
		return trust.Member{}, models.NewUnauthorizedError("You are not a member of this guild")
	}
	return member, nil
}

// fail maps a service error onto the right HTTP status.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// IssueWSTicket mints a short-lived single-use ticket for WebSocket
// authentication, since browsers cannot set headers on upgrade requests.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	id, err := memberID(c)
	if err != nil {
		return fail(c, err)
	}
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("ticket store unavailable")))
	}

	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, id, wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
