package server

import (
	"warden/internal/models"
	"warden/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type actionRequest struct {
	TargetID string `json:"target_id"`
	Duration string `json:"duration,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func parseActionRequest(c *fiber.Ctx) (actionRequest, error) {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, models.NewValidationError("Invalid request body")
	}
	if req.TargetID == "" {
		return req, models.NewValidationError("target_id is required")
	}
	if err := validation.ValidateSnowflake(req.TargetID); err != nil {
		return req, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateReason(req.Reason); err != nil {
		return req, models.NewValidationError(err.Error())
	}
	return req, nil
}

// BanAction permanently bans the target member. Elevated tier only.
func (s *Server) BanAction(c *fiber.Ctx) error {
	req, err := parseActionRequest(c)
	if err != nil {
		return fail(c, err)
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.moderation.Ban(c.UserContext(), actor, req.TargetID, req.Reason); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "banned", "target_id": req.TargetID})
}

// TimeoutAction silences the target for a duration like "10s", "5m", "1h", "2d".
func (s *Server) TimeoutAction(c *fiber.Ctx) error {
	req, err := parseActionRequest(c)
	if err != nil {
		return fail(c, err)
	}
	if req.Duration == "" {
		return fail(c, models.NewValidationError("duration is required"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.moderation.Timeout(c.UserContext(), actor, req.TargetID, req.Duration, req.Reason); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "timed_out", "target_id": req.TargetID, "duration": req.Duration})
}

// WarnAction records a warning against the target and notifies them.
func (s *Server) WarnAction(c *fiber.Ctx) error {
	req, err := parseActionRequest(c)
	if err != nil {
		return fail(c, err)
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.moderation.Warn(c.UserContext(), actor, req.TargetID, req.Reason); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "warned", "target_id": req.TargetID})
}

// UnbanAction lifts a ban. Elevated tier only.
func (s *Server) UnbanAction(c *fiber.Ctx) error {
	req, err := parseActionRequest(c)
	if err != nil {
		return fail(c, err)
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.moderation.Unban(c.UserContext(), actor, req.TargetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "unbanned", "target_id": req.TargetID})
}

// UnmuteAction clears an active timeout on the target.
func (s *Server) UnmuteAction(c *fiber.Ctx) error {
	req, err := parseActionRequest(c)
	if err != nil {
		return fail(c, err)
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := s.moderation.Unmute(c.UserContext(), actor, req.TargetID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "unmuted", "target_id": req.TargetID})
}

// GetBans returns the guild's current ban list. Elevated tier only.
func (s *Server) GetBans(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	bans, err := s.moderation.ListBans(c.UserContext(), actor)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"bans": bans, "count": len(bans)})
}
