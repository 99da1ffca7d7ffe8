package server

import (
	"strconv"

	"warden/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPunishments returns the target's punishment log, oldest first.
func (s *Server) GetPunishments(c *fiber.Ctx) error {
	targetID := c.Params("targetId")
	if targetID == "" {
		return fail(c, models.NewValidationError("targetId is required"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	records, err := s.moderation.History(c.UserContext(), actor, targetID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"target_id":   targetID,
		"punishments": records,
		"count":       len(records),
	})
}

// DeletePunishment removes one entry (1-based index) from the target's log.
func (s *Server) DeletePunishment(c *fiber.Ctx) error {
	targetID := c.Params("targetId")
	entry, err := strconv.Atoi(c.Params("entry"))
	if err != nil || entry < 1 {
		return fail(c, models.NewValidationError("entry must be a positive integer"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	removed, err := s.moderation.RemoveHistoryEntry(c.UserContext(), actor, targetID, entry)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted", "removed": removed})
}
