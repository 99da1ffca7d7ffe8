package server

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/models"
	"warden/internal/trust"
	"warden/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type banRequestBody struct {
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"`
}

type voteBody struct {
	Approve bool `json:"approve"`
}

// CreateBanRequest opens a ban-request vote for the target and fans out vote
// prompts to every weighted member.
func (s *Server) CreateBanRequest(c *fiber.Ctx) error {
	var req banRequestBody
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateSnowflake(req.TargetID); err != nil {
		return fail(c, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateReason(req.Reason); err != nil {
		return fail(c, models.NewValidationError(err.Error()))
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	snap, err := s.banVotes.OpenRequest(c.UserContext(), actor, req.TargetID, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// GetBanRequests lists open voting sessions. Staff only.
func (s *Server) GetBanRequests(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	if !trust.Recognized(actor) {
		return fail(c, models.NewUnauthorizedError("You are not allowed to view ban requests"))
	}
	sessions := s.banVotes.Sessions()
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

// CastVote applies the caller's vote to the session named in the path.
func (s *Server) CastVote(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	var req voteBody
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return fail(c, err)
	}
	snap, err := s.banVotes.CastVote(c.UserContext(), sessionID, actor, req.Approve)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(snap)
}

// HandleVoteChoice is the platform-gateway callback for vote button clicks.
// The returned string is shown privately to the voter.
func (s *Server) HandleVoteChoice(sessionID, voterID string, approve bool) string {
	ctx := s.shutdownCtx
	if ctx == nil {
		ctx = context.Background()
	}

	voter, err := s.gateway.Member(ctx, voterID)
	if err != nil {
		slog.Warn("failed to resolve voter", "voter_id", voterID, "err", err)
		return "Could not verify your guild membership."
	}

	snap, err := s.banVotes.CastVote(ctx, sessionID, voter, approve)
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok {
			switch appErr.Code {
			case "ALREADY_VOTED":
				return "You have already voted on this request."
			case "INELIGIBLE":
				return "You are not eligible to vote on ban requests."
			case "NOT_FOUND":
				return "This ban request has already been resolved."
			}
		}
		return "Your vote could not be counted."
	}

	if snap.Resolved {
		if snap.Outcome == "executed" {
			return "Vote counted. The ban has passed."
		}
		return "Vote counted. The request was rejected."
	}
	return fmt.Sprintf("Vote counted. Ban %d/%d, reject %d/%d.",
		snap.BanWeight, snap.Threshold, snap.CancelWeight, snap.Threshold)
}
