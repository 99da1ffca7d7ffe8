// Package service provides the moderation business logic: direct punitive
// actions, the punishment log, and the ban-request consensus engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/observability"
	"warden/internal/platform"
	"warden/internal/repository"
	"warden/internal/trust"
	"warden/internal/validation"
)

// ModerationService executes privileged actions against guild members and
// maintains the punishment log. Quorum-resolved bans go through
// ExecuteQuorumBan, which skips the caller authorization check.
type ModerationService struct {
	gateway  platform.Gateway
	records  repository.PunishmentRepository
	notifier *notifications.Notifier
	now      func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(
	gateway platform.Gateway,
	records repository.PunishmentRepository,
	notifier *notifications.Notifier,
) *ModerationService {
	return &ModerationService{
		gateway:  gateway,
		records:  records,
		notifier: notifier,
		now:      time.Now,
	}
}

// noticeText is the fixed-format direct message sent to a punished member.
func noticeText(title, reason string) string {
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("**%s**\nReason: %s", title, reason)
}

// notify direct-messages the target. Delivery is best-effort: failures are
// logged and swallowed, never surfaced to the caller.
func (s *ModerationService) notify(ctx context.Context, targetID, title, reason string) {
	if err := s.gateway.SendDirectMessage(ctx, targetID, noticeText(title, reason)); err != nil {
		slog.WarnContext(ctx, "failed to deliver punishment notice",
			"target_id", targetID, "action", title, "err", err)
	}
}

// record appends a punishment record and publishes a feed event. Log append
// failures are reported; feed publication is best-effort.
func (s *ModerationService) record(ctx context.Context, rec *models.PunishmentRecord) error {
	if err := s.records.Append(ctx, rec); err != nil {
		return err
	}
	observability.PunishmentsIssued.WithLabelValues(string(rec.Action), rec.Issuer).Inc()
	if err := s.notifier.Publish(ctx, notifications.Event{
		Type:     notifications.EventPunishment,
		TargetID: rec.TargetID,
		Actor:    rec.Issuer,
		Action:   string(rec.Action),
		Reason:   rec.Reason,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish punishment event", "err", err)
	}
	return nil
}

// mapPlatformError translates gateway sentinels into caller-facing errors.
func mapPlatformError(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, platform.ErrForbidden):
		return models.NewForbiddenError(fmt.Sprintf("The platform refused to %s this member", action))
	case errors.Is(err, platform.ErrNotFound):
		return models.NewNotFoundError("Member", action)
	default:
		return models.NewInternalError(err)
	}
}

// Ban permanently bans the target. Requires the elevated tier. The notice and
// log entry are written before the platform call; a Forbidden outcome
// therefore still leaves a log entry behind.
func (s *ModerationService) Ban(ctx context.Context, actor trust.Member, targetID, reason string) error {
	if !trust.Elevated(actor) {
		return models.NewUnauthorizedError("You are not allowed to ban members")
	}
	return s.executeBanAs(ctx, actor.ID, targetID, reason)
}

// ExecuteQuorumBan performs the ban primitive on behalf of a resolved
// ban-request vote. Quorum authorization supersedes the tier check; the
// issuer records the quorum marker plus the original requester.
func (s *ModerationService) ExecuteQuorumBan(ctx context.Context, requesterID, targetID, reason string) error {
	issuer := fmt.Sprintf("%s:%s", models.QuorumIssuer, requesterID)
	return s.executeBanAs(ctx, issuer, targetID, reason)
}

func (s *ModerationService) executeBanAs(ctx context.Context, issuer, targetID, reason string) error {
	s.notify(ctx, targetID, "You have been banned", reason)
	if err := s.record(ctx, &models.PunishmentRecord{
		TargetID: targetID,
		Action:   models.ActionBan,
		Reason:   reason,
		Issuer:   issuer,
	}); err != nil {
		return err
	}
	return mapPlatformError(s.gateway.BanMember(ctx, targetID, reason), "ban")
}

// Timeout silences the target for the given duration string. Requires any
// recognized tier. An invalid duration fails before any side effect.
func (s *ModerationService) Timeout(ctx context.Context, actor trust.Member, targetID, duration, reason string) error {
	if !trust.Recognized(actor) {
		return models.NewUnauthorizedError("You are not allowed to timeout members")
	}
	seconds, err := validation.ParseDuration(duration)
	if err != nil {
		return models.NewInvalidArgumentError(fmt.Sprintf("Invalid duration %q: use forms like 10s, 5m, 1h, 2d", duration))
	}

	s.notify(ctx, targetID, fmt.Sprintf("You have been timed out for %s", duration), reason)
	if err := s.record(ctx, &models.PunishmentRecord{
		TargetID:        targetID,
		Action:          models.ActionTimeout,
		DurationSeconds: seconds,
		Reason:          reason,
		Issuer:          actor.ID,
	}); err != nil {
		return err
	}

	until := s.now().Add(time.Duration(seconds) * time.Second)
	return mapPlatformError(s.gateway.TimeoutMember(ctx, targetID, &until, reason), "timeout")
}

// Warn records a warning and notifies the target. No platform primitive is
// involved. Requires any recognized tier.
func (s *ModerationService) Warn(ctx context.Context, actor trust.Member, targetID, reason string) error {
	if !trust.Recognized(actor) {
		return models.NewUnauthorizedError("You are not allowed to warn members")
	}
	s.notify(ctx, targetID, "You have been warned", reason)
	return s.record(ctx, &models.PunishmentRecord{
		TargetID: targetID,
		Action:   models.ActionWarn,
		Reason:   reason,
		Issuer:   actor.ID,
	})
}

// Unban lifts a ban. Requires the elevated tier. A target absent from the ban
// list yields NotFound.
func (s *ModerationService) Unban(ctx context.Context, actor trust.Member, targetID string) error {
	if !trust.Elevated(actor) {
		return models.NewUnauthorizedError("You are not allowed to unban members")
	}
	if err := mapPlatformError(s.gateway.UnbanMember(ctx, targetID), "unban"); err != nil {
		return err
	}
	s.notify(ctx, targetID, "Your ban has been lifted", "")
	return nil
}

// Unmute clears an active timeout. Requires any recognized tier.
func (s *ModerationService) Unmute(ctx context.Context, actor trust.Member, targetID string) error {
	if !trust.Recognized(actor) {
		return models.NewUnauthorizedError("You are not allowed to unmute members")
	}
	if err := mapPlatformError(s.gateway.TimeoutMember(ctx, targetID, nil, ""), "unmute"); err != nil {
		return err
	}
	s.notify(ctx, targetID, "Your timeout has been cleared", "")
	return nil
}

// History returns the target's punishment log, oldest first. Requires any
// recognized tier.
func (s *ModerationService) History(ctx context.Context, actor trust.Member, targetID string) ([]models.PunishmentRecord, error) {
	if !trust.Recognized(actor) {
		return nil, models.NewUnauthorizedError("You are not allowed to view punishment logs")
	}
	return s.records.ListByTarget(ctx, targetID)
}

// RemoveHistoryEntry deletes the entry-th record (1-based) of the target's
// log. Requires the elevated tier.
func (s *ModerationService) RemoveHistoryEntry(ctx context.Context, actor trust.Member, targetID string, entry int) (*models.PunishmentRecord, error) {
	if !trust.Elevated(actor) {
		return nil, models.NewUnauthorizedError("You are not allowed to edit punishment logs")
	}
	return s.records.DeleteByIndex(ctx, targetID, entry)
}

// ListBans returns the guild's current ban list. Requires the elevated tier.
func (s *ModerationService) ListBans(ctx context.Context, actor trust.Member) ([]platform.BanEntry, error) {
	if !trust.Elevated(actor) {
		return nil, models.NewUnauthorizedError("You are not allowed to view the ban list")
	}
	bans, err := s.gateway.ListBans(ctx)
	if err != nil {
		return nil, mapPlatformError(err, "list bans")
	}
	return bans, nil
}
