// Package platform defines the chat-platform gateway the moderation core
// depends on. The core never talks to the platform SDK directly; it programs
// against this interface so the consensus engine and action executor can be
// tested with an in-memory fake.
package platform

import (
	"context"
	"errors"
	"time"

	"warden/internal/trust"
)

// Sentinel errors adapters translate platform failures into.
var (
	// ErrForbidden means the platform denied a privileged action.
	ErrForbidden = errors.New("platform: forbidden")
	// ErrNotFound means the target does not exist (e.g. not in the ban list).
	ErrNotFound = errors.New("platform: not found")
)

// BanEntry is one entry in the guild's ban list.
type BanEntry struct {
	UserID   string
	Username string
	Reason   string
}

// Gateway is the outbound surface the core needs from the chat platform.
// Delivery guarantees for messages are the platform's concern; callers treat
// direct messages as best-effort.
type Gateway interface {
	// Member resolves a guild member with their current role set.
	Member(ctx context.Context, userID string) (trust.Member, error)
	// Members lists all guild members.
	Members(ctx context.Context) ([]trust.Member, error)

	SendDirectMessage(ctx context.Context, userID, text string) error
	SendChannelMessage(ctx context.Context, channelID, text string) error
	// SendVotePrompt delivers a ban-request vote prompt carrying the session
	// ID, with mutually exclusive Approve/Reject choices.
	SendVotePrompt(ctx context.Context, userID, sessionID, prompt string) error

	BanMember(ctx context.Context, userID, reason string) error
	UnbanMember(ctx context.Context, userID string) error
	ListBans(ctx context.Context) ([]BanEntry, error)

	// TimeoutMember silences the member until the given time. A nil until
	// clears an active timeout.
	TimeoutMember(ctx context.Context, userID string, until *time.Time, reason string) error

	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}
