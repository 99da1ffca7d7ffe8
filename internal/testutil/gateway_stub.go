// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"warden/internal/platform"
	"warden/internal/trust"

	"github.com/brianvoe/gofakeit/v6"
)

// Message records an outbound message sent through the stub gateway.
type Message struct {
	Recipient string
	Text      string
}

// VotePrompt records one fan-out delivery.
type VotePrompt struct {
	UserID    string
	SessionID string
	Prompt    string
}

// GatewayStub is an in-memory platform gateway for tests. All recorded state
// is guarded by a mutex so concurrent service tests can use it directly.
type GatewayStub struct {
	mu sync.Mutex

	members map[string]trust.Member

	DMs             []Message
	ChannelMessages []Message
	VotePrompts     []VotePrompt
	Banned          map[string]string
	Timeouts        map[string]*time.Time
	Roles           map[string][]string

	// Error overrides. Nil means the call succeeds.
	MemberErr  error
	DMErr      error
	ChannelErr error
	PromptErr  error
	BanErr     error
	UnbanErr   error
	TimeoutErr error
}

// NewGatewayStub creates an empty stub gateway.
func NewGatewayStub() *GatewayStub {
	return &GatewayStub{
		members:  make(map[string]trust.Member),
		Banned:   make(map[string]string),
		Timeouts: make(map[string]*time.Time),
		Roles:    make(map[string][]string),
	}
}

// Snowflake fabricates a plausible 18-digit platform member ID.
func Snowflake() string {
	return fmt.Sprintf("%d%08d", 1000000000+rand.Intn(900000000), rand.Intn(100000000))
}

// AddMember registers a guild member with the given roles and returns it.
func (g *GatewayStub) AddMember(roles ...string) trust.Member {
	m := trust.Member{
		ID:       Snowflake(),
		Username: gofakeit.Username(),
		Roles:    roles,
	}
	g.mu.Lock()
	g.members[m.ID] = m
	g.mu.Unlock()
	return m
}

// SetMember stores or replaces a member.
func (g *GatewayStub) SetMember(m trust.Member) {
	g.mu.Lock()
	g.members[m.ID] = m
	g.mu.Unlock()
}

func (g *GatewayStub) Member(_ context.Context, userID string) (trust.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.MemberErr != nil {
		return trust.Member{}, g.MemberErr
	}
	m, ok := g.members[userID]
	if !ok {
		return trust.Member{}, platform.ErrNotFound
	}
	return m, nil
}

func (g *GatewayStub) Members(_ context.Context) ([]trust.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.MemberErr != nil {
		return nil, g.MemberErr
	}
	out := make([]trust.Member, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, m)
	}
	return out, nil
}

func (g *GatewayStub) SendDirectMessage(_ context.Context, userID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DMErr != nil {
		return g.DMErr
	}
	g.DMs = append(g.DMs, Message{Recipient: userID, Text: text})
	return nil
}

func (g *GatewayStub) SendChannelMessage(_ context.Context, channelID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ChannelErr != nil {
		return g.ChannelErr
	}
	g.ChannelMessages = append(g.ChannelMessages, Message{Recipient: channelID, Text: text})
	return nil
}

func (g *GatewayStub) SendVotePrompt(_ context.Context, userID, sessionID, prompt string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PromptErr != nil {
		return g.PromptErr
	}
	g.VotePrompts = append(g.VotePrompts, VotePrompt{UserID: userID, SessionID: sessionID, Prompt: prompt})
	return nil
}

func (g *GatewayStub) BanMember(_ context.Context, userID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.BanErr != nil {
		return g.BanErr
	}
	g.Banned[userID] = reason
	delete(g.members, userID)
	return nil
}

func (g *GatewayStub) UnbanMember(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.UnbanErr != nil {
		return g.UnbanErr
	}
	if _, ok := g.Banned[userID]; !ok {
		return platform.ErrNotFound
	}
	delete(g.Banned, userID)
	return nil
}

func (g *GatewayStub) ListBans(_ context.Context) ([]platform.BanEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]platform.BanEntry, 0, len(g.Banned))
	for id, reason := range g.Banned {
		out = append(out, platform.BanEntry{UserID: id, Reason: reason})
	}
	return out, nil
}

func (g *GatewayStub) TimeoutMember(_ context.Context, userID string, until *time.Time, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.TimeoutErr != nil {
		return g.TimeoutErr
	}
	g.Timeouts[userID] = until
	return nil
}

func (g *GatewayStub) AddRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Roles[userID] = append(g.Roles[userID], roleID)
	return nil
}

func (g *GatewayStub) RemoveRole(_ context.Context, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.Roles[userID][:0]
	for _, r := range g.Roles[userID] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	g.Roles[userID] = kept
	return nil
}

// PromptCount returns how many vote prompts were delivered.
func (g *GatewayStub) PromptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.VotePrompts)
}

// DMCount returns how many direct messages were delivered.
func (g *GatewayStub) DMCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.DMs)
}

// DMsTo returns the direct messages delivered to a single recipient.
func (g *GatewayStub) DMsTo(userID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var texts []string
	for _, m := range g.DMs {
		if m.Recipient == userID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// IsBanned reports whether the stub recorded a ban for userID.
func (g *GatewayStub) IsBanned(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.Banned[userID]
	return ok
}
