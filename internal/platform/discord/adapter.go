// Package discord adapts a discordgo session to the platform.Gateway
// interface and routes inbound gateway events to the moderation core.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"warden/internal/platform"
	"warden/internal/trust"

	"github.com/bwmarrin/discordgo"
)

// VoteChoiceHandler receives vote button clicks: the session ID embedded in
// the component, the clicking member and their chosen side.
type VoteChoiceHandler func(sessionID, voterID string, approve bool) string

// MemberJoinHandler receives guild member-join events.
type MemberJoinHandler func(userID string)

// Adapter implements platform.Gateway over a single guild.
type Adapter struct {
	session *discordgo.Session
	guildID string

	mu        sync.RWMutex
	roleNames map[string]string // role ID -> name
	roleAdmin map[string]bool   // role ID -> has administrator permission

	onVote VoteChoiceHandler
	onJoin MemberJoinHandler
}

const voteCustomIDPrefix = "banvote"

// New creates an Adapter for the given bot token and guild. The session is
// opened by Start, not here, so construction stays side-effect free.
func New(token, guildID string) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	return &Adapter{
		session:   session,
		guildID:   guildID,
		roleNames: make(map[string]string),
		roleAdmin: make(map[string]bool),
	}, nil
}

// OnVoteChoice registers the handler invoked for every vote button click.
// The returned string is shown to the voter as an ephemeral reply.
func (a *Adapter) OnVoteChoice(fn VoteChoiceHandler) { a.onVote = fn }

// OnMemberJoin registers the handler invoked for guild member-join events.
func (a *Adapter) OnMemberJoin(fn MemberJoinHandler) { a.onJoin = fn }

// Start opens the websocket connection and begins dispatching events.
func (a *Adapter) Start() error {
	a.session.AddHandler(a.handleInteraction)
	a.session.AddHandler(a.handleMemberJoin)
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return a.refreshRoles()
}

// Close shuts down the gateway connection.
func (a *Adapter) Close() error {
	return a.session.Close()
}

func (a *Adapter) refreshRoles() error {
	roles, err := a.session.GuildRoles(a.guildID)
	if err != nil {
		return fmt.Errorf("list guild roles: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roleNames = make(map[string]string, len(roles))
	a.roleAdmin = make(map[string]bool, len(roles))
	for _, role := range roles {
		a.roleNames[role.ID] = role.Name
		a.roleAdmin[role.ID] = role.Permissions&discordgo.PermissionAdministrator != 0
	}
	return nil
}

// toTrustMember converts a discordgo member into the trust model's view,
// resolving role IDs to names.
func (a *Adapter) toTrustMember(m *discordgo.Member) trust.Member {
	a.mu.RLock()
	defer a.mu.RUnlock()

	member := trust.Member{
		ID:       m.User.ID,
		Username: m.User.Username,
		Roles:    make([]string, 0, len(m.Roles)),
	}
	for _, roleID := range m.Roles {
		if name, ok := a.roleNames[roleID]; ok {
			member.Roles = append(member.Roles, name)
		}
		if a.roleAdmin[roleID] {
			member.IsGuildAdmin = true
		}
	}
	return member
}

// mapError translates discordgo REST failures into platform sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", platform.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", platform.ErrNotFound, err)
		}
	}
	return err
}

// Member resolves a guild member with their current role names.
func (a *Adapter) Member(_ context.Context, userID string) (trust.Member, error) {
	m, err := a.session.GuildMember(a.guildID, userID)
	if err != nil {
		return trust.Member{}, mapError(err)
	}
	return a.toTrustMember(m), nil
}

// Members lists every guild member, paging through the members endpoint.
func (a *Adapter) Members(_ context.Context) ([]trust.Member, error) {
	var out []trust.Member
	after := ""
	for {
		page, err := a.session.GuildMembers(a.guildID, after, 1000)
		if err != nil {
			return nil, mapError(err)
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, m := range page {
			out = append(out, a.toTrustMember(m))
		}
		after = page[len(page)-1].User.ID
	}
}

// SendDirectMessage delivers a DM. Callers treat failures as best-effort.
func (a *Adapter) SendDirectMessage(_ context.Context, userID, text string) error {
	channel, err := a.session.UserChannelCreate(userID)
	if err != nil {
		return mapError(err)
	}
	_, err = a.session.ChannelMessageSend(channel.ID, text)
	return mapError(err)
}

// SendChannelMessage posts to a guild channel.
func (a *Adapter) SendChannelMessage(_ context.Context, channelID, text string) error {
	_, err := a.session.ChannelMessageSend(channelID, text)
	return mapError(err)
}

// SendVotePrompt DMs a member a vote prompt with Approve/Reject buttons whose
// custom IDs carry the session identity.
func (a *Adapter) SendVotePrompt(_ context.Context, userID, sessionID, prompt string) error {
	channel, err := a.session.UserChannelCreate(userID)
	if err != nil {
		return mapError(err)
	}
	_, err = a.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: prompt,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.DangerButton,
						CustomID: fmt.Sprintf("%s:%s:approve", voteCustomIDPrefix, sessionID),
					},
					discordgo.Button{
						Label:    "Reject",
						Style:    discordgo.SecondaryButton,
						CustomID: fmt.Sprintf("%s:%s:reject", voteCustomIDPrefix, sessionID),
					},
				},
			},
		},
	})
	return mapError(err)
}

// BanMember bans a member from the guild.
func (a *Adapter) BanMember(_ context.Context, userID, reason string) error {
	return mapError(a.session.GuildBanCreateWithReason(a.guildID, userID, reason, 0))
}

// UnbanMember lifts a ban.
func (a *Adapter) UnbanMember(_ context.Context, userID string) error {
	return mapError(a.session.GuildBanDelete(a.guildID, userID))
}

// ListBans returns the guild's ban list.
func (a *Adapter) ListBans(_ context.Context) ([]platform.BanEntry, error) {
	bans, err := a.session.GuildBans(a.guildID, 1000, "", "")
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]platform.BanEntry, 0, len(bans))
	for _, ban := range bans {
		out = append(out, platform.BanEntry{
			UserID:   ban.User.ID,
			Username: ban.User.Username,
			Reason:   ban.Reason,
		})
	}
	return out, nil
}

// TimeoutMember sets or clears (nil until) a member's communication timeout.
func (a *Adapter) TimeoutMember(_ context.Context, userID string, until *time.Time, _ string) error {
	return mapError(a.session.GuildMemberTimeout(a.guildID, userID, until))
}

// AddRole grants a role to a member.
func (a *Adapter) AddRole(_ context.Context, userID, roleID string) error {
	return mapError(a.session.GuildMemberRoleAdd(a.guildID, userID, roleID))
}

// RemoveRole removes a role from a member.
func (a *Adapter) RemoveRole(_ context.Context, userID, roleID string) error {
	return mapError(a.session.GuildMemberRoleRemove(a.guildID, userID, roleID))
}

func (a *Adapter) handleMemberJoin(_ *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if a.onJoin == nil || event.GuildID != a.guildID {
		return
	}
	a.onJoin(event.User.ID)
}

func (a *Adapter) handleInteraction(s *discordgo.Session, event *discordgo.InteractionCreate) {
	if a.onVote == nil || event.Type != discordgo.InteractionMessageComponent {
		return
	}
	parts := strings.Split(event.MessageComponentData().CustomID, ":")
	if len(parts) != 3 || parts[0] != voteCustomIDPrefix {
		return
	}
	sessionID, choice := parts[1], parts[2]

	voterID := ""
	if event.Member != nil && event.Member.User != nil {
		voterID = event.Member.User.ID
	} else if event.User != nil {
		voterID = event.User.ID
	}
	if voterID == "" {
		return
	}

	reply := a.onVote(sessionID, voterID, choice == "approve")

	// The voter is always owed a response, even for rejected votes.
	_ = s.InteractionRespond(event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
