package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/observability"
	"warden/internal/platform"
	"warden/internal/trust"

	"github.com/google/uuid"
)

// VoteThreshold is the summed trust weight one side needs to resolve a
// ban request.
const VoteThreshold = 2

// fanoutWorkers bounds the number of concurrent vote-prompt deliveries.
const fanoutWorkers = 8

type sessionState int

const (
	stateOpen sessionState = iota
	stateExecuted
	stateCancelled
)

// votingSession is the mutable record of one in-progress ban-request vote.
// All mutation happens under mu; external I/O never does.
type votingSession struct {
	mu sync.Mutex

	id          string
	targetID    string
	targetName  string
	reason      string
	requesterID string
	createdAt   time.Time

	banWeight    int
	cancelWeight int
	voters       map[string]struct{}
	state        sessionState
}

// SessionSnapshot is a read-only view of a voting session.
type SessionSnapshot struct {
	SessionID    string    `json:"session_id"`
	TargetID     string    `json:"target_id"`
	TargetName   string    `json:"target_name,omitempty"`
	Reason       string    `json:"reason"`
	RequesterID  string    `json:"requester_id"`
	BanWeight    int       `json:"ban_weight"`
	CancelWeight int       `json:"cancel_weight"`
	Threshold    int       `json:"threshold"`
	Resolved     bool      `json:"resolved"`
	Outcome      string    `json:"outcome,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *votingSession) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		SessionID:    s.id,
		TargetID:     s.targetID,
		TargetName:   s.targetName,
		Reason:       s.reason,
		RequesterID:  s.requesterID,
		BanWeight:    s.banWeight,
		CancelWeight: s.cancelWeight,
		Threshold:    VoteThreshold,
		CreatedAt:    s.createdAt,
	}
	switch s.state {
	case stateExecuted:
		snap.Resolved = true
		snap.Outcome = "executed"
	case stateCancelled:
		snap.Resolved = true
		snap.Outcome = "cancelled"
	}
	return snap
}

// BanVoteService owns the active-session table and resolves ban requests by
// weighted quorum. Sessions for different targets are independent; votes for
// one target are serialized by the session's own lock.
type BanVoteService struct {
	gateway      platform.Gateway
	moderation   *ModerationService
	notifier     *notifications.Notifier
	logChannelID string

	mu       sync.RWMutex
	byID     map[string]*votingSession
	byTarget map[string]*votingSession
}

// NewBanVoteService returns a new BanVoteService. Resolution notices are
// broadcast to logChannelID; an empty ID disables the broadcast.
func NewBanVoteService(
	gateway platform.Gateway,
	moderation *ModerationService,
	notifier *notifications.Notifier,
	logChannelID string,
) *BanVoteService {
	return &BanVoteService{
		gateway:      gateway,
		moderation:   moderation,
		notifier:     notifier,
		logChannelID: logChannelID,
		byID:         make(map[string]*votingSession),
		byTarget:     make(map[string]*votingSession),
	}
}

// OpenRequest creates a voting session for the target and fans a vote prompt
// out to every member whose trust weight is positive. A new request for a
// target with an open session silently replaces the old session. Fan-out is
// fire-and-forget; the call returns as soon as the session exists.
func (v *BanVoteService) OpenRequest(ctx context.Context, requester trust.Member, targetID, reason string) (SessionSnapshot, error) {
	if !trust.CanRequest(requester) {
		return SessionSnapshot{}, models.NewUnauthorizedError("You are not allowed to request bans")
	}
	if targetID == "" {
		return SessionSnapshot{}, models.NewValidationError("A target member is required")
	}
	if targetID == requester.ID {
		return SessionSnapshot{}, models.NewValidationError("You cannot request a ban on yourself")
	}

	targetName := targetID
	if target, err := v.gateway.Member(ctx, targetID); err == nil {
		targetName = target.Username
	}

	sess := &votingSession{
		id:          uuid.NewString(),
		targetID:    targetID,
		targetName:  targetName,
		reason:      reason,
		requesterID: requester.ID,
		createdAt:   time.Now().UTC(),
		voters:      make(map[string]struct{}),
	}

	v.mu.Lock()
	if old, ok := v.byTarget[targetID]; ok {
		old.mu.Lock()
		old.state = stateCancelled
		old.mu.Unlock()
		delete(v.byID, old.id)
		observability.OpenSessions.Dec()
		observability.SessionsResolved.WithLabelValues("replaced").Inc()
	}
	v.byID[sess.id] = sess
	v.byTarget[targetID] = sess
	v.mu.Unlock()
	observability.OpenSessions.Inc()

	go v.fanOut(context.WithoutCancel(ctx), sess)

	if err := v.notifier.Publish(ctx, notifications.Event{
		Type:     notifications.EventVoteOpened,
		TargetID: targetID,
		Actor:    requester.ID,
		Reason:   reason,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish vote-opened event", "err", err)
	}

	sess.mu.Lock()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()
	return snap, nil
}

// fanOut delivers the vote prompt to every weighted member through a bounded
// worker pool. One member's undeliverable inbox must not abort the rest.
func (v *BanVoteService) fanOut(ctx context.Context, sess *votingSession) {
	members, err := v.gateway.Members(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to list members for vote fan-out",
			"session_id", sess.id, "err", err)
		return
	}

	prompt := fmt.Sprintf(
		"Ban request for **%s**\nReason: %s\nRequested by <@%s>. Cast your vote:",
		sess.targetName, sess.reason, sess.requesterID,
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < fanoutWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for memberID := range jobs {
				if err := v.gateway.SendVotePrompt(ctx, memberID, sess.id, prompt); err != nil {
					observability.FanoutFailures.Inc()
					slog.DebugContext(ctx, "vote prompt undeliverable",
						"session_id", sess.id, "member_id", memberID, "err", err)
				}
			}
		}()
	}
	for _, m := range members {
		if m.ID == sess.targetID || trust.Weight(m) == 0 {
			continue
		}
		jobs <- m.ID
	}
	close(jobs)
	wg.Wait()
}

// CastVote applies one vote to the session identified by sessionID. The
// voter's trust weight is resolved at vote time. The state transition is
// decided under the session lock; terminal I/O runs after it is released.
func (v *BanVoteService) CastVote(ctx context.Context, sessionID string, voter trust.Member, approve bool) (SessionSnapshot, error) {
	v.mu.RLock()
	sess, ok := v.byID[sessionID]
	v.mu.RUnlock()
	if !ok {
		return SessionSnapshot{}, models.NewNotFoundError("Ban request", sessionID)
	}

	weight := trust.Weight(voter)

	sess.mu.Lock()
	if sess.state != stateOpen {
		// Lost a race with resolution or replacement.
		sess.mu.Unlock()
		return SessionSnapshot{}, models.NewNotFoundError("Ban request", sessionID)
	}
	if _, voted := sess.voters[voter.ID]; voted {
		sess.mu.Unlock()
		observability.VotesRejected.WithLabelValues("already_voted").Inc()
		return SessionSnapshot{}, models.NewAlreadyVotedError()
	}
	if weight == 0 {
		sess.mu.Unlock()
		observability.VotesRejected.WithLabelValues("ineligible").Inc()
		return SessionSnapshot{}, models.NewIneligibleError()
	}

	sess.voters[voter.ID] = struct{}{}
	if approve {
		sess.banWeight += weight
	} else {
		sess.cancelWeight += weight
	}

	// Ban takes priority if both thresholds are satisfied at once.
	switch {
	case sess.banWeight >= VoteThreshold:
		sess.state = stateExecuted
	case sess.cancelWeight >= VoteThreshold:
		sess.state = stateCancelled
	}
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	if approve {
		observability.VotesCast.WithLabelValues("approve").Inc()
	} else {
		observability.VotesCast.WithLabelValues("reject").Inc()
	}

	if snap.Resolved {
		v.resolve(ctx, sess, snap)
	}
	return snap, nil
}

// resolve tears the session down and performs the terminal action. The
// session is removed even when the terminal ban fails; a failure notice
// replaces the success notice in that case.
func (v *BanVoteService) resolve(ctx context.Context, sess *votingSession, snap SessionSnapshot) {
	v.mu.Lock()
	if v.byID[sess.id] == sess {
		delete(v.byID, sess.id)
		observability.OpenSessions.Dec()
	}
	if v.byTarget[sess.targetID] == sess {
		delete(v.byTarget, sess.targetID)
	}
	v.mu.Unlock()

	var notice string
	outcome := snap.Outcome
	switch snap.Outcome {
	case "executed":
		if err := v.moderation.ExecuteQuorumBan(ctx, sess.requesterID, sess.targetID, sess.reason); err != nil {
			slog.ErrorContext(ctx, "quorum ban failed",
				"session_id", sess.id, "target_id", sess.targetID, "err", err)
			outcome = "failed"
			notice = fmt.Sprintf("Ban vote for **%s** passed but the ban could not be executed.", sess.targetName)
		} else {
			notice = fmt.Sprintf("Ban vote passed: **%s** has been banned. Reason: %s", sess.targetName, sess.reason)
		}
	case "cancelled":
		notice = fmt.Sprintf("Ban vote for **%s** was rejected.", sess.targetName)
	}
	observability.SessionsResolved.WithLabelValues(outcome).Inc()

	if v.logChannelID != "" {
		if err := v.gateway.SendChannelMessage(ctx, v.logChannelID, notice); err != nil {
			slog.WarnContext(ctx, "failed to broadcast vote resolution",
				"session_id", sess.id, "err", err)
		}
	}
	if err := v.notifier.Publish(ctx, notifications.Event{
		Type:     notifications.EventVoteResolved,
		TargetID: sess.targetID,
		Actor:    sess.requesterID,
		Outcome:  outcome,
		Reason:   sess.reason,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish vote-resolved event", "err", err)
	}
}

// Sessions returns a snapshot of every open voting session.
func (v *BanVoteService) Sessions() []SessionSnapshot {
	v.mu.RLock()
	open := make([]*votingSession, 0, len(v.byID))
	for _, sess := range v.byID {
		open = append(open, sess)
	}
	v.mu.RUnlock()

	snaps := make([]SessionSnapshot, 0, len(open))
	for _, sess := range open {
		sess.mu.Lock()
		if sess.state == stateOpen {
			snaps = append(snaps, sess.snapshotLocked())
		}
		sess.mu.Unlock()
	}
	return snaps
}
