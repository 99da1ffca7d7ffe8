package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"warden/internal/platform"
	"warden/internal/testutil"
	"warden/internal/trust"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLogChannel = "900000000000000001"

func newVoteFixture() (*BanVoteService, *ModerationService, *testutil.GatewayStub, *testutil.RecordSinkStub) {
	gw := testutil.NewGatewayStub()
	sink := testutil.NewRecordSinkStub()
	mod := NewModerationService(gw, sink, nil)
	votes := NewBanVoteService(gw, mod, nil, testLogChannel)
	return votes, mod, gw, sink
}

func lastChannelMessage(t *testing.T, gw *testutil.GatewayStub) string {
	t.Helper()
	require.NotEmpty(t, gw.ChannelMessages)
	return gw.ChannelMessages[len(gw.ChannelMessages)-1].Text
}

func TestOpenRequest(t *testing.T) {
	t.Parallel()

	t.Run("trainee may open a request", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		assert.NotEmpty(t, snap.SessionID)
		assert.Equal(t, target.ID, snap.TargetID)
		assert.Zero(t, snap.BanWeight)
		assert.Zero(t, snap.CancelWeight)
		assert.False(t, snap.Resolved)
	})

	t.Run("unrecognized member may not", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		nobody := gw.AddMember("regular")
		target := gw.AddMember()

		_, err := votes.OpenRequest(context.Background(), nobody, target.ID, "spam")
		assertCode(t, err, "UNAUTHORIZED")
	})

	t.Run("self-target is rejected", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")

		_, err := votes.OpenRequest(context.Background(), requester, requester.ID, "no")
		assertCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("fan-out reaches weighted members only", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		target := gw.AddMember()
		gw.AddMember("moderator")
		gw.AddMember("administrator")
		gw.AddMember("owner")
		gw.AddMember("regular") // weight 0, no prompt
		// requester is a trainee: weight 0, no prompt either

		_, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return gw.PromptCount() == 3
		}, time.Second, 5*time.Millisecond, "expected prompts for the three weighted members")

		for _, p := range gw.VotePrompts {
			assert.NotEqual(t, target.ID, p.UserID, "target must not receive a prompt")
		}
	})

	t.Run("undeliverable prompts are swallowed", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		target := gw.AddMember()
		gw.AddMember("moderator")
		gw.PromptErr = platform.ErrForbidden

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)
		assert.NotEmpty(t, snap.SessionID)
	})

	t.Run("new request replaces an open session for the same target", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		mod := gw.AddMember("moderator")
		target := gw.AddMember()

		first, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)
		_, err = votes.CastVote(context.Background(), first.SessionID, mod, true)
		require.NoError(t, err)

		second, err := votes.OpenRequest(context.Background(), requester, target.ID, "worse spam")
		require.NoError(t, err)
		assert.NotEqual(t, first.SessionID, second.SessionID)

		// The old session and its tally are gone.
		_, err = votes.CastVote(context.Background(), first.SessionID, mod, true)
		assertCode(t, err, "NOT_FOUND")

		sessions := votes.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, second.SessionID, sessions[0].SessionID)
		assert.Zero(t, sessions[0].BanWeight)
	})
}

func TestCastVote_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	t.Run("two moderators cross the threshold", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, sink := newVoteFixture()
		requester := gw.AddMember("trainee")
		modA := gw.AddMember("moderator")
		modB := gw.AddMember("moderator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		snap, err = votes.CastVote(context.Background(), snap.SessionID, modA, true)
		require.NoError(t, err)
		assert.False(t, snap.Resolved, "1 < 2 keeps the session open")
		assert.Equal(t, 1, snap.BanWeight)
		assert.False(t, gw.IsBanned(target.ID))

		snap, err = votes.CastVote(context.Background(), snap.SessionID, modB, true)
		require.NoError(t, err)
		assert.True(t, snap.Resolved)
		assert.Equal(t, "executed", snap.Outcome)
		assert.Equal(t, 2, snap.BanWeight)

		assert.True(t, gw.IsBanned(target.ID))
		records := sink.All()
		require.Len(t, records, 1)
		assert.Equal(t, "quorum:"+requester.ID, records[0].Issuer)
		assert.Contains(t, lastChannelMessage(t, gw), "banned")
		assert.Empty(t, votes.Sessions())
	})

	t.Run("one administrator resolves alone", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		admin := gw.AddMember("administrator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		snap, err = votes.CastVote(context.Background(), snap.SessionID, admin, true)
		require.NoError(t, err)
		assert.True(t, snap.Resolved)
		assert.True(t, gw.IsBanned(target.ID))
	})

	t.Run("reject votes cancel without a ban", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, sink := newVoteFixture()
		requester := gw.AddMember("trainee")
		modA := gw.AddMember("moderator")
		modB := gw.AddMember("moderator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		snap, err = votes.CastVote(context.Background(), snap.SessionID, modA, false)
		require.NoError(t, err)
		assert.False(t, snap.Resolved)

		snap, err = votes.CastVote(context.Background(), snap.SessionID, modB, false)
		require.NoError(t, err)
		assert.True(t, snap.Resolved)
		assert.Equal(t, "cancelled", snap.Outcome)

		assert.False(t, gw.IsBanned(target.ID))
		assert.Empty(t, sink.All())
		assert.Contains(t, lastChannelMessage(t, gw), "rejected")
		assert.Empty(t, votes.Sessions())
	})
}

func TestCastVote_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("duplicate vote contributes once", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		mod := gw.AddMember("moderator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		_, err = votes.CastVote(context.Background(), snap.SessionID, mod, true)
		require.NoError(t, err)

		_, err = votes.CastVote(context.Background(), snap.SessionID, mod, true)
		assertCode(t, err, "ALREADY_VOTED")

		sessions := votes.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, 1, sessions[0].BanWeight, "tally unchanged by the rejected vote")
	})

	t.Run("switching sides is still a duplicate", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		mod := gw.AddMember("moderator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		_, err = votes.CastVote(context.Background(), snap.SessionID, mod, true)
		require.NoError(t, err)
		_, err = votes.CastVote(context.Background(), snap.SessionID, mod, false)
		assertCode(t, err, "ALREADY_VOTED")
	})

	t.Run("zero-weight voter is ineligible", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		requester := gw.AddMember("trainee")
		nobody := gw.AddMember("regular")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		_, err = votes.CastVote(context.Background(), snap.SessionID, nobody, true)
		assertCode(t, err, "INELIGIBLE")

		sessions := votes.Sessions()
		require.Len(t, sessions, 1)
		assert.Zero(t, sessions[0].BanWeight)
		assert.Zero(t, sessions[0].CancelWeight)

		// The ineligible attempt does not burn the voter's identity: a
		// later promotion lets them vote.
		promoted := trust.Member{ID: nobody.ID, Username: nobody.Username, Roles: []string{"moderator"}}
		_, err = votes.CastVote(context.Background(), snap.SessionID, promoted, true)
		require.NoError(t, err)
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, _ := newVoteFixture()
		mod := gw.AddMember("moderator")

		_, err := votes.CastVote(context.Background(), "missing", mod, true)
		assertCode(t, err, "NOT_FOUND")
	})

	t.Run("vote after resolution is a no-op", func(t *testing.T) {
		t.Parallel()
		votes, _, gw, sink := newVoteFixture()
		requester := gw.AddMember("trainee")
		admin := gw.AddMember("administrator")
		late := gw.AddMember("moderator")
		target := gw.AddMember()

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)
		_, err = votes.CastVote(context.Background(), snap.SessionID, admin, true)
		require.NoError(t, err)

		_, err = votes.CastVote(context.Background(), snap.SessionID, late, true)
		assertCode(t, err, "NOT_FOUND")
		assert.Len(t, sink.All(), 1, "no second execution")
	})
}

func TestCastVote_LiveWeight(t *testing.T) {
	t.Parallel()

	votes, _, gw, _ := newVoteFixture()
	requester := gw.AddMember("trainee")
	voter := gw.AddMember("moderator")
	target := gw.AddMember()

	snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
	require.NoError(t, err)

	// Promotion between request and vote takes effect: weight is read at
	// vote time, so the promoted voter resolves alone.
	promoted := trust.Member{ID: voter.ID, Username: voter.Username, Roles: []string{"administrator"}}
	snap, err = votes.CastVote(context.Background(), snap.SessionID, promoted, true)
	require.NoError(t, err)
	assert.True(t, snap.Resolved)
	assert.Equal(t, 2, snap.BanWeight)
}

func TestCastVote_FailedTerminalBan(t *testing.T) {
	t.Parallel()

	votes, _, gw, _ := newVoteFixture()
	requester := gw.AddMember("trainee")
	admin := gw.AddMember("administrator")
	target := gw.AddMember()
	gw.BanErr = platform.ErrForbidden

	snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
	require.NoError(t, err)

	snap, err = votes.CastVote(context.Background(), snap.SessionID, admin, true)
	require.NoError(t, err, "the vote itself succeeds")
	assert.True(t, snap.Resolved)

	// The session must not stay half-resolved: it is gone, and the
	// broadcast carries a failure notice instead of a success one.
	_, err = votes.CastVote(context.Background(), snap.SessionID, admin, true)
	assertCode(t, err, "NOT_FOUND")
	assert.Empty(t, votes.Sessions())
	assert.Contains(t, lastChannelMessage(t, gw), "could not be executed")
}

func TestCastVote_ConcurrentVoters(t *testing.T) {
	t.Parallel()

	// Race property: concurrent votes must not double-cross the threshold
	// or lose tally contributions. Run several rounds to give the race
	// detector a chance.
	for round := 0; round < 20; round++ {
		votes, _, gw, sink := newVoteFixture()
		requester := gw.AddMember("trainee")
		target := gw.AddMember()

		voters := make([]trust.Member, 8)
		for i := range voters {
			voters[i] = gw.AddMember("moderator")
		}

		snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
		require.NoError(t, err)

		var wg sync.WaitGroup
		accepted := make([]bool, len(voters))
		for i, voter := range voters {
			wg.Add(1)
			go func(i int, voter trust.Member) {
				defer wg.Done()
				if _, err := votes.CastVote(context.Background(), snap.SessionID, voter, true); err == nil {
					accepted[i] = true
				}
			}(i, voter)
		}
		wg.Wait()

		acceptedCount := 0
		for _, ok := range accepted {
			if ok {
				acceptedCount++
			}
		}
		// At least two votes are needed to resolve; late votes see the
		// session gone and fail, so not all eight can be accepted.
		assert.GreaterOrEqual(t, acceptedCount, 2)
		assert.True(t, gw.IsBanned(target.ID))
		assert.Len(t, sink.All(), 1, "exactly one execution")
		assert.Empty(t, votes.Sessions())
	}
}

func TestCastVote_ConcurrentDuplicate(t *testing.T) {
	t.Parallel()

	votes, _, gw, _ := newVoteFixture()
	requester := gw.AddMember("trainee")
	voter := gw.AddMember("moderator")
	target := gw.AddMember()

	snap, err := votes.OpenRequest(context.Background(), requester, target.ID, "spam")
	require.NoError(t, err)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := votes.CastVote(context.Background(), snap.SessionID, voter, true)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	okCount := 0
	for err := range errs {
		if err == nil {
			okCount++
		}
	}
	require.Equal(t, 1, okCount, "exactly one attempt may be accepted")

	sessions := votes.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].BanWeight)
}

func TestSessionsIndependence(t *testing.T) {
	t.Parallel()

	votes, _, gw, _ := newVoteFixture()
	requester := gw.AddMember("trainee")
	admin := gw.AddMember("administrator")

	targets := make([]trust.Member, 3)
	snaps := make([]SessionSnapshot, 3)
	for i := range targets {
		targets[i] = gw.AddMember()
		snap, err := votes.OpenRequest(context.Background(), requester, targets[i].ID,
			fmt.Sprintf("case %d", i))
		require.NoError(t, err)
		snaps[i] = snap
	}
	require.Len(t, votes.Sessions(), 3)

	// Resolving one leaves the others untouched.
	_, err := votes.CastVote(context.Background(), snaps[1].SessionID, admin, true)
	require.NoError(t, err)

	remaining := votes.Sessions()
	require.Len(t, remaining, 2)
	for _, s := range remaining {
		assert.NotEqual(t, snaps[1].SessionID, s.SessionID)
	}
	assert.True(t, gw.IsBanned(targets[1].ID))
	assert.False(t, gw.IsBanned(targets[0].ID))
	assert.False(t, gw.IsBanned(targets[2].ID))
}
