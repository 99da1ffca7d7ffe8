package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanRequestFlow(t *testing.T) {
	_, app, gw := newTestServer(t)
	requester := gw.AddMember("trainee")
	modA := gw.AddMember("moderator")
	modB := gw.AddMember("moderator")
	target := gw.AddMember()

	// Open the request.
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/", requester.ID,
		map[string]string{"target_id": target.ID, "reason": "spam"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	sessionID, _ := created["session_id"].(string)
	require.NotEmpty(t, sessionID)

	// It shows up in the listing.
	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/ban-requests/", modA.ID, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decodeBody(t, resp)
	assert.Equal(t, float64(1), listing["count"])

	// First vote keeps it open.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", modA.ID,
		map[string]bool{"approve": true}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody(t, resp)
	assert.Equal(t, float64(1), snap["ban_weight"])
	assert.NotEqual(t, true, snap["resolved"])

	// Second vote resolves and executes.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", modB.ID,
		map[string]bool{"approve": true}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody(t, resp)
	assert.Equal(t, true, snap["resolved"])
	assert.Equal(t, "executed", snap["outcome"])
	assert.True(t, gw.IsBanned(target.ID))
}

func TestBanRequestRejections(t *testing.T) {
	t.Run("unrecognized requester", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		nobody := gw.AddMember("regular")
		target := gw.AddMember()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/", nobody.ID,
			map[string]string{"target_id": target.ID, "reason": "spam"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("duplicate vote is a 403", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		requester := gw.AddMember("trainee")
		mod := gw.AddMember("moderator")
		target := gw.AddMember()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/", requester.ID,
			map[string]string{"target_id": target.ID, "reason": "spam"}))
		require.NoError(t, err)
		created := decodeBody(t, resp)
		sessionID := created["session_id"].(string)

		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", mod.ID,
			map[string]bool{"approve": true}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", mod.ID,
			map[string]bool{"approve": true}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "ALREADY_VOTED", body["code"])
	})

	t.Run("ineligible voter is a 403", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		requester := gw.AddMember("trainee")
		nobody := gw.AddMember("regular")
		target := gw.AddMember()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/", requester.ID,
			map[string]string{"target_id": target.ID, "reason": "spam"}))
		require.NoError(t, err)
		created := decodeBody(t, resp)
		sessionID := created["session_id"].(string)

		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", nobody.ID,
			map[string]bool{"approve": true}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "INELIGIBLE", body["code"])
	})

	t.Run("vote on a resolved session is a 404", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		requester := gw.AddMember("trainee")
		admin := gw.AddMember("administrator")
		late := gw.AddMember("moderator")
		target := gw.AddMember()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/", requester.ID,
			map[string]string{"target_id": target.ID, "reason": "spam"}))
		require.NoError(t, err)
		created := decodeBody(t, resp)
		sessionID := created["session_id"].(string)

		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", admin.ID,
			map[string]bool{"approve": true}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/ban-requests/"+sessionID+"/votes", late.ID,
			map[string]bool{"approve": true}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHandleVoteChoice(t *testing.T) {
	s, _, gw := newTestServer(t)
	requester := gw.AddMember("trainee")
	admin := gw.AddMember("administrator")
	target := gw.AddMember()

	snap, err := s.BanVotes().OpenRequest(t.Context(), requester, target.ID, "spam")
	require.NoError(t, err)

	reply := s.HandleVoteChoice(snap.SessionID, admin.ID, true)
	assert.Contains(t, reply, "passed")
	assert.True(t, gw.IsBanned(target.ID))

	// The session is gone; a second click gets a resolution notice.
	reply = s.HandleVoteChoice(snap.SessionID, admin.ID, true)
	assert.Contains(t, reply, "already been resolved")
}
