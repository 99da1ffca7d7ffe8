package server

import (
	"net/http"
	"testing"

	"warden/internal/featureflags"
	"warden/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberJoinWelcome(t *testing.T) {
	t.Run("first join sends one welcome", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		joined := testutil.Snowflake()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/events/member-join", "",
			map[string]string{"member_id": joined}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		dms := gw.DMsTo(joined)
		require.Len(t, dms, 1)
		assert.Contains(t, dms[0], "Welcome")
	})

	t.Run("rejoin inside dedup window is not greeted again", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		joined := testutil.Snowflake()

		for i := 0; i < 2; i++ {
			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/events/member-join", "",
				map[string]string{"member_id": joined}))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}

		assert.Len(t, gw.DMsTo(joined), 1)
	})

	t.Run("missing member_id is rejected", func(t *testing.T) {
		_, app, _ := newTestServer(t)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/events/member-join", "",
			map[string]string{}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("feature flag off suppresses the welcome", func(t *testing.T) {
		s, app, gw := newTestServer(t)
		s.featureFlags = featureflags.NewManager("welcome_dm=off")
		joined := testutil.Snowflake()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/events/member-join", "",
			map[string]string{"member_id": joined}))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Empty(t, gw.DMsTo(joined))
	})

	t.Run("undeliverable greeting is swallowed", func(t *testing.T) {
		_, app, gw := newTestServer(t)
		gw.DMErr = assert.AnError
		joined := testutil.Snowflake()

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/events/member-join", "",
			map[string]string{"member_id": joined}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
