package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warden/internal/cache"
	"warden/internal/config"
	"warden/internal/models"
	"warden/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

// testLogChannel is the mod-log broadcast channel used in handler tests.
const testLogChannel = "900000000000000001"

func newTestServer(t *testing.T) (*Server, *fiber.App, *testutil.GatewayStub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PunishmentRecord{}))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(redisClient)
	t.Cleanup(func() { cache.SetClient(nil) })

	gw := testutil.NewGatewayStub()

	cfg := &config.Config{
		JWTSecret:       testJWTSecret,
		Port:            "0",
		Env:             "test",
		FeatureFlags:    "welcome_dm=on,mod_feed=on",
		ModLogChannelID: testLogChannel,
	}

	s, err := NewServerWithDeps(cfg, db, redisClient, gw)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, gw
}

// bearerToken mints a valid token whose subject is the given member ID.
func bearerToken(t *testing.T, memberID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": memberID,
		"iss": "warden-api",
		"aud": "warden-client",
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": "test-jti-" + memberID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	str, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + str
}

func jsonRequest(t *testing.T, method, path, memberID string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if memberID != "" {
		req.Header.Set("Authorization", bearerToken(t, memberID))
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
