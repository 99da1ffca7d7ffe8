package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	punishmentsKeyPrefix = "punishments:%s"
	welcomeKeyPrefix     = "welcome:%s"
)

const (
	// PunishmentsTTL bounds staleness of cached punishment history reads.
	PunishmentsTTL = 5 * time.Minute
	// WelcomeTTL is how long a member-join welcome is considered already sent.
	WelcomeTTL = 30 * 24 * time.Hour
)

// PunishmentsKey returns the cache key for a target's punishment history.
func PunishmentsKey(targetID string) string {
	return fmt.Sprintf(punishmentsKeyPrefix, targetID)
}

// WelcomeKey returns the dedup key for a member's welcome message.
func WelcomeKey(memberID string) string {
	return fmt.Sprintf(welcomeKeyPrefix, memberID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	// Fetch from source (DB)
	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate removes a key. Safe to call without a client.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidatePunishments drops a target's cached punishment history.
func InvalidatePunishments(ctx context.Context, targetID string) {
	Invalidate(ctx, PunishmentsKey(targetID))
}

// ClaimOnce sets key if absent and reports whether this caller claimed it.
// Used to deduplicate one-shot side effects like welcome messages. Without a
// client it claims unconditionally.
func ClaimOnce(ctx context.Context, key string, ttl time.Duration) bool {
	if client == nil {
		return true
	}
	ok, err := client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
