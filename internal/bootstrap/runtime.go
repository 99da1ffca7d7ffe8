// Package bootstrap wires DB and Redis initialization for commands that need
// a ready runtime without the full HTTP server.
package bootstrap

import (
	"fmt"

	"warden/internal/cache"
	"warden/internal/config"
	"warden/internal/database"
	"warden/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo punishment
// history. The Redis client may be nil when the server is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemoData {
		if err := seed.NewFactory(db, seed.Options{}).Run(); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}
