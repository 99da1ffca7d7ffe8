package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func productionConfig() *Config {
	return &Config{
		Env:          "production",
		Port:         "8375",
		JWTSecret:    "secure-secret-at-least-32-chars-long",
		DBPassword:   "secure-password",
		DBSSLMode:    "require",
		DiscordToken: "bot-token",
		GuildID:      "100000000000000001",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"default JWT secret in production", func(c *Config) {
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"short JWT secret in production", func(c *Config) { c.JWTSecret = "short-but-not-empty" }, true},
		{"default DB password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"missing discord token in production", func(c *Config) { c.DiscordToken = "" }, true},
		{"missing guild ID in production", func(c *Config) { c.GuildID = "" }, true},
		{"prod alias enforces the same checks", func(c *Config) {
			c.Env = "prod"
			c.DiscordToken = ""
		}, true},
		{"development tolerates weak secrets", func(c *Config) {
			c.Env = "development"
			c.JWTSecret = "short"
			c.DBPassword = ""
			c.DiscordToken = ""
			c.GuildID = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := productionConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
