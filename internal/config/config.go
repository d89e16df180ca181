package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string // optional; cross-instance snapshot fanout disabled when empty

	// Identity
	JWTSecret      string
	OwnerEmail     string   // the single identity whose collections are authoritative
	AllowedViewers []string // emails granted read-only access to the owner's data

	// Webhooks
	WebhookAPIKey    string // shared secret for the direct add-task endpoint
	SlackBotToken    string // bot token used to post replies
	SlackOwnerUserID string // the owner's Slack user id; other senders are delegates

	// Workspace file (seed data, canonical order, shorthand aliases)
	WorkspaceFile string

	// Sessions
	SessionIdleTimeout time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	viewersEnv := getEnv("ALLOWED_VIEWERS", "")
	var viewers []string
	if viewersEnv != "" {
		viewers = strings.Split(viewersEnv, ",")
		for i := range viewers {
			viewers[i] = strings.ToLower(strings.TrimSpace(viewers[i]))
		}
	}

	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		OwnerEmail:     strings.ToLower(getEnv("OWNER_EMAIL", "")),
		AllowedViewers: viewers,

		WebhookAPIKey:    getEnv("API_SECRET", ""),
		SlackBotToken:    getEnv("SLACK_BOT_TOKEN", ""),
		SlackOwnerUserID: getEnv("SLACK_OWNER_USER_ID", ""),

		WorkspaceFile: getEnv("WORKSPACE_FILE", ""),

		SessionIdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
}

// IsViewerEmail reports whether the email is on the viewer allow-list
func (c *Config) IsViewerEmail(email string) bool {
	email = strings.ToLower(email)
	for _, v := range c.AllowedViewers {
		if v == email {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
