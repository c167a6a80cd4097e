// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	PublicURL   string // base URL clients use to reach this server; derived from the request when empty

	LLM       LLMConfig
	Session   SessionConfig
	Token     TokenConfig
	RateLimit RateLimitConfig

	BroadcastTimeout time.Duration
	MCPEnabled       bool
	ConversationLog  ConversationLogConfig
}

// LLMConfig selects the text generation backend.
type LLMConfig struct {
	Backend       string // genai, grpc or stub
	Model         string
	APIKey        string
	Project       string
	Location      string
	GeneratorAddr string
	MaxToolRounds int
}

// SessionConfig bounds per-room state.
type SessionConfig struct {
	TTL           time.Duration
	MaxRooms      int
	SweepInterval time.Duration
	HistoryTurns  int
}

// TokenConfig controls join tokens.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// RateLimitConfig limits inbound WebSocket frames per connection.
type RateLimitConfig struct {
	EventsPerSecond float64
	Burst           int
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		PublicURL:   getEnv("PUBLIC_URL", ""),
		LLM: LLMConfig{
			Backend:       strings.ToLower(getEnv("LLM_BACKEND", "stub")),
			Model:         getEnv("LLM_MODEL", "gemini-2.5-flash"),
			APIKey:        getEnv("GOOGLE_API_KEY", ""),
			Project:       getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Location:      getEnv("GOOGLE_CLOUD_LOCATION", ""),
			GeneratorAddr: getEnv("GENERATOR_ADDR", "localhost:50051"),
			MaxToolRounds: getEnvInt("MAX_TOOL_ROUNDS", 3),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 60*time.Minute),
			MaxRooms:      getEnvInt("SESSION_MAX_ROOMS", 1000),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			HistoryTurns:  getEnvInt("HISTORY_TURNS", 12),
		},
		Token: TokenConfig{
			Secret: getEnv("TOKEN_SECRET", ""),
			TTL:    getEnvDuration("TOKEN_TTL", 6*time.Hour),
		},
		RateLimit: RateLimitConfig{
			EventsPerSecond: getEnvFloat("RATE_LIMIT_EVENTS_PER_SECOND", 5),
			Burst:           getEnvInt("RATE_LIMIT_BURST", 10),
		},
		BroadcastTimeout: getEnvDuration("BROADCAST_TIMEOUT", 5*time.Second),
		MCPEnabled:       getEnvBool("MCP_ENABLED", false),
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000),
		},
	}

	if cfg.Token.Secret == "" && cfg.IsDevelopment() {
		cfg.Token.Secret = "convoguide-dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.LLM.Backend {
	case "genai":
		if c.LLM.APIKey == "" && (c.LLM.Project == "" || c.LLM.Location == "") {
			return fmt.Errorf("LLM_BACKEND=genai needs GOOGLE_API_KEY or GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION")
		}
	case "grpc":
		if c.LLM.GeneratorAddr == "" {
			return fmt.Errorf("GENERATOR_ADDR cannot be empty when LLM_BACKEND=grpc")
		}
	case "stub":
	default:
		return fmt.Errorf("LLM_BACKEND must be one of genai, grpc, stub; got %q", c.LLM.Backend)
	}
	if c.LLM.MaxToolRounds <= 0 {
		return fmt.Errorf("MAX_TOOL_ROUNDS must be > 0")
	}
	if c.Session.TTL < 0 || c.Session.MaxRooms < 0 {
		return fmt.Errorf("SESSION_TTL and SESSION_MAX_ROOMS cannot be negative")
	}
	if c.Session.TTL > 0 && c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0 when SESSION_TTL is set")
	}
	if c.Session.HistoryTurns <= 0 {
		return fmt.Errorf("HISTORY_TURNS must be > 0")
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("TOKEN_SECRET cannot be empty outside development")
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if c.RateLimit.EventsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_EVENTS_PER_SECOND and RATE_LIMIT_BURST must be > 0")
	}
	if c.BroadcastTimeout <= 0 {
		return fmt.Errorf("BROADCAST_TIMEOUT must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
