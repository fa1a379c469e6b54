// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultChatTimeout bounds a client-side chat exchange.
const DefaultChatTimeout = 30 * time.Second

// Config holds the reference backend configuration.
type Config struct {
	Port            string
	FrontendURL     string
	DBPath          string
	ChatTimeout     time.Duration
	AuthTokens      map[string]string // token -> user ID, seeded at startup
	LLM             LLMConfig
	RateLimit       RateLimitConfig
	Retention       RetentionConfig
	SSE             SSEConfig
	ConversationLog ConversationLogConfig
}

// LLMConfig points the backend at an OpenAI-compatible completion endpoint.
// An empty APIKey puts the backend in demo mode.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// RateLimitConfig controls per-user chat throttling.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RetentionConfig controls background expiry of old sessions. A zero MaxAge keeps
// sessions forever.
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// SSEConfig controls chat stream behavior.
type SSEConfig struct {
	KeepaliveInterval  time.Duration
	MaxRequestBodySize int64
	DemoTypingDelay    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// ClientConfig holds configuration for the chat clients.
type ClientConfig struct {
	BaseURL     string
	Language    string
	ChatTimeout time.Duration
}

// DemoMode reports whether no live model credentials are configured.
func (l LLMConfig) DemoMode() bool {
	return strings.TrimSpace(l.APIKey) == ""
}

// Load reads the backend configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	tokens, err := parseTokens(getEnv("AUTH_TOKENS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/aura.db"),
		ChatTimeout: getEnvDuration("CHAT_TIMEOUT", 25*time.Second),
		AuthTokens:  tokens,
		LLM: LLMConfig{
			BaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("LLM_API_KEY", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Retention: RetentionConfig{
			MaxAge:   getEnvDuration("SESSION_RETENTION", 0),
			Interval: getEnvDuration("SESSION_RETENTION_INTERVAL", 5*time.Minute),
		},
		SSE: SSEConfig{
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE_INTERVAL", 10*time.Second),
			MaxRequestBodySize: int64(getEnvInt("SSE_MAX_REQUEST_BODY_SIZE", 1<<20)),
			DemoTypingDelay:    getEnvDuration("DEMO_TYPING_DELAY", 40*time.Millisecond),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.ChatTimeout <= 0 {
		return fmt.Errorf("CHAT_TIMEOUT must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("SESSION_RETENTION must be >= 0")
	}
	if c.SSE.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE_INTERVAL must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("SSE_MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if !c.LLM.DemoMode() {
		if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
			return fmt.Errorf("LLM_BASE_URL is not a valid URL: %w", err)
		}
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// LoadClient reads the chat client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		BaseURL:     strings.TrimRight(getEnv("AURA_BASE_URL", "http://localhost:8080"), "/"),
		Language:    getEnv("AURA_LANG", "sv"),
		ChatTimeout: getEnvDuration("AURA_CHAT_TIMEOUT", DefaultChatTimeout),
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid configuration: AURA_BASE_URL: %w", err)
	}
	if cfg.ChatTimeout < 0 {
		return nil, fmt.Errorf("invalid configuration: AURA_CHAT_TIMEOUT must be >= 0")
	}
	return cfg, nil
}

// parseTokens parses "token:user,token2:user2".
func parseTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("AUTH_TOKENS entry %q must be token:user", pair)
		}
		tokens[token] = user
	}
	return tokens, nil
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
