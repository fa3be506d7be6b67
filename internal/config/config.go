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

// TypingMode selects how bot replies are revealed in the transcript.
type TypingMode string

const (
	TypingOff   TypingMode = "off"
	TypingWords TypingMode = "words"
	TypingDelay TypingMode = "delay"
)

// ClientConfig holds configuration for the chat client.
type ClientConfig struct {
	PeerURL        string
	AuthURL        string
	DBPath         string
	LogFile        string
	TypingMode     TypingMode
	TypingInterval time.Duration
	TypingDelay    time.Duration
	ReplyTimeout   time.Duration
}

// PeerConfig holds configuration for the development peer.
type PeerConfig struct {
	Port          string
	FrontendURL   string
	DBPath        string
	FAQPath       string // empty = embedded knowledge base
	Greeting      string
	TokenTTL      time.Duration
	JanitorPeriod time.Duration
	MessageLog    bool
}

// DefaultGreeting is sent in the welcome event when GREETING is unset.
const DefaultGreeting = "Welcome to JečnáBot! What can I do for you? Type 'exit' to disconnect."

// LoadClient reads client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		PeerURL:        getEnv("JECNABOT_PEER_URL", "ws://localhost:7777/ws"),
		AuthURL:        getEnv("JECNABOT_AUTH_URL", "http://localhost:7777"),
		DBPath:         getEnv("JECNABOT_DB_PATH", "./data/jecnabot.db"),
		LogFile:        getEnv("JECNABOT_LOG_FILE", "./data/jecnabot.log"),
		TypingMode:     TypingMode(strings.ToLower(getEnv("JECNABOT_TYPING_MODE", string(TypingOff)))),
		TypingInterval: getEnvDuration("JECNABOT_TYPING_INTERVAL", 60*time.Millisecond),
		TypingDelay:    getEnvDuration("JECNABOT_TYPING_DELAY", 800*time.Millisecond),
		ReplyTimeout:   getEnvDuration("JECNABOT_REPLY_TIMEOUT", 60*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required client configuration fields are set.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.PeerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("JECNABOT_PEER_URL must be a ws:// or wss:// URL, got %q", c.PeerURL)
	}
	a, err := url.Parse(c.AuthURL)
	if err != nil || (a.Scheme != "http" && a.Scheme != "https") || a.Host == "" {
		return fmt.Errorf("JECNABOT_AUTH_URL must be an http:// or https:// URL, got %q", c.AuthURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("JECNABOT_DB_PATH cannot be empty")
	}
	switch c.TypingMode {
	case TypingOff, TypingWords, TypingDelay:
	default:
		return fmt.Errorf("JECNABOT_TYPING_MODE must be one of off, words, delay")
	}
	if c.TypingMode == TypingWords && c.TypingInterval <= 0 {
		return fmt.Errorf("JECNABOT_TYPING_INTERVAL must be > 0")
	}
	if c.TypingMode == TypingDelay && c.TypingDelay <= 0 {
		return fmt.Errorf("JECNABOT_TYPING_DELAY must be > 0")
	}
	if c.ReplyTimeout < 0 {
		return fmt.Errorf("JECNABOT_REPLY_TIMEOUT cannot be negative")
	}
	return nil
}

// LoadPeer reads peer configuration from environment variables.
func LoadPeer() (*PeerConfig, error) {
	cfg := &PeerConfig{
		Port:          getEnv("PORT", "7777"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		DBPath:        getEnv("DB_PATH", "./data/peer.db"),
		FAQPath:       getEnv("FAQ_PATH", ""),
		Greeting:      getEnv("GREETING", DefaultGreeting),
		TokenTTL:      getEnvDuration("TOKEN_TTL", 24*time.Hour),
		JanitorPeriod: getEnvDuration("TOKEN_JANITOR_PERIOD", 10*time.Minute),
		MessageLog:    getEnvBool("MESSAGE_LOG_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required peer configuration fields are set.
func (c *PeerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if c.JanitorPeriod <= 0 {
		return fmt.Errorf("TOKEN_JANITOR_PERIOD must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *PeerConfig) IsDevelopment() bool {
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

// getEnvDuration accepts Go duration strings ("90s") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
