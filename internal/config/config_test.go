package config

import (
	"testing"
	"time"
)

func TestLoadClientDefaults(t *testing.T) {
	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient failed: %v", err)
	}
	if cfg.PeerURL != "ws://localhost:7777/ws" {
		t.Errorf("unexpected PeerURL %q", cfg.PeerURL)
	}
	if cfg.TypingMode != TypingOff {
		t.Errorf("expected typing off by default, got %q", cfg.TypingMode)
	}
	if cfg.ReplyTimeout != 60*time.Second {
		t.Errorf("expected 60s reply timeout, got %v", cfg.ReplyTimeout)
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("JECNABOT_PEER_URL", "wss://bot.example.com/ws")
	t.Setenv("JECNABOT_TYPING_MODE", "WORDS")
	t.Setenv("JECNABOT_TYPING_INTERVAL", "25")
	t.Setenv("JECNABOT_REPLY_TIMEOUT", "0s")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient failed: %v", err)
	}
	if cfg.TypingMode != TypingWords {
		t.Errorf("expected words mode, got %q", cfg.TypingMode)
	}
	if cfg.TypingInterval != 25*time.Millisecond {
		t.Errorf("expected bare number as milliseconds, got %v", cfg.TypingInterval)
	}
	if cfg.ReplyTimeout != 0 {
		t.Errorf("expected timeout disabled, got %v", cfg.ReplyTimeout)
	}
}

func TestClientValidate(t *testing.T) {
	base := ClientConfig{
		PeerURL:    "ws://localhost:7777/ws",
		AuthURL:    "http://localhost:7777",
		DBPath:     "x.db",
		TypingMode: TypingOff,
	}
	tests := []struct {
		name    string
		mutate  func(c *ClientConfig)
		wantErr bool
	}{
		{"valid", func(c *ClientConfig) {}, false},
		{"http peer url", func(c *ClientConfig) { c.PeerURL = "http://localhost/ws" }, true},
		{"ws auth url", func(c *ClientConfig) { c.AuthURL = "ws://localhost" }, true},
		{"empty db", func(c *ClientConfig) { c.DBPath = "" }, true},
		{"bad typing mode", func(c *ClientConfig) { c.TypingMode = "fast" }, true},
		{"words without interval", func(c *ClientConfig) { c.TypingMode = TypingWords }, true},
		{"negative timeout", func(c *ClientConfig) { c.ReplyTimeout = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPeer(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MESSAGE_LOG_ENABLED", "off")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := LoadPeer()
	if err != nil {
		t.Fatalf("LoadPeer failed: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("unexpected port %q", cfg.Port)
	}
	if cfg.MessageLog {
		t.Error("expected message log disabled")
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("unexpected token ttl %v", cfg.TokenTTL)
	}
	if cfg.Greeting != DefaultGreeting {
		t.Errorf("unexpected greeting %q", cfg.Greeting)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected localhost frontend to be development")
	}
}

func TestLoadPeerRejectsEmptyPort(t *testing.T) {
	t.Setenv("PORT", "")
	if _, err := LoadPeer(); err == nil {
		t.Fatal("expected error for empty PORT")
	}
}
