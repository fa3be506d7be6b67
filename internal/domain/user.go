// Package domain contains core domain types for the JecnaBot application.
package domain

import (
	"time"
)

// User is a registered peer account.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Token is an access credential issued by the peer at login.
type Token struct {
	Value     string
	UserID    string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// StoredMessage is one logged chat line on the peer side.
type StoredMessage struct {
	ID         int64
	SessionID  string
	UserID     string
	Content    string
	IsQuestion bool
	CreatedAt  time.Time
}
