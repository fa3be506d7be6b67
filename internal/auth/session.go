// Package auth provides the credential store contract and the HTTP client
// used to obtain credentials from the peer.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidEmail is returned when a login name is not an email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrRejected is wrapped by errors reported by the peer's auth endpoints.
	ErrRejected = errors.New("rejected by peer")
)

// Session is the authenticated identity handed to the chat controller.
type Session struct {
	Email    string
	Token    string
	IssuedAt time.Time
}

// Valid reports whether the session carries a usable credential.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

// Store persists the current credential.
type Store interface {
	// Current returns the stored session, or nil when nobody is logged in.
	Current(ctx context.Context) (*Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, s *Session) error

	// Clear removes the stored session (logout).
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

// NewMemoryStore creates a store, optionally pre-populated.
func NewMemoryStore(initial *Session) *MemoryStore {
	m := &MemoryStore{}
	if initial != nil {
		cp := *initial
		m.session = &cp
	}
	return m
}

// Current returns a copy of the stored session.
func (m *MemoryStore) Current(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if !s.Valid() {
		return errors.New("save session: empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

// Clear drops the stored session.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// NormalizeEmail trims and lowercases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
