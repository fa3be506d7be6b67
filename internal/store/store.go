// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/jecnabot/internal/domain"
)

// ErrDuplicateUser is returned when registering a username that exists.
var ErrDuplicateUser = errors.New("user already exists")

// Repository defines the interface for persisting peer-side accounts,
// access tokens and the chat message log.
type Repository interface {
	// CreateUser inserts a new user. Returns ErrDuplicateUser if the username is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByUsername retrieves a user by username, or nil if none exists.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateToken stores a newly issued access token.
	CreateToken(ctx context.Context, token *domain.Token) error

	// GetToken looks up a token, or nil if it is unknown.
	GetToken(ctx context.Context, value string) (*domain.Token, error)

	// DeleteExpiredTokens removes tokens that expired before now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// DeleteUserTokens revokes every token issued to a user.
	DeleteUserTokens(ctx context.Context, userID string) (int64, error)

	// SaveMessage appends a line to the message log.
	SaveMessage(ctx context.Context, msg *domain.StoredMessage) error

	// ListMessages returns a session's message log in insertion order.
	ListMessages(ctx context.Context, sessionID string) ([]*domain.StoredMessage, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
