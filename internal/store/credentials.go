package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/jecnabot/internal/auth"
)

// CredentialSQLite implements auth.Store on a single-row SQLite table.
type CredentialSQLite struct {
	db *sql.DB
}

var _ auth.Store = (*CredentialSQLite)(nil)

// NewCredentialSQLite opens (or creates) the client's credential database.
func NewCredentialSQLite(dbPath string) (*CredentialSQLite, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS credential (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		email TEXT NOT NULL,
		token TEXT NOT NULL,
		issued_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: create credential table: %w", err)
	}
	return &CredentialSQLite{db: db}, nil
}

// Current returns the stored session, or nil when nobody is logged in.
func (c *CredentialSQLite) Current(ctx context.Context) (*auth.Session, error) {
	var s auth.Session
	var issuedAt int64
	err := c.db.QueryRowContext(ctx, `SELECT email, token, issued_at FROM credential WHERE slot = 1`).
		Scan(&s.Email, &s.Token, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	s.IssuedAt = time.Unix(issuedAt, 0)
	return &s, nil
}

// Save replaces the stored session.
func (c *CredentialSQLite) Save(ctx context.Context, s *auth.Session) error {
	if !s.Valid() {
		return errors.New("save credential: empty token")
	}
	issued := s.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	query := `
	INSERT INTO credential (slot, email, token, issued_at) VALUES (1, ?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET
		email = excluded.email,
		token = excluded.token,
		issued_at = excluded.issued_at`
	err := withRetry(ctx, "save credential", func() error {
		_, err := c.db.ExecContext(ctx, query, s.Email, s.Token, issued.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (c *CredentialSQLite) Clear(ctx context.Context) error {
	err := withRetry(ctx, "clear credential", func() error {
		_, err := c.db.ExecContext(ctx, `DELETE FROM credential`)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *CredentialSQLite) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
