package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openSQLite opens a WAL-mode database at dbPath, creating its directory.
func openSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(user_id),
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_expires ON tokens(expires_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		is_question INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (user_id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`
	err := withRetry(ctx, "create user", func() error {
		_, err := s.db.ExecContext(ctx, query, user.UserID, user.Username, user.PasswordHash, user.CreatedAt.Unix())
		return err
	})
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT user_id, username, password_hash, created_at FROM users WHERE username = ?`

	var user domain.User
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.UserID, &user.Username, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateToken stores a newly issued access token.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *domain.Token) error {
	query := `INSERT INTO tokens (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	err := withRetry(ctx, "create token", func() error {
		_, err := s.db.ExecContext(ctx, query, token.Value, token.UserID, token.ExpiresAt.Unix(), token.CreatedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// GetToken looks up a token joined with its owner's username.
func (s *SQLiteStore) GetToken(ctx context.Context, value string) (*domain.Token, error) {
	query := `
		SELECT t.token, t.user_id, u.username, t.expires_at, t.created_at
		FROM tokens t JOIN users u ON u.user_id = t.user_id
		WHERE t.token = ?`

	var tok domain.Token
	var expiresAt, createdAt int64
	err := s.db.QueryRowContext(ctx, query, value).Scan(&tok.Value, &tok.UserID, &tok.Username, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan token row: %w", err)
	}
	tok.ExpiresAt = time.Unix(expiresAt, 0)
	tok.CreatedAt = time.Unix(createdAt, 0)
	return &tok, nil
}

// DeleteExpiredTokens removes tokens that expired before now.
func (s *SQLiteStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := withRetry(ctx, "delete expired tokens", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, now.Unix())
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return deleted, nil
}

// DeleteUserTokens revokes every token issued to a user.
func (s *SQLiteStore) DeleteUserTokens(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := withRetry(ctx, "delete user tokens", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete user tokens: %w", err)
	}
	return deleted, nil
}

// SaveMessage appends a line to the message log.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *domain.StoredMessage) error {
	query := `INSERT INTO messages (session_id, user_id, content, is_question, created_at) VALUES (?, ?, ?, ?, ?)`
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	err := withRetry(ctx, "save message", func() error {
		result, err := s.db.ExecContext(ctx, query, msg.SessionID, msg.UserID, msg.Content, msg.IsQuestion, msg.CreatedAt.Unix())
		if err != nil {
			return err
		}
		msg.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListMessages returns a session's message log in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]*domain.StoredMessage, error) {
	query := `
		SELECT id, session_id, user_id, content, is_question, created_at
		FROM messages WHERE session_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var msgs []*domain.StoredMessage
	for rows.Next() {
		var m domain.StoredMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Content, &m.IsQuestion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withRetry runs fn, retrying with exponential backoff on SQLITE_BUSY
// and "database is locked" errors.
func withRetry(ctx context.Context, op string, fn func() error) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, maxRetries, err)
}
