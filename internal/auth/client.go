package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize bounds how much of an auth response is read.
const maxResponseSize = 1 << 16

// Client talks to the peer's /api/register and /api/login endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewClient creates an auth client rooted at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Register creates an account on the peer.
func (c *Client) Register(ctx context.Context, email, password string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/api/register", credentialsRequest{Username: email, Password: password})
	if err != nil {
		return err
	}
	c.logger.Info("Registered account", "email", email, "message", resp.Message)
	return nil
}

// Login exchanges email and password for a session credential.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, "/api/login", credentialsRequest{Username: email, Password: password})
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: %w: no token in response", ErrRejected)
	}
	c.logger.Info("Logged in", "email", email)
	return &Session{Email: email, Token: resp.Token, IssuedAt: time.Now()}, nil
}

// Logout revokes the peer-side credential.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("logout: no credential")
	}
	resp, err := c.send(ctx, "/api/logout", token, struct{}{})
	if err != nil {
		return err
	}
	c.logger.Info("Logged out on peer", "message", resp.Message)
	return nil
}

func (c *Client) post(ctx context.Context, path string, body credentialsRequest) (*authResponse, error) {
	if body.Username == "" || body.Password == "" {
		return nil, errors.New("username and password are required")
	}
	return c.send(ctx, path, "", body)
}

// send posts body as JSON, with token as a bearer credential when set.
func (c *Client) send(ctx context.Context, path, token string, body any) (*authResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return nil, fmt.Errorf("%s: %w: %s", path, ErrRejected, msg)
	}
	return &out, nil
}
