package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/identity"
	"github.com/ashureev/jecnabot/internal/store"
)

const maxCredentialBody = 64 << 10

// AuthHandler handles account registration, login and logout.
type AuthHandler struct {
	*Handler
	onLogout func(userID string)
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// OnLogout sets a callback run after a user's tokens are revoked.
func (h *AuthHandler) OnLogout(fn func(userID string)) {
	h.onLogout = fn
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(identity.Middleware(h.repo)).Post("/logout", h.Logout)
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCredentialBody)).Decode(&req); err != nil {
		return req, false
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	return req, req.Username != "" && req.Password != ""
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusBadRequest, "Password cannot be used")
		return
	}

	user := &domain.User{
		UserID:       uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    h.now(),
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			Error(w, http.StatusConflict, "User already exists")
			return
		}
		slog.Error("Failed to create user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	slog.Info("User registered", "user_id", user.UserID)
	JSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully!"})
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		Error(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("Failed to load user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		Error(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	value, err := newToken()
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	now := h.now()
	tok := &domain.Token{
		Value:     value,
		UserID:    user.UserID,
		Username:  user.Username,
		ExpiresAt: now.Add(h.tokenTTL),
		CreatedAt: now,
	}
	if err := h.repo.CreateToken(r.Context(), tok); err != nil {
		slog.Error("Failed to store token", "error", err, "user_id", user.UserID)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	slog.Info("User logged in", "user_id", user.UserID, "expires_at", tok.ExpiresAt)
	JSON(w, http.StatusOK, map[string]string{
		"message": "Login successful!",
		"token":   value,
	})
}

// Logout revokes every token of the calling user.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	revoked, err := h.repo.DeleteUserTokens(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to revoke tokens", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	if h.onLogout != nil {
		h.onLogout(userID)
	}

	slog.Info("User logged out", "user_id", userID, "revoked", revoked)
	JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
