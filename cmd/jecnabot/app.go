package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/tcnksm/go-input"

	"github.com/ashureev/jecnabot/internal/auth"
	"github.com/ashureev/jecnabot/internal/config"
	"github.com/ashureev/jecnabot/internal/store"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	in  io.Reader
	out io.Writer

	cfg     *config.ClientConfig
	logger  *slog.Logger
	creds   *store.CredentialSQLite
	logFile *os.File
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out}
}

// setup loads .env and configuration, opens the log file and the credential
// store.
func (a *app) setup() error {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.setupLogging(); err != nil {
		return err
	}

	creds, err := store.NewCredentialSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	a.creds = creds
	return nil
}

// setupLogging sends logs to a file because the terminal belongs to the UI.
func (a *app) setupLogging() error {
	if a.cfg.LogFile == "" {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		slog.SetDefault(a.logger)
		return nil
	}
	if dir := filepath.Dir(a.cfg.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	a.logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) close() {
	if a.creds != nil {
		if err := a.creds.Close(); err != nil {
			slog.Warn("Failed to close credential store", "error", err)
		}
		a.creds = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

func (a *app) authClient() *auth.Client {
	return auth.NewClient(a.cfg.AuthURL, a.logger)
}

// prompt asks for a value unless one was already supplied.
func (a *app) prompt(value, query string, secret bool) (string, error) {
	if value != "" {
		return value, nil
	}
	ui := &input.UI{
		Writer: a.out,
		Reader: a.in,
	}
	answer, err := ui.Ask(query, &input.Options{
		Required:  true,
		Loop:      true,
		HideOrder: true,
		Mask:      secret,
	})
	if err != nil {
		return "", fmt.Errorf("read %s: %w", query, err)
	}
	if answer == "" {
		return "", errors.New(query + " is required")
	}
	return answer, nil
}
