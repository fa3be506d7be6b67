// JecnaBot development peer: auth endpoints plus the chat WebSocket.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/jecnabot/internal/config"
	"github.com/ashureev/jecnabot/internal/peer"
	"github.com/ashureev/jecnabot/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadPeer()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Peer stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.PeerConfig) error {
	slog.Info("Starting peer", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	kb, err := peer.LoadKnowledgeBase(cfg.FAQPath)
	if err != nil {
		return err
	}
	slog.Info("Knowledge base loaded", "topics", len(kb.Topics), "path", cfg.FAQPath)

	sessions := peer.NewSessionManager()
	origins := []string{"*"}
	if !cfg.IsDevelopment() {
		origins = []string{cfg.FrontendURL}
	}

	handler := peer.NewRouter(peer.RouterConfig{
		Repo:           repo,
		Responder:      peer.NewResponder(kb, cfg.Greeting),
		Sessions:       sessions,
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: origins,
		FrontendURL:    cfg.FrontendURL,
		IsDev:          cfg.IsDevelopment(),
		MessageLog:     cfg.MessageLog,
		RequestLogging: true,
	})

	// WebSocket sessions are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return peer.RunTokenJanitor(gctx, repo, cfg.JanitorPeriod)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown.
		sessions.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
