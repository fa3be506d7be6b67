package peer

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/jecnabot/internal/store"
)

// RunTokenJanitor periodically deletes expired access tokens until ctx is
// cancelled.
func RunTokenJanitor(ctx context.Context, repo store.Repository, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Token janitor started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			sweepExpiredTokens(ctx, repo, time.Now())
		case <-ctx.Done():
			slog.Info("Token janitor shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweepExpiredTokens(ctx context.Context, repo store.Repository, now time.Time) int64 {
	deleted, err := repo.DeleteExpiredTokens(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Token janitor cancelled mid-sweep", "error", err)
			return 0
		}
		slog.Error("Token janitor failed to delete expired tokens", "error", err)
		return 0
	}
	if deleted > 0 {
		slog.Info("Token janitor removed expired tokens", "count", deleted)
	}
	return deleted
}
