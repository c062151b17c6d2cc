// Package cleanup prunes finished download history so the database does not
// grow without bound on long-running installs.
package cleanup

import (
	"context"
	"time"

	"github.com/xtreamkit/xtream_player/internal/logctx"
)

// HistoryPruner deletes history rows that finished before the cutoff.
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneHistory removes history entries older than keepFor.
func PruneHistory(ctx context.Context, pruner HistoryPruner, keepFor time.Duration) error {
	logger := logctx.LoggerFromContext(ctx)
	cutoff := time.Now().Add(-keepFor)

	removed, err := pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("failed to prune download history", "cutoff", cutoff, "err", err)

		return err
	}

	if removed > 0 {
		logger.Info("pruned download history", "removed", removed, "cutoff", cutoff)
	}

	return nil
}
