package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/xtreamkit/xtream_player/internal/download"
	"github.com/xtreamkit/xtream_player/internal/storage"
	"github.com/xtreamkit/xtream_player/internal/telemetry"
)

// InstrumentedHistoryRepository wraps HistoryRepository with telemetry.
type InstrumentedHistoryRepository struct {
	repo      *HistoryRepository
	telemetry *telemetry.Telemetry
}

// NewInstrumentedHistoryRepository creates a new instrumented history repository.
func NewInstrumentedHistoryRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedHistoryRepository {
	return &InstrumentedHistoryRepository{
		repo:      NewHistoryRepository(dbConn),
		telemetry: tel,
	}
}

// Add records a terminal outcome with telemetry.
func (r *InstrumentedHistoryRepository) Add(ctx context.Context, rec download.Record, finishedAt time.Time) error {
	return r.telemetry.InstrumentDBOperation(ctx, "add_history", func(ctx context.Context) error {
		return r.repo.Add(ctx, rec, finishedAt)
	})
}

// List returns recorded outcomes with telemetry.
func (r *InstrumentedHistoryRepository) List(limit int) ([]storage.HistoryEntry, error) {
	var result []storage.HistoryEntry

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(context.Background(), "list_history", func(ctx context.Context) error {
		result, err = r.repo.List(limit)

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

// DeleteOlderThan prunes old history rows with telemetry.
func (r *InstrumentedHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var result int64

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(ctx, "delete_history", func(ctx context.Context) error {
		result, err = r.repo.DeleteOlderThan(ctx, cutoff)

		return err
	})

	if instrumentedErr != nil {
		return 0, instrumentedErr
	}

	return result, nil
}
