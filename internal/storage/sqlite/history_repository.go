package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/xtreamkit/xtream_player/internal/download"
	"github.com/xtreamkit/xtream_player/internal/storage"
)

// HistoryRepository stores terminal download records in SQLite.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(dbConn *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: dbConn}
}

// Add records a terminal outcome. Re-adding the same id overwrites the
// previous row, so a retried record under a fresh id never collides.
func (r *HistoryRepository) Add(ctx context.Context, rec download.Record, finishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO download_history (id, kind, title, source_url, destination_path, status, total_bytes, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_bytes = excluded.total_bytes,
			finished_at = excluded.finished_at
	`, rec.ID, string(rec.Kind), rec.Title, rec.SourceURL, rec.DestinationPath, string(rec.Status),
		rec.TotalBytes, finishedAt.Format(time.RFC3339))

	return err
}

// List returns recorded outcomes, newest first.
func (r *HistoryRepository) List(limit int) ([]storage.HistoryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, kind, title, source_url, destination_path, status, total_bytes, finished_at
		FROM download_history
		ORDER BY finished_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []storage.HistoryEntry

	for rows.Next() {
		var entry storage.HistoryEntry

		var finishedAt string

		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.Title, &entry.SourceURL,
			&entry.DestinationPath, &entry.Status, &entry.TotalBytes, &finishedAt); err != nil {
			return nil, err
		}

		if ts, err := time.Parse(time.RFC3339, finishedAt); err == nil {
			entry.FinishedAt = ts
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes history rows finished before the cutoff and
// returns how many were deleted.
func (r *HistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM download_history WHERE finished_at < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
