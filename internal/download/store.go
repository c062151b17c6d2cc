package download

import (
	"context"
	"time"
)

// QueueStore persists the pending and paused queue as a single document.
// Implementations must tolerate a missing document by returning an empty
// queue.
type QueueStore interface {
	Load() ([]*Record, error)
	Save(records []Record) error
}

// HistoryRepository keeps terminal records so a completed download is still
// visible after the queue document no longer lists it.
type HistoryRepository interface {
	Add(ctx context.Context, rec Record, finishedAt time.Time) error
}

// Metrics receives transfer lifecycle measurements. All methods must be
// cheap and non-blocking.
type Metrics interface {
	DownloadStarted()
	DownloadFinished(status string, duration time.Duration)
	BytesTransferred(n int64)
	QueueDepth(n int64)
}
