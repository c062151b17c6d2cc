package storage

import "time"

// HistoryEntry is a terminal download outcome kept for later confirmation,
// after the record has left the queue document.
type HistoryEntry struct {
	ID              string
	Kind            string
	Title           string
	SourceURL       string
	DestinationPath string
	Status          string
	TotalBytes      int64
	FinishedAt      time.Time
}

// HistoryReadRepository lists recorded outcomes, newest first.
type HistoryReadRepository interface {
	List(limit int) ([]HistoryEntry, error)
}
