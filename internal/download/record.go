package download

import (
	"fmt"
	"time"
)

// Kind labels what a record points at in the catalog. The transfer engine
// never interprets it.
type Kind string

const (
	KindVOD      Kind = "vod"
	KindEpisode  Kind = "episode"
	KindLiveClip Kind = "live-clip"
)

// Status is the lifecycle state of a download record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions can happen for this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Record describes one download: identity, target and progress. Records are
// created by callers at enqueue time and mutated exclusively under the queue
// manager's lock while active.
type Record struct {
	ID              string  `json:"id"`
	Kind            Kind    `json:"kind"`
	Title           string  `json:"title"`
	SourceURL       string  `json:"source_url"`
	DestinationPath string  `json:"destination_path"`
	Status          Status  `json:"status"`
	Progress        float64 `json:"progress"`
	TotalBytes      int64   `json:"total_bytes"`
	Transferred     int64   `json:"transferred_bytes"`
	SubtitleURL     string  `json:"subtitle_url,omitempty"`

	// Control flags are meaningful only while the record is active. They are
	// always written to the queue document as cleared.
	PauseRequested  bool `json:"pause_requested"`
	CancelRequested bool `json:"cancel_requested"`
}

// NewRecordID builds the conventional record id for a catalog source.
func NewRecordID(kind Kind, sourceID string) string {
	return fmt.Sprintf("%s_%s_%d", kind, sourceID, time.Now().Unix())
}
