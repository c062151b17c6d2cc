package queuedoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtreamkit/xtream_player/internal/download"
)

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "data", "queue.json"))

	records := []download.Record{
		{
			ID:              "vod_42_1",
			Kind:            download.KindVOD,
			Title:           "Some Movie",
			SourceURL:       "http://provider.example/movie/u/p/42.mkv",
			DestinationPath: "/downloads/Some Movie.mkv",
			Status:          download.StatusPaused,
			Progress:        37.5,
			TotalBytes:      8000,
			Transferred:     3000,
			SubtitleURL:     "http://provider.example/subs/42.srt",
		},
		{
			ID:              "episode_900_2",
			Kind:            download.KindEpisode,
			Title:           "Show S01E02",
			SourceURL:       "http://provider.example/series/u/p/900.mp4",
			DestinationPath: "/downloads/Show S01E02.mp4",
			Status:          download.StatusPending,
		},
	}

	require.NoError(t, store.Save(records))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, records[0].ID, loaded[0].ID)
	assert.Equal(t, records[0].Status, loaded[0].Status)
	assert.Equal(t, records[0].Transferred, loaded[0].Transferred)
	assert.Equal(t, records[0].TotalBytes, loaded[0].TotalBytes)
	assert.Equal(t, records[0].SubtitleURL, loaded[0].SubtitleURL)
	assert.Equal(t, records[1].ID, loaded[1].ID, "queue order must survive a round trip")
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "queue.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_LoadCorruptFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
}

func TestStore_ControlFlagsNeverPersist(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "queue.json"))

	require.NoError(t, store.Save([]download.Record{
		{
			ID:              "vod_1_1",
			SourceURL:       "http://x/y.mp4",
			DestinationPath: "/downloads/y.mp4",
			PauseRequested:  true,
			CancelRequested: true,
		},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, loaded[0].PauseRequested)
	assert.False(t, loaded[0].CancelRequested)
}
