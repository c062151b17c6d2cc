package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtreamkit/xtream_player/internal/download"
)

func newTestRepository(t *testing.T) *HistoryRepository {
	t.Helper()

	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHistoryRepository(db)
}

func TestHistoryRepository_AddAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := download.Record{
		ID:              "vod_1_1",
		Kind:            download.KindVOD,
		Title:           "First Movie",
		SourceURL:       "http://provider.example/movie/u/p/1.mp4",
		DestinationPath: "/downloads/First Movie.mp4",
		Status:          download.StatusCompleted,
		TotalBytes:      4096,
	}
	newer := download.Record{
		ID:     "vod_2_2",
		Kind:   download.KindVOD,
		Title:  "Second Movie",
		Status: download.StatusFailed,
	}

	require.NoError(t, repo.Add(ctx, older, time.Now().Add(-time.Hour)))
	require.NoError(t, repo.Add(ctx, newer, time.Now()))

	entries, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "vod_2_2", entries[0].ID, "newest first")
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "vod_1_1", entries[1].ID)
	assert.Equal(t, "completed", entries[1].Status)
	assert.Equal(t, int64(4096), entries[1].TotalBytes)
	assert.Equal(t, "/downloads/First Movie.mp4", entries[1].DestinationPath)
}

func TestHistoryRepository_AddOverwritesSameID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := download.Record{ID: "vod_1_1", Status: download.StatusFailed}
	require.NoError(t, repo.Add(ctx, rec, time.Now().Add(-time.Minute)))

	rec.Status = download.StatusCompleted
	rec.TotalBytes = 2048
	require.NoError(t, repo.Add(ctx, rec, time.Now()))

	entries, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "completed", entries[0].Status)
	assert.Equal(t, int64(2048), entries[0].TotalBytes)
}

func TestHistoryRepository_ListRespectsLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := download.Record{
			ID:     download.NewRecordID(download.KindVOD, string(rune('a'+i))),
			Status: download.StatusCompleted,
		}
		require.NoError(t, repo.Add(ctx, rec, time.Now().Add(time.Duration(i)*time.Second)))
	}

	entries, err := repo.List(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestHistoryRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, download.Record{ID: "old", Status: download.StatusCompleted}, time.Now().Add(-48*time.Hour)))
	require.NoError(t, repo.Add(ctx, download.Record{ID: "fresh", Status: download.StatusCompleted}, time.Now()))

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	entries, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].ID)
}
