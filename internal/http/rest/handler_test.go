package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtreamkit/xtream_player/internal/download"
	"github.com/xtreamkit/xtream_player/internal/storage"
	"github.com/xtreamkit/xtream_player/internal/xtream"
)

// mockQueue implements QueueManager for testing.
type mockQueue struct {
	enqueued     []*download.Record
	enqueueErr   error
	pauseCalled  bool
	resumeCalled bool
	cancelledID  string
	snapshot     []download.Record
}

func (m *mockQueue) Enqueue(_ context.Context, rec *download.Record) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}

	m.enqueued = append(m.enqueued, rec)

	return nil
}

func (m *mockQueue) Pause()                              { m.pauseCalled = true }
func (m *mockQueue) Resume()                             { m.resumeCalled = true }
func (m *mockQueue) Cancel(_ context.Context, id string) { m.cancelledID = id }
func (m *mockQueue) Snapshot() []download.Record         { return m.snapshot }

type mockHistory struct {
	entries []storage.HistoryEntry
	err     error
}

func (m *mockHistory) List(_ int) ([]storage.HistoryEntry, error) {
	return m.entries, m.err
}

// newCatalogServer returns an Xtream provider stub that answers player_api
// actions from the given map.
func newCatalogServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")

		body, ok := responses[action]
		if !ok {
			http.Error(w, "unknown action", http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func newTestHandler(t *testing.T, queue *mockQueue, history *mockHistory, responses map[string]string) http.Handler {
	t.Helper()

	srv := newCatalogServer(t, responses)
	t.Cleanup(srv.Close)

	catalog := xtream.NewClient(srv.URL, "user", "pass", 5*time.Second)

	return NewHandler(queue, catalog, history, "/downloads").Routes()
}

type memQueueStore struct {
	mu    sync.Mutex
	saved [][]download.Record
}

func (s *memQueueStore) Load() ([]*download.Record, error) { return nil, nil }

func (s *memQueueStore) Save(records []download.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = append(s.saved, records)

	return nil
}

type memHistoryStore struct {
	mu      sync.Mutex
	entries []download.Record
}

func (h *memHistoryStore) Add(_ context.Context, rec download.Record, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, rec)

	return nil
}

func (h *memHistoryStore) snapshot() []download.Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]download.Record, len(h.entries))
	copy(out, h.entries)

	return out
}

// Enqueueing over real HTTP must complete the download after the request
// context is long gone: the worker lives on the manager's base context, not
// the caller's.
func TestEnqueueOverHTTP_CompletesAfterRequestEnds(t *testing.T) {
	content := []byte("media payload that outlives the enqueue request")
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	t.Cleanup(media.Close)

	history := &memHistoryStore{}
	engine := download.NewEngine(&http.Client{}, 16, 5*time.Second)
	queue := download.NewManager(context.Background(), engine, &memQueueStore{}, history, nil)

	dir := t.TempDir()
	catalog := xtream.NewClient("http://unused.example", "user", "pass", time.Second)
	api := httptest.NewServer(NewHandler(queue, catalog, &mockHistory{}, dir).Routes())
	t.Cleanup(api.Close)

	body, _ := json.Marshal(EnqueueRequest{
		Kind:      "vod",
		Title:     "Some Movie",
		SourceURL: media.URL + "/movie.mp4",
	})

	resp, err := http.Post(api.URL+"/queue", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return len(history.snapshot()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	entry := history.snapshot()[0]
	assert.Equal(t, download.StatusCompleted, entry.Status)
	assert.Equal(t, int64(len(content)), entry.Transferred)

	got, err := os.ReadFile(filepath.Join(dir, "Some Movie.mp4"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestHandleQueueList(t *testing.T) {
	queue := &mockQueue{snapshot: []download.Record{
		{ID: "vod_1_1", Title: "Movie", Status: download.StatusActive, Progress: 42},
	}}
	handler := newTestHandler(t, queue, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []download.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "vod_1_1", got[0].ID)
	assert.Equal(t, download.StatusActive, got[0].Status)
}

func TestHandleEnqueue_DirectURL(t *testing.T) {
	queue := &mockQueue{}
	handler := newTestHandler(t, queue, &mockHistory{}, nil)

	body, _ := json.Marshal(EnqueueRequest{
		Kind:      "vod",
		Title:     "[EN] Some Movie",
		SourceURL: "http://provider.example/movie/u/p/42.mkv",
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.enqueued, 1)

	got := queue.enqueued[0]
	assert.Equal(t, download.KindVOD, got.Kind)
	assert.Equal(t, "Some Movie", got.Title)
	assert.Equal(t, "/downloads/Some Movie.mkv", got.DestinationPath)
	assert.Equal(t, download.StatusPending, got.Status)
	assert.NotEmpty(t, got.ID)
}

func TestHandleEnqueue_ResolvesVOD(t *testing.T) {
	queue := &mockQueue{}
	handler := newTestHandler(t, queue, &mockHistory{}, map[string]string{
		"get_vod_info": `{"movie_data": {"name": "Some Movie", "subtitles": [{"language": "en", "url": "http://provider.example/subs/42.srt"}]}}`,
	})

	body, _ := json.Marshal(EnqueueRequest{
		Kind:      "vod",
		StreamID:  "42",
		Container: "mkv",
		Title:     "Some Movie",
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.enqueued, 1)

	got := queue.enqueued[0]
	assert.Contains(t, got.SourceURL, "/movie/user/pass/42.mkv")
	assert.Equal(t, "http://provider.example/subs/42.srt", got.SubtitleURL)
	assert.Equal(t, "/downloads/Some Movie.mkv", got.DestinationPath)
}

func TestHandleEnqueue_ResolvesEpisode(t *testing.T) {
	queue := &mockQueue{}
	handler := newTestHandler(t, queue, &mockHistory{}, nil)

	body, _ := json.Marshal(EnqueueRequest{
		Kind:     "episode",
		StreamID: "900",
		Title:    "Show S01E02",
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.enqueued, 1)
	assert.Contains(t, queue.enqueued[0].SourceURL, "/series/user/pass/900.mp4")
}

func TestHandleEnqueue_FormatsEpisodeTitle(t *testing.T) {
	queue := &mockQueue{}
	handler := newTestHandler(t, queue, &mockHistory{}, nil)

	body, _ := json.Marshal(EnqueueRequest{
		Kind:     "episode",
		StreamID: "900",
		Series:   "[EN] Show",
		Title:    "S01E02 Pilot",
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "Show - S01E02 Pilot", queue.enqueued[0].Title)
	assert.Equal(t, "/downloads/Show - S01E02 Pilot.mp4", queue.enqueued[0].DestinationPath)
}

func TestHandleEnqueue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  EnqueueRequest
	}{
		{name: "unknown kind", req: EnqueueRequest{Kind: "magnet", Title: "x", SourceURL: "http://x/y.mp4"}},
		{name: "missing title", req: EnqueueRequest{Kind: "vod", SourceURL: "http://x/y.mp4"}},
		{name: "missing source and stream id", req: EnqueueRequest{Kind: "vod", Title: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mockQueue{}
			handler := newTestHandler(t, queue, &mockHistory{}, nil)

			body, _ := json.Marshal(tt.req)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, queue.enqueued)
		})
	}
}

func TestHandlePauseResumeCancel(t *testing.T) {
	queue := &mockQueue{}
	handler := newTestHandler(t, queue, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue/pause", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, queue.pauseCalled)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue/resume", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, queue.resumeCalled)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/queue/vod_7_1", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "vod_7_1", queue.cancelledID)
}

func TestHandleHistory(t *testing.T) {
	history := &mockHistory{entries: []storage.HistoryEntry{
		{ID: "vod_1_1", Status: "completed", TotalBytes: 1024, FinishedAt: time.Now()},
	}}
	handler := newTestHandler(t, &mockQueue{}, history, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []storage.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "completed", got[0].Status)
}

func TestHandleHistory_InvalidLimit(t *testing.T) {
	handler := newTestHandler(t, &mockQueue{}, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=nope", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCatalogVOD(t *testing.T) {
	handler := newTestHandler(t, &mockQueue{}, &mockHistory{}, map[string]string{
		"get_vod_streams": `[{"stream_id": 42, "name": "Some Movie", "container_extension": "mkv"}]`,
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/vod", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []xtream.VODItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Some Movie", got[0].Name)
}

func TestHandleCatalogSearch_MissingQuery(t *testing.T) {
	handler := newTestHandler(t, &mockQueue{}, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCatalogError(t *testing.T) {
	handler := newTestHandler(t, &mockQueue{}, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/vod/categories", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
