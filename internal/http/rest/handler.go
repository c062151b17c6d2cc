package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xtreamkit/xtream_player/internal/download"
	"github.com/xtreamkit/xtream_player/internal/logctx"
	"github.com/xtreamkit/xtream_player/internal/storage"
	"github.com/xtreamkit/xtream_player/internal/xtream"
)

const defaultHistoryLimit = 100

// QueueManager is the queue surface the API exposes.
type QueueManager interface {
	Enqueue(ctx context.Context, rec *download.Record) error
	Pause()
	Resume()
	Cancel(ctx context.Context, id string)
	Snapshot() []download.Record
}

// Catalog is the provider surface the API exposes.
type Catalog interface {
	LiveCategories(ctx context.Context) ([]xtream.Category, error)
	LiveStreams(ctx context.Context, categoryID string) ([]xtream.LiveStream, error)
	ShortEPG(ctx context.Context, streamID string) ([]xtream.EPGListing, error)
	VODCategories(ctx context.Context) ([]xtream.Category, error)
	VODStreams(ctx context.Context, categoryID string) ([]xtream.VODItem, error)
	VODInfo(ctx context.Context, vodID string) (*xtream.VODInfo, error)
	VODSubtitles(ctx context.Context, vodID string) []xtream.SubtitleTrack
	SeriesCategories(ctx context.Context) ([]xtream.Category, error)
	Series(ctx context.Context, categoryID string) ([]xtream.SeriesItem, error)
	SeriesInfo(ctx context.Context, seriesID string) (*xtream.SeriesInfo, error)
	Search(ctx context.Context, query string) (*xtream.SearchResults, error)
	LiveURL(streamID, container string) string
	VODURL(vodID, container string) string
	EpisodeURL(episodeID, container string) string
}

// EnqueueRequest asks for a catalog item to be downloaded. Either source_url
// is given directly, or kind+stream_id are resolved against the provider.
// For episodes, series names the show the episode belongs to.
type EnqueueRequest struct {
	Kind      string `json:"kind"`
	StreamID  string `json:"stream_id"`
	Container string `json:"container"`
	Title     string `json:"title"`
	Series    string `json:"series"`
	SourceURL string `json:"source_url"`
}

type Handler struct {
	queue       QueueManager
	catalog     Catalog
	history     storage.HistoryReadRepository
	downloadDir string
}

// NewHandler creates the API handler.
func NewHandler(queue QueueManager, catalog Catalog, history storage.HistoryReadRepository, downloadDir string) *Handler {
	return &Handler{
		queue:       queue,
		catalog:     catalog,
		history:     history,
		downloadDir: downloadDir,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.handleQueueList)
		r.Post("/", h.handleEnqueue)
		r.Post("/pause", h.handlePause)
		r.Post("/resume", h.handleResume)
		r.Delete("/{id}", h.handleCancel)
	})

	r.Get("/history", h.handleHistory)

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/live/categories", h.handleLiveCategories)
		r.Get("/live", h.handleLiveStreams)
		r.Get("/live/{id}/epg", h.handleShortEPG)
		r.Get("/vod/categories", h.handleVODCategories)
		r.Get("/vod", h.handleVODStreams)
		r.Get("/vod/{id}", h.handleVODInfo)
		r.Get("/series/categories", h.handleSeriesCategories)
		r.Get("/series", h.handleSeries)
		r.Get("/series/{id}", h.handleSeriesInfo)
		r.Get("/search", h.handleSearch)
	})

	return r
}

func (h *Handler) handleQueueList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.queue.Snapshot())
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("failed to decode enqueue request", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	rec, err := h.buildRecord(r.Context(), &req)
	if err != nil {
		logger.Error("failed to resolve enqueue request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if err := h.queue.Enqueue(r.Context(), rec); err != nil {
		var qerr *download.QueueError
		if errors.As(err, &qerr) {
			http.Error(w, qerr.Error(), http.StatusBadRequest)

			return
		}

		logger.Error("failed to enqueue download", "id", rec.ID, "err", err)
		http.Error(w, "failed to enqueue download", http.StatusInternalServerError)

		return
	}

	writeJSON(w, r, http.StatusAccepted, rec)
}

// buildRecord turns an API request into a download record, resolving the
// source URL against the provider when it is not given directly.
func (h *Handler) buildRecord(ctx context.Context, req *EnqueueRequest) (*download.Record, error) {
	kind := download.Kind(req.Kind)

	switch kind {
	case download.KindVOD, download.KindEpisode, download.KindLiveClip:
	default:
		return nil, fmt.Errorf("unknown kind %q", req.Kind)
	}

	title := xtream.CleanTitle(req.Title)
	if kind == download.KindEpisode {
		title = xtream.FormatEpisodeTitle(req.Series, req.Title)
	}

	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	sourceURL := req.SourceURL
	subtitleURL := ""
	container := req.Container

	if sourceURL == "" {
		if req.StreamID == "" {
			return nil, fmt.Errorf("either source_url or stream_id is required")
		}

		switch kind {
		case download.KindVOD:
			sourceURL = h.catalog.VODURL(req.StreamID, container)

			if tracks := h.catalog.VODSubtitles(ctx, req.StreamID); len(tracks) > 0 {
				subtitleURL = tracks[0].URL
			}
		case download.KindEpisode:
			sourceURL = h.catalog.EpisodeURL(req.StreamID, container)
		case download.KindLiveClip:
			sourceURL = h.catalog.LiveURL(req.StreamID, container)
		}
	}

	ext := filepath.Ext(sourceURL)
	if ext == "" {
		ext = ".mp4"
	}

	sourceID := req.StreamID
	if sourceID == "" {
		sourceID = title
	}

	return &download.Record{
		ID:              download.NewRecordID(kind, sourceID),
		Kind:            kind,
		Title:           title,
		SourceURL:       sourceURL,
		DestinationPath: filepath.Join(h.downloadDir, title+ext),
		Status:          download.StatusPending,
		SubtitleURL:     subtitleURL,
	}, nil
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.queue.Pause()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.queue.Resume()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.queue.Cancel(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)

			return
		}

		limit = parsed
	}

	entries, err := h.history.List(limit)
	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to list history", "err", err)
		http.Error(w, "failed to list history", http.StatusInternalServerError)

		return
	}

	writeJSON(w, r, http.StatusOK, entries)
}

func (h *Handler) handleLiveCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.LiveCategories(r.Context())
	h.writeCatalog(w, r, cats, err)
}

func (h *Handler) handleLiveStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := h.catalog.LiveStreams(r.Context(), r.URL.Query().Get("category"))
	h.writeCatalog(w, r, streams, err)
}

func (h *Handler) handleShortEPG(w http.ResponseWriter, r *http.Request) {
	listings, err := h.catalog.ShortEPG(r.Context(), chi.URLParam(r, "id"))
	h.writeCatalog(w, r, listings, err)
}

func (h *Handler) handleVODCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.VODCategories(r.Context())
	h.writeCatalog(w, r, cats, err)
}

func (h *Handler) handleVODStreams(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.VODStreams(r.Context(), r.URL.Query().Get("category"))
	h.writeCatalog(w, r, items, err)
}

func (h *Handler) handleVODInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.catalog.VODInfo(r.Context(), chi.URLParam(r, "id"))
	h.writeCatalog(w, r, info, err)
}

func (h *Handler) handleSeriesCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.SeriesCategories(r.Context())
	h.writeCatalog(w, r, cats, err)
}

func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Series(r.Context(), r.URL.Query().Get("category"))
	h.writeCatalog(w, r, items, err)
}

func (h *Handler) handleSeriesInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.catalog.SeriesInfo(r.Context(), chi.URLParam(r, "id"))
	h.writeCatalog(w, r, info, err)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)

		return
	}

	results, err := h.catalog.Search(r.Context(), query)
	h.writeCatalog(w, r, results, err)
}

func (h *Handler) writeCatalog(w http.ResponseWriter, r *http.Request, payload any, err error) {
	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("catalog request failed", "err", err)
		http.Error(w, "catalog request failed", http.StatusBadGateway)

		return
	}

	writeJSON(w, r, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to encode response", "err", err)
	}
}
