package xtream

import (
	"context"

	"github.com/xtreamkit/xtream_player/internal/telemetry"
)

// InstrumentedClient wraps Client with telemetry.
type InstrumentedClient struct {
	client    *Client
	telemetry *telemetry.Telemetry
}

// NewInstrumentedClient creates a new instrumented catalog client.
func NewInstrumentedClient(client *Client, tel *telemetry.Telemetry) *InstrumentedClient {
	return &InstrumentedClient{
		client:    client,
		telemetry: tel,
	}
}

// Authenticate verifies the credentials with telemetry.
func (c *InstrumentedClient) Authenticate(ctx context.Context) (*Account, error) {
	return instrument(ctx, c.telemetry, "authenticate", func(ctx context.Context) (*Account, error) {
		return c.client.Authenticate(ctx)
	})
}

// LiveCategories lists live groups with telemetry.
func (c *InstrumentedClient) LiveCategories(ctx context.Context) ([]Category, error) {
	return instrument(ctx, c.telemetry, "live_categories", func(ctx context.Context) ([]Category, error) {
		return c.client.LiveCategories(ctx)
	})
}

// LiveStreams lists channels with telemetry.
func (c *InstrumentedClient) LiveStreams(ctx context.Context, categoryID string) ([]LiveStream, error) {
	return instrument(ctx, c.telemetry, "live_streams", func(ctx context.Context) ([]LiveStream, error) {
		return c.client.LiveStreams(ctx, categoryID)
	})
}

// ShortEPG returns upcoming programmes with telemetry.
func (c *InstrumentedClient) ShortEPG(ctx context.Context, streamID string) ([]EPGListing, error) {
	return instrument(ctx, c.telemetry, "short_epg", func(ctx context.Context) ([]EPGListing, error) {
		return c.client.ShortEPG(ctx, streamID)
	})
}

// VODCategories lists movie groups with telemetry.
func (c *InstrumentedClient) VODCategories(ctx context.Context) ([]Category, error) {
	return instrument(ctx, c.telemetry, "vod_categories", func(ctx context.Context) ([]Category, error) {
		return c.client.VODCategories(ctx)
	})
}

// VODStreams lists movies with telemetry.
func (c *InstrumentedClient) VODStreams(ctx context.Context, categoryID string) ([]VODItem, error) {
	return instrument(ctx, c.telemetry, "vod_streams", func(ctx context.Context) ([]VODItem, error) {
		return c.client.VODStreams(ctx, categoryID)
	})
}

// VODInfo returns the movie detail with telemetry.
func (c *InstrumentedClient) VODInfo(ctx context.Context, vodID string) (*VODInfo, error) {
	return instrument(ctx, c.telemetry, "vod_info", func(ctx context.Context) (*VODInfo, error) {
		return c.client.VODInfo(ctx, vodID)
	})
}

// VODSubtitles returns subtitle tracks with telemetry. The lookup stays best
// effort: an underlying failure is an empty list, not an error.
func (c *InstrumentedClient) VODSubtitles(ctx context.Context, vodID string) []SubtitleTrack {
	tracks, _ := instrument(ctx, c.telemetry, "vod_subtitles", func(ctx context.Context) ([]SubtitleTrack, error) {
		return c.client.VODSubtitles(ctx, vodID), nil
	})

	return tracks
}

// SeriesCategories lists series groups with telemetry.
func (c *InstrumentedClient) SeriesCategories(ctx context.Context) ([]Category, error) {
	return instrument(ctx, c.telemetry, "series_categories", func(ctx context.Context) ([]Category, error) {
		return c.client.SeriesCategories(ctx)
	})
}

// Series lists series with telemetry.
func (c *InstrumentedClient) Series(ctx context.Context, categoryID string) ([]SeriesItem, error) {
	return instrument(ctx, c.telemetry, "series", func(ctx context.Context) ([]SeriesItem, error) {
		return c.client.Series(ctx, categoryID)
	})
}

// SeriesInfo returns the series detail with telemetry.
func (c *InstrumentedClient) SeriesInfo(ctx context.Context, seriesID string) (*SeriesInfo, error) {
	return instrument(ctx, c.telemetry, "series_info", func(ctx context.Context) (*SeriesInfo, error) {
		return c.client.SeriesInfo(ctx, seriesID)
	})
}

// Search matches a query across all sections with telemetry.
func (c *InstrumentedClient) Search(ctx context.Context, query string) (*SearchResults, error) {
	return instrument(ctx, c.telemetry, "search", func(ctx context.Context) (*SearchResults, error) {
		return c.client.Search(ctx, query)
	})
}

// LiveURL delegates to the wrapped client; URL building is local work.
func (c *InstrumentedClient) LiveURL(streamID, container string) string {
	return c.client.LiveURL(streamID, container)
}

// VODURL delegates to the wrapped client.
func (c *InstrumentedClient) VODURL(vodID, container string) string {
	return c.client.VODURL(vodID, container)
}

// EpisodeURL delegates to the wrapped client.
func (c *InstrumentedClient) EpisodeURL(episodeID, container string) string {
	return c.client.EpisodeURL(episodeID, container)
}

func instrument[T any](ctx context.Context, tel *telemetry.Telemetry, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T

	var err error

	instrumentedErr := tel.InstrumentClientOperation(ctx, operation, func(ctx context.Context) error {
		result, err = fn(ctx)

		return err
	})

	if instrumentedErr != nil {
		var zero T

		return zero, instrumentedErr
	}

	return result, nil
}
