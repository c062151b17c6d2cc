// Package xtream is a client for the Xtream-Codes style player_api.php
// catalog: live channels, video-on-demand and series, plus the stream URL
// builders used to enqueue downloads.
package xtream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xtreamkit/xtream_player/internal/logctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 20 * time.Second

var (
	liveContainers  = map[string]bool{"m3u8": true, "ts": true}
	mediaContainers = map[string]bool{"mp4": true, "mkv": true, "ts": true, "m3u8": true}
)

// APIError represents a non-success response from the provider.
type APIError struct {
	Action     string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xtream api %q failed with HTTP %d", e.Action, e.StatusCode)
}

type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

func NewClient(server, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:  NormalizeServer(server),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// NormalizeServer defaults the scheme to http and trims trailing slashes, so
// URL building can safely concatenate paths.
func NormalizeServer(server string) string {
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	return strings.TrimRight(server, "/")
}

// playerAPI performs one player_api.php call and decodes the JSON payload
// into out.
func (c *Client) playerAPI(ctx context.Context, action string, params url.Values, out any) error {
	logger := logctx.LoggerFromContext(ctx).With("action", action)

	query := url.Values{}
	query.Set("username", c.username)
	query.Set("password", c.password)

	if action != "" {
		query.Set("action", action)
	}

	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	reqURL := c.baseURL + "/player_api.php?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build api request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("api request failed", "err", err)

		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error("non-200 response", "status", resp.StatusCode, "body", string(b))

		return &APIError{Action: action, StatusCode: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode api response: %w", err)
	}

	return nil
}

// Authenticate verifies the credentials by fetching the account handshake.
func (c *Client) Authenticate(ctx context.Context) (*Account, error) {
	logger := logctx.LoggerFromContext(ctx)

	var account Account
	if err := c.playerAPI(ctx, "", nil, &account); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if account.UserInfo.Username == "" {
		return nil, fmt.Errorf("authentication rejected by provider")
	}

	logger.Info("authenticated with provider",
		"user", account.UserInfo.Username,
		"status", account.UserInfo.Status,
		"expires", account.UserInfo.ExpDate)

	return &account, nil
}

func (c *Client) LiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.playerAPI(ctx, "get_live_categories", nil, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}

// LiveStreams lists channels in a category. An empty categoryID lists the
// whole section.
func (c *Client) LiveStreams(ctx context.Context, categoryID string) ([]LiveStream, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("category_id", categoryID)
	}

	var streams []LiveStream
	if err := c.playerAPI(ctx, "get_live_streams", params, &streams); err != nil {
		return nil, err
	}

	return streams, nil
}

// ShortEPG returns the next programmes for a channel, with base64 titles and
// descriptions already decoded.
func (c *Client) ShortEPG(ctx context.Context, streamID string) ([]EPGListing, error) {
	params := url.Values{}
	params.Set("stream_id", streamID)

	var payload struct {
		Listings []EPGListing `json:"epg_listings"`
	}

	if err := c.playerAPI(ctx, "get_short_epg", params, &payload); err != nil {
		return nil, err
	}

	for i := range payload.Listings {
		payload.Listings[i].Title = decodeBase64(payload.Listings[i].Title)
		payload.Listings[i].Description = decodeBase64(payload.Listings[i].Description)
	}

	return payload.Listings, nil
}

func (c *Client) VODCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.playerAPI(ctx, "get_vod_categories", nil, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}

// VODStreams lists movies in a category. An empty categoryID lists the whole
// section.
func (c *Client) VODStreams(ctx context.Context, categoryID string) ([]VODItem, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("category_id", categoryID)
	}

	var items []VODItem
	if err := c.playerAPI(ctx, "get_vod_streams", params, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (c *Client) VODInfo(ctx context.Context, vodID string) (*VODInfo, error) {
	params := url.Values{}
	params.Set("vod_id", vodID)

	var info VODInfo
	if err := c.playerAPI(ctx, "get_vod_info", params, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// VODSubtitles returns the external subtitle tracks for a movie. Lookup
// failures degrade to an empty list.
func (c *Client) VODSubtitles(ctx context.Context, vodID string) []SubtitleTrack {
	info, err := c.VODInfo(ctx, vodID)
	if err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to fetch vod subtitles", "vod_id", vodID, "err", err)

		return nil
	}

	tracks := make([]SubtitleTrack, 0, len(info.MovieData.Subtitles))

	for _, track := range info.MovieData.Subtitles {
		if track.URL == "" {
			continue
		}

		if track.Format == "" {
			track.Format = "srt"
		}

		tracks = append(tracks, track)
	}

	return tracks
}

func (c *Client) SeriesCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.playerAPI(ctx, "get_series_categories", nil, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}

// Series lists series in a category. An empty categoryID lists the whole
// section.
func (c *Client) Series(ctx context.Context, categoryID string) ([]SeriesItem, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("category_id", categoryID)
	}

	var items []SeriesItem
	if err := c.playerAPI(ctx, "get_series", params, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (c *Client) SeriesInfo(ctx context.Context, seriesID string) (*SeriesInfo, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)

	var info SeriesInfo
	if err := c.playerAPI(ctx, "get_series_info", params, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// LiveURL builds the stream URL for a live channel. Containers other than
// m3u8/ts fall back to m3u8.
func (c *Client) LiveURL(streamID, container string) string {
	if !liveContainers[container] {
		container = "m3u8"
	}

	return fmt.Sprintf("%s/live/%s/%s/%s.%s", c.baseURL, c.username, c.password, streamID, container)
}

// VODURL builds the download URL for a movie. Unknown containers fall back
// to mp4.
func (c *Client) VODURL(vodID, container string) string {
	if !mediaContainers[container] {
		container = "mp4"
	}

	return fmt.Sprintf("%s/movie/%s/%s/%s.%s", c.baseURL, c.username, c.password, vodID, container)
}

// EpisodeURL builds the download URL for a series episode. Unknown
// containers fall back to mp4.
func (c *Client) EpisodeURL(episodeID, container string) string {
	if !mediaContainers[container] {
		container = "mp4"
	}

	return fmt.Sprintf("%s/series/%s/%s/%s.%s", c.baseURL, c.username, c.password, episodeID, container)
}

// decodeBase64 decodes EPG text, returning the input unchanged when it is
// not valid base64.
func decodeBase64(text string) string {
	if text == "" {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return text
	}

	return string(decoded)
}
