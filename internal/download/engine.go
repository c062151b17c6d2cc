package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xtreamkit/xtream_player/internal/logctx"
)

const (
	dirPerm  = 0755
	filePerm = 0644

	defaultChunkSize    = 32 * 1024
	defaultStallTimeout = 30 * time.Second

	subtitleExt = ".srt"
)

// Outcome is the terminal state of a single transfer pass.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomePaused
	OutcomeCancelled
)

// Control is polled at chunk boundaries to observe pause and cancel requests.
// Cancellation is cooperative: an in-flight read is never aborted, only the
// next boundary check reacts.
type Control interface {
	PauseRequested() bool
	CancelRequested() bool
}

// ProgressFunc receives cumulative byte counts after every written chunk.
type ProgressFunc func(transferred, total int64)

// Request describes the transfer the engine should perform.
type Request struct {
	SourceURL       string
	DestinationPath string
	SubtitleURL     string
}

// Result reports how a transfer pass ended. Transferred counts only bytes
// flushed to the destination file.
type Result struct {
	Outcome     Outcome
	Transferred int64
	TotalBytes  int64
}

// Engine performs one resumable HTTP transfer at a time: range detection,
// chunked streaming write and cooperative pause/cancel.
type Engine struct {
	client       *http.Client
	chunkSize    int
	stallTimeout time.Duration
}

func NewEngine(client *http.Client, chunkSize int, stallTimeout time.Duration) *Engine {
	if client == nil {
		client = http.DefaultClient
	}

	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if stallTimeout <= 0 {
		stallTimeout = defaultStallTimeout
	}

	return &Engine{
		client:       client,
		chunkSize:    chunkSize,
		stallTimeout: stallTimeout,
	}
}

// Fetch streams req.SourceURL into req.DestinationPath, resuming from an
// existing partial file via a byte-range request. On cancellation the partial
// file is removed and the returned counters are zero. On a transport error
// the partial file is kept, so a later retry can resume from it (cancel is
// the user saying "discard", a failure is not).
func (e *Engine) Fetch(ctx context.Context, req Request, ctl Control, progress ProgressFunc) (Result, error) {
	logger := logctx.LoggerFromContext(ctx).With("source_url", req.SourceURL)

	var res Result

	startOffset := int64(0)
	if fi, err := os.Stat(req.DestinationPath); err == nil {
		startOffset = fi.Size()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.SourceURL, nil)
	if err != nil {
		return res, &TransferError{Operation: "build_request", URL: req.SourceURL, Err: err}
	}

	if startOffset > 0 {
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", startOffset))
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return res, &TransferError{Operation: "connect", URL: req.SourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return res, &TransferError{
			Operation:  "fetch",
			URL:        req.SourceURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	// A server that ignores the Range header answers 200 with the full body.
	// Appending that to the local partial file would corrupt it, so discard
	// the partial data and write from scratch.
	if startOffset > 0 && resp.StatusCode != http.StatusPartialContent {
		logger.Warn("server ignored range request, restarting from zero", "start_offset", startOffset)

		if err := os.Remove(req.DestinationPath); err != nil && !os.IsNotExist(err) {
			logger.Error("failed to remove stale partial file", "target", req.DestinationPath, "err", err)
		}

		startOffset = 0
	}

	res.Transferred = startOffset
	res.TotalBytes = totalSize(resp, startOffset)

	if res.TotalBytes > 0 {
		logger.Info("starting transfer",
			"target", req.DestinationPath,
			"resumed_from", humanize.Bytes(uint64(startOffset)),
			"total", humanize.Bytes(uint64(res.TotalBytes)))
	} else {
		logger.Info("starting transfer with unknown size", "target", req.DestinationPath)
	}

	if err := os.MkdirAll(filepath.Dir(req.DestinationPath), dirPerm); err != nil {
		return res, fmt.Errorf("failed to create target directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startOffset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	out, err := os.OpenFile(req.DestinationPath, flags, filePerm)
	if err != nil {
		return res, fmt.Errorf("failed to open target file: %w", err)
	}
	defer out.Close()

	// Cancel the in-flight request if no chunk arrives within the stall
	// timeout, so a dead connection surfaces as a failure instead of
	// hanging the worker forever.
	watchdog := time.AfterFunc(e.stallTimeout, cancel)
	defer watchdog.Stop()

	buf := make([]byte, e.chunkSize)

	for {
		if ctl.CancelRequested() {
			out.Close()
			e.removePartial(logger, req.DestinationPath)

			return Result{Outcome: OutcomeCancelled}, nil
		}

		if ctl.PauseRequested() {
			res.Outcome = OutcomePaused

			return res, nil
		}

		n, readErr := resp.Body.Read(buf)
		watchdog.Reset(e.stallTimeout)

		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return res, fmt.Errorf("failed to write chunk: %w", err)
			}

			// Progress accounting only counts bytes that reached the file.
			if err := out.Sync(); err != nil {
				return res, fmt.Errorf("failed to flush chunk: %w", err)
			}

			res.Transferred += int64(n)

			if progress != nil {
				progress(res.Transferred, res.TotalBytes)
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return res, &TransferError{Operation: "read_body", URL: req.SourceURL, Err: readErr}
		}
	}

	if req.SubtitleURL != "" {
		e.fetchSubtitle(ctx, req)
	}

	logger.Info("transfer finished", "target", req.DestinationPath, "size", humanize.Bytes(uint64(res.Transferred)))

	res.Outcome = OutcomeCompleted

	return res, nil
}

// fetchSubtitle grabs the subtitle resource next to the media file. It is
// best effort: failures are logged and swallowed.
func (e *Engine) fetchSubtitle(ctx context.Context, req Request) {
	logger := logctx.LoggerFromContext(ctx).With("subtitle_url", req.SubtitleURL)

	ctx, cancel := context.WithTimeout(ctx, e.stallTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.SubtitleURL, nil)
	if err != nil {
		logger.Warn("failed to build subtitle request", "err", err)

		return
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		logger.Warn("failed to fetch subtitles", "err", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("failed to fetch subtitles", "status", resp.StatusCode)

		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("failed to read subtitles", "err", err)

		return
	}

	target := SubtitlePath(req.DestinationPath)
	if err := os.WriteFile(target, body, filePerm); err != nil {
		logger.Warn("failed to write subtitles", "target", target, "err", err)

		return
	}

	logger.Info("saved subtitles", "target", target)
}

func (e *Engine) removePartial(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to remove cancelled partial file", "target", path, "err", err)
	}
}

// SubtitlePath returns the sibling subtitle path for a media file.
func SubtitlePath(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + subtitleExt
}

// totalSize derives the full resource size from the response headers. The
// Content-Range total is authoritative; a plain Content-Length on a resumed
// request covers only the remainder, so the offset is added back. Zero means
// unknown.
func totalSize(resp *http.Response, startOffset int64) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndex(cr, "/"); i >= 0 {
			if total, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return total
			}
		}

		return 0
	}

	if resp.ContentLength > 0 {
		return startOffset + resp.ContentLength
	}

	return 0
}
