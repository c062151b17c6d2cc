package download

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/xtreamkit/xtream_player/internal/logctx"
)

const (
	progressBuffer = 64
	terminalBuffer = 16
)

// ErrorEvent carries a failed record together with its failure description.
type ErrorEvent struct {
	Record  Record
	Message string
}

// Manager owns the FIFO download queue and runs the single worker that
// executes transfers strictly one at a time. Queue operations are safe to
// call from any goroutine.
//
// Event channels carry value snapshots and are emitted non-blocking:
// a slow subscriber loses events, it never stalls the worker.
//
// The worker always runs on the base context given at construction, never on
// the caller's: an Enqueue from an HTTP handler must not tie the transfer to
// the request lifetime. Cancelling the base context parks the active
// transfer as paused.
type Manager struct {
	baseCtx context.Context
	engine  *Engine
	store   QueueStore
	history HistoryRepository
	metrics Metrics

	mu      sync.Mutex
	queue   []*Record
	active  *Record
	running bool

	OnProgress  chan Record
	OnCompleted chan Record
	OnError     chan ErrorEvent
}

func NewManager(ctx context.Context, engine *Engine, store QueueStore, history HistoryRepository, metrics Metrics) *Manager {
	return &Manager{
		baseCtx: ctx,
		engine:  engine,
		store:   store,
		history: history,
		metrics: metrics,

		OnProgress:  make(chan Record, progressBuffer),
		OnCompleted: make(chan Record, terminalBuffer),
		OnError:     make(chan ErrorEvent, terminalBuffer),
	}
}

// Close releases the event channels. Call only after the worker is idle.
func (m *Manager) Close() {
	close(m.OnProgress)
	close(m.OnCompleted)
	close(m.OnError)
}

// Restore seeds the in-memory queue from the persisted document. It does not
// start the worker: a restored queue stays idle until Resume or Enqueue.
func (m *Manager) Restore(ctx context.Context) {
	logger := logctx.LoggerFromContext(ctx)

	records, err := m.store.Load()
	if err != nil {
		logger.Error("failed to load download queue, starting empty", "err", err)

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = records
	m.reportDepthLocked()

	if len(records) > 0 {
		logger.Info("restored download queue", "queued", len(records))
	}
}

// Enqueue appends a record to the tail of the queue and starts the worker if
// it is idle. The record must carry an id, a source URL and a destination
// path.
func (m *Manager) Enqueue(ctx context.Context, rec *Record) error {
	if rec.ID == "" || rec.SourceURL == "" || rec.DestinationPath == "" {
		return &QueueError{ID: rec.ID, Reason: "id, source url and destination path are required"}
	}

	m.mu.Lock()

	rec.Status = StatusPending
	rec.PauseRequested = false
	rec.CancelRequested = false

	m.queue = append(m.queue, rec)
	m.persistLocked(ctx)
	m.reportDepthLocked()

	start := !m.running
	if start {
		m.running = true
	}

	m.mu.Unlock()

	if start {
		go m.work(m.baseCtx)
	}

	return nil
}

// Pause requests a pause of the active transfer. It has no effect when
// nothing is active; a pause is never queued for a future transfer.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.PauseRequested = true
	}
}

// Resume starts the worker if it is idle and the queue is non-empty. A paused
// record at the head of the queue is the first one retried, with range
// resume.
func (m *Manager) Resume() {
	m.mu.Lock()

	start := !m.running && len(m.queue) > 0
	if start {
		m.running = true
	}

	m.mu.Unlock()

	if start {
		go m.work(m.baseCtx)
	}
}

// Cancel removes a download. The active record is cancelled cooperatively at
// the next chunk boundary; a queued record is removed immediately together
// with its partial file. Unknown ids are a no-op.
func (m *Manager) Cancel(ctx context.Context, id string) {
	logger := logctx.LoggerFromContext(ctx)

	m.mu.Lock()

	if m.active != nil && m.active.ID == id {
		m.active.CancelRequested = true
		m.mu.Unlock()

		return
	}

	for i, rec := range m.queue {
		if rec.ID != id {
			continue
		}

		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		m.persistLocked(ctx)
		m.reportDepthLocked()
		target := rec.DestinationPath
		m.mu.Unlock()

		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			logger.Error("failed to remove cancelled partial file", "target", target, "err", err)
		}

		logger.Info("removed queued download", "download_id", id)

		return
	}

	m.mu.Unlock()
}

// Snapshot returns the active record (if any) followed by the queued records
// in display order.
func (m *Manager) Snapshot() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.queue)+1)

	if m.active != nil {
		out = append(out, *m.active)
	}

	for _, rec := range m.queue {
		out = append(out, *rec)
	}

	return out
}

// work is the single worker loop. It pops records strictly sequentially, so
// at most one record is active at any instant.
func (m *Manager) work(ctx context.Context) {
	logger := logctx.LoggerFromContext(ctx)

	for {
		m.mu.Lock()

		if len(m.queue) == 0 {
			m.running = false
			m.mu.Unlock()

			return
		}

		rec := m.queue[0]
		m.queue = m.queue[1:]
		rec.Status = StatusActive
		rec.PauseRequested = false
		rec.CancelRequested = false
		m.active = rec
		m.persistLocked(ctx)
		m.reportDepthLocked()
		snap := *rec

		m.mu.Unlock()

		logger.Info("download started", "download_id", snap.ID, "title", snap.Title)
		m.emitProgress(snap)

		if m.metrics != nil {
			m.metrics.DownloadStarted()
		}

		started := time.Now()

		res, err := m.engine.Fetch(ctx,
			Request{
				SourceURL:       rec.SourceURL,
				DestinationPath: rec.DestinationPath,
				SubtitleURL:     rec.SubtitleURL,
			},
			flagControl{m: m, rec: rec},
			func(transferred, total int64) {
				m.applyProgress(rec, transferred, total)
			},
		)

		m.mu.Lock()

		stop := false

		switch {
		case err != nil && ctx.Err() != nil:
			// Shutdown mid-transfer: keep the partial bytes and park the
			// record at the head so the next start resumes it.
			rec.Status = StatusPaused
			applyResult(rec, res)
			m.queue = append([]*Record{rec}, m.queue...)
			m.running = false
			stop = true
		case err != nil:
			rec.Status = StatusFailed
			applyResult(rec, res)
		case res.Outcome == OutcomePaused:
			rec.Status = StatusPaused
			applyResult(rec, res)
			m.queue = append([]*Record{rec}, m.queue...)
			m.running = false
			stop = true
		case res.Outcome == OutcomeCancelled:
			rec.Status = StatusCancelled
			rec.TotalBytes = 0
			rec.Transferred = 0
			rec.Progress = 0
		default:
			rec.Status = StatusCompleted

			if res.TotalBytes == 0 {
				res.TotalBytes = res.Transferred
			}

			rec.TotalBytes = res.TotalBytes
			rec.Transferred = res.TotalBytes
			rec.Progress = 100
		}

		rec.PauseRequested = false
		rec.CancelRequested = false
		m.active = nil
		m.persistLocked(ctx)
		m.reportDepthLocked()
		snap = *rec

		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.DownloadFinished(string(snap.Status), time.Since(started))
		}

		switch snap.Status {
		case StatusCompleted:
			logger.Info("download completed", "download_id", snap.ID, "title", snap.Title)
			m.emitCompleted(snap)
		case StatusFailed:
			logger.Error("download failed", "download_id", snap.ID, "err", err)
			m.emitError(snap, err.Error())
		case StatusCancelled:
			logger.Info("download cancelled", "download_id", snap.ID)
			m.emitProgress(snap)
		case StatusPaused:
			logger.Info("download paused", "download_id", snap.ID, "transferred", snap.Transferred)
			m.emitProgress(snap)
		}

		if snap.Status.Terminal() {
			m.recordHistory(ctx, snap)
		}

		if stop {
			return
		}
	}
}

// applyProgress mirrors the engine's counters into the record under the lock
// and emits a progress snapshot.
func (m *Manager) applyProgress(rec *Record, transferred, total int64) {
	m.mu.Lock()

	delta := transferred - rec.Transferred
	rec.Transferred = transferred

	if total > 0 {
		rec.TotalBytes = total
		rec.Progress = float64(transferred) / float64(total) * 100
	}

	snap := *rec

	m.mu.Unlock()

	if m.metrics != nil && delta > 0 {
		m.metrics.BytesTransferred(delta)
	}

	m.emitProgress(snap)
}

func applyResult(rec *Record, res Result) {
	rec.Transferred = res.Transferred

	if res.TotalBytes > 0 {
		rec.TotalBytes = res.TotalBytes
		rec.Progress = float64(res.Transferred) / float64(res.TotalBytes) * 100
	}
}

// persistLocked writes the pending+paused queue document. The in-memory
// queue stays authoritative when the write fails. Callers hold m.mu.
func (m *Manager) persistLocked(ctx context.Context) {
	records := make([]Record, 0, len(m.queue))
	for _, rec := range m.queue {
		records = append(records, *rec)
	}

	if err := m.store.Save(records); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to persist download queue", "err", err)
	}
}

func (m *Manager) reportDepthLocked() {
	if m.metrics != nil {
		m.metrics.QueueDepth(int64(len(m.queue)))
	}
}

func (m *Manager) recordHistory(ctx context.Context, rec Record) {
	if m.history == nil {
		return
	}

	if err := m.history.Add(ctx, rec, time.Now()); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to record download history", "download_id", rec.ID, "err", err)
	}
}

func (m *Manager) emitProgress(rec Record) {
	select {
	case m.OnProgress <- rec:
	default:
	}
}

func (m *Manager) emitCompleted(rec Record) {
	select {
	case m.OnCompleted <- rec:
	default:
	}
}

func (m *Manager) emitError(rec Record, message string) {
	select {
	case m.OnError <- ErrorEvent{Record: rec, Message: message}:
	default:
	}
}

// flagControl exposes the active record's control flags to the engine under
// the manager's lock.
type flagControl struct {
	m   *Manager
	rec *Record
}

func (c flagControl) PauseRequested() bool {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	return c.rec.PauseRequested
}

func (c flagControl) CancelRequested() bool {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	return c.rec.CancelRequested
}
