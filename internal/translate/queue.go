package translate

import (
	"context"
	"sync"
	"time"

	"github.com/capoverlay/capsync/internal/captions"
	"github.com/capoverlay/capsync/internal/cuestore"
	"github.com/capoverlay/capsync/pkg/log"
)

// Config holds the queue manager's tunables. All of them may change at
// runtime via UpdateConfig; the next batch picks them up.
type Config struct {
	// BatchSize caps how many cues one pipeline pass translates.
	BatchSize int
	// RequestDelay is the pause between consecutive requests in a batch.
	// Sequential dispatch with this delay is a deliberate backpressure
	// mechanism: translation backends rate-limit under bursts.
	RequestDelay time.Duration
	// RescheduleDelay is how long to wait before the next pass when
	// pending cues remain after a batch.
	RescheduleDelay time.Duration
}

// Job identifies what a queue pass works on: the session whose cues are
// eligible and the language pair to request. Now supplies the current
// playback time so already-past cues are skipped.
type Job struct {
	SessionID  string
	SourceLang string
	TargetLang string
	Now        func() float64
}

// JobProvider builds the job for one pass. The manager calls it at the
// start of every pass, including self-rescheduled ones, so a live
// language change applies to the next pass instead of being frozen into
// the first kick.
type JobProvider func() Job

// Manager drains a session's untranslated cues in rate-limited batches.
//
// It is a single-flight loop: a busy flag guarantees at most one batch in
// flight, requests within a batch go out strictly sequentially, and the
// loop is event-driven: it stops when nothing is pending and is kicked
// again when new cues appear. Results are written back by identity
// triple, so a response arriving after the session changed is harmlessly
// discarded by the store.
//
// mu is a leaf lock: no method calls the store, the backend or the job
// provider while holding it. Callers may therefore kick or cancel the
// manager while holding their own locks without ordering risk.
type Manager struct {
	store   *cuestore.Store
	backend Backend

	mu    sync.Mutex
	cfg   Config
	busy  bool
	gen   uint64
	timer *time.Timer
}

func NewManager(store *cuestore.Store, backend Backend, cfg Config) *Manager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &Manager{
		store:   store,
		backend: backend,
		cfg:     cfg,
	}
}

// UpdateConfig replaces the tunables for subsequent passes.
func (m *Manager) UpdateConfig(cfg Config) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Busy reports whether a batch is currently in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Kick starts one queue pass if the manager is idle and work exists.
// No-op while a batch is in flight or when ctx is already cancelled.
// The pass self-reschedules until the session is drained.
func (m *Manager) Kick(ctx context.Context, next JobProvider) {
	if next == nil || ctx.Err() != nil {
		return
	}
	job := next()
	if job.SessionID == "" || job.Now == nil {
		return
	}
	pending := m.store.PendingTranslations(job.SessionID, job.Now())
	if len(pending) == 0 {
		return
	}

	m.mu.Lock()
	if m.busy || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	if len(pending) > m.cfg.BatchSize {
		pending = pending[:m.cfg.BatchSize]
	}
	m.busy = true
	delay := m.cfg.RequestDelay
	gen := m.gen
	m.mu.Unlock()

	go m.runBatch(ctx, next, job, pending, delay, gen)
}

// Cancel drops any scheduled follow-up pass. An in-flight batch finishes
// on its own; its late results are absorbed by identity matching.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Invalidate discards any in-flight batch: results it has not yet
// written are dropped and the cues it was translating stay pending.
// Used when the translation parameters change mid-flight, so a stale
// batch cannot write old-language results over freshly reset cues.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
}

// stale reports whether the batch started under gen was invalidated.
func (m *Manager) stale(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.gen
}

func (m *Manager) runBatch(ctx context.Context, next JobProvider, job Job, batch []captions.Cue, delay time.Duration, gen uint64) {
	for i, cue := range batch {
		if ctx.Err() != nil || m.stale(gen) {
			break
		}

		resp, err := m.backend.Translate(ctx, Request{
			Text:       cue.Original,
			SourceLang: job.SourceLang,
			TargetLang: job.TargetLang,
		})
		if m.stale(gen) {
			// Parameters changed while the request was in flight; the
			// result no longer applies. Leave the cue pending.
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-request; leave the cue pending.
				break
			}
			log.Warn("Translation failed for cue at %.3fs in session %s: %v", cue.Start, job.SessionID, err)
			m.store.MarkTranslated(cue.SessionID, cue.Start, cue.Original, captions.TranslationFailed)
		} else if !m.store.MarkTranslated(cue.SessionID, cue.Start, cue.Original, resp.TranslatedText) {
			log.Debug("Dropped translation result for vanished cue at %.3fs in session %s", cue.Start, job.SessionID)
		}

		if i < len(batch)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}

	m.finish(ctx, next, job)
}

// finish clears the busy flag and schedules another pass when pending
// cues remain for the session. The pending check runs outside mu; the
// job provider is consulted again on the rescheduled pass.
func (m *Manager) finish(ctx context.Context, next JobProvider, job Job) {
	m.mu.Lock()
	m.busy = false
	delay := m.cfg.RescheduleDelay
	m.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if len(m.store.PendingTranslations(job.SessionID, job.Now())) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(delay, func() {
		m.Kick(ctx, next)
	})
}
