package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/capoverlay/capsync/internal/captions"
	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/cuestore"
	"github.com/capoverlay/capsync/internal/display"
	"github.com/capoverlay/capsync/internal/timesync"
	"github.com/capoverlay/capsync/internal/translate"
	"github.com/capoverlay/capsync/pkg/log"
)

// Controller orchestrates the pipeline across session transitions: new
// video, source change, feature toggle. One controller exists per
// attached playback surface and owns all of that surface's state; there
// are no process-wide singletons.
//
// The time/display loop and the translation loop it starts run
// independently and share only the cue store. Every timer either loop
// schedules is cancelled on session transitions so a stale timer cannot
// resurrect purged state.
//
// Lock order is mu before the queue manager's lock: the manager's lock
// is a leaf and the manager only calls back into the controller (via
// the job provider) with no lock of its own held.
type Controller struct {
	store     *cuestore.Store
	fetcher   Fetcher
	resolver  *timesync.Resolver
	scheduler *display.Scheduler
	queue     *translate.Manager
	group     singleflight.Group

	mu            sync.Mutex
	state         State
	enabled       bool
	reschedule    time.Duration
	sessionID     string
	sourceURL     string
	sourceLang    string
	targetLang    language.Tag
	currentTime   float64
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	closed        bool
}

// NewController wires a controller for one playback surface. Discovery
// starts immediately when the feature is enabled.
func NewController(
	settings Settings,
	resolverCfg timesync.Config,
	store *cuestore.Store,
	fetcher Fetcher,
	probe timesync.SurfaceProbe,
	target display.RenderTarget,
	backend translate.Backend,
) *Controller {
	c := &Controller{
		store:      store,
		fetcher:    fetcher,
		scheduler:  display.NewScheduler(store, target),
		state:      StateIdle,
		enabled:    settings.Enabled,
		targetLang: settings.TargetLanguage,
		reschedule: settings.RescheduleDelay,
	}
	if !settings.SourceLanguage.IsRoot() {
		c.sourceLang = settings.SourceLanguage.String()
	}
	c.queue = translate.NewManager(store, backend, translate.Config{
		BatchSize:       settings.BatchSize,
		RequestDelay:    settings.RequestDelay,
		RescheduleDelay: settings.RescheduleDelay,
	})
	resolverCfg.OffsetSeconds = settings.TimeOffsetSeconds
	c.resolver = timesync.NewResolver(resolverCfg, probe, c.handleTime)
	c.sessionCtx, c.sessionCancel = context.WithCancel(context.Background())

	if c.enabled {
		c.resolver.Start()
	}
	return c
}

// HandleSourceDiscovered ingests a caption source announced for a
// session. A new session id supersedes the previous session wholesale; a
// re-announcement of the already-ingested URL only resyncs the display.
func (c *Controller) HandleSourceDiscovered(sessionID, url string) error {
	if sessionID == "" || url == "" {
		return fmt.Errorf("session id and url are required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if !c.enabled {
		// Remember the announcement so re-enabling can resume it.
		c.sessionID = sessionID
		c.sourceURL = url
		c.mu.Unlock()
		log.Debug("Ignoring caption source for session %s: feature disabled", sessionID)
		return nil
	}

	if sessionID != c.sessionID {
		c.beginSessionLocked(sessionID)
	}

	if c.store.SourceCached(sessionID, url) {
		t := c.currentTime
		c.mu.Unlock()
		log.Debug("Caption source for session %s unchanged, resyncing display", sessionID)
		c.scheduler.HandleTime(sessionID, t)
		return nil
	}

	c.sourceURL = url
	ctx := c.sessionCtx
	c.mu.Unlock()

	payload, err, _ := c.group.Do(url, func() (any, error) {
		return c.fetcher.FetchCaptions(ctx, url)
	})
	if err != nil {
		log.Error("Failed to fetch caption source %s: %v", url, err)
		return fmt.Errorf("fetch caption source: %w", err)
	}

	cues := captions.Parse(sessionID, payload.(string))
	if len(cues) == 0 {
		log.Warn("Caption source %s yielded no cues for session %s", url, sessionID)
		return nil
	}

	c.mu.Lock()
	if c.closed || !c.enabled || c.sessionID != sessionID {
		// Session moved on while the fetch was in flight.
		c.mu.Unlock()
		return nil
	}
	c.store.ReplaceForSession(sessionID, cues)
	c.store.CacheSource(sessionID, url)
	if c.sourceLang == "" {
		detected := captions.DetectLanguage(cues)
		if !detected.IsRoot() {
			c.sourceLang = detected.String()
			log.Info("Detected caption source language %s for session %s", c.sourceLang, sessionID)
		}
	}
	c.state = StateActive
	t := c.currentTime
	c.mu.Unlock()

	log.Info("Session %s active with %d cues", sessionID, len(cues))
	c.scheduler.HandleTime(sessionID, t)
	c.queue.Kick(ctx, c.job)
	return nil
}

// beginSessionLocked supersedes the previous session: its cues are
// purged, its timers cancelled, and the time resolver returns to
// discovery.
func (c *Controller) beginSessionLocked(sessionID string) {
	if c.sessionID != "" {
		log.Info("Session %s superseded by %s", c.sessionID, sessionID)
		c.store.PurgeSession(c.sessionID)
	}
	c.queue.Cancel()
	c.sessionCancel()
	c.sessionCtx, c.sessionCancel = context.WithCancel(context.Background())

	c.sessionID = sessionID
	c.sourceURL = ""
	c.currentTime = 0
	c.state = StateLoading
	if c.enabled {
		c.resolver.Reset()
	}
	c.scheduler.Clear()
}

// HandleSurfaceChanged restarts time-source discovery after the playback
// surface identity changed (a new video element), resetting all retry
// counters.
func (c *Controller) HandleSurfaceChanged() {
	c.mu.Lock()
	enabled := c.enabled && !c.closed
	c.mu.Unlock()
	if enabled {
		c.resolver.Reset()
	}
}

// HandleNativePosition feeds the surface's own reported position into
// the time resolver.
func (c *Controller) HandleNativePosition(seconds float64) {
	c.resolver.HandleNativePosition(seconds)
}

// HandleScrubber feeds a scrubber value update into the time resolver.
func (c *Controller) HandleScrubber(value, max, duration float64) {
	c.resolver.HandleScrubber(value, max, duration)
}

// handleTime is the time/display loop body: every propagated time picks
// the active cue and may kick the translation loop.
func (c *Controller) handleTime(t float64) {
	c.mu.Lock()
	c.currentTime = t
	if c.closed || !c.enabled || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	sessionID := c.sessionID
	ctx := c.sessionCtx
	c.mu.Unlock()

	c.scheduler.HandleTime(sessionID, t)
	c.queue.Kick(ctx, c.job)
}

// SetEnabled toggles the feature. Disabling stops both loops, clears the
// display and purges the session's cues; the session id and source URL
// are remembered so re-enabling can resume by re-ingesting without a
// fresh discovery signal.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	if c.closed || c.enabled == enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = enabled

	if !enabled {
		sessionID := c.sessionID
		c.queue.Cancel()
		c.sessionCancel()
		c.sessionCtx, c.sessionCancel = context.WithCancel(context.Background())
		if sessionID != "" {
			c.store.PurgeSession(sessionID)
		}
		c.state = StateIdle
		c.mu.Unlock()

		c.resolver.Stop()
		c.scheduler.Clear()
		log.Info("Overlay disabled, session %s purged", sessionID)
		return
	}

	sessionID := c.sessionID
	url := c.sourceURL
	c.state = StateIdle
	c.mu.Unlock()

	c.resolver.Reset()
	log.Info("Overlay enabled")
	if sessionID != "" && url != "" {
		go func() {
			if err := c.HandleSourceDiscovered(sessionID, url); err != nil {
				log.Error("Failed to resume session %s: %v", sessionID, err)
			}
		}()
	}
}

// ApplyRuntimeSettings applies a live settings change. A target-language
// change clears existing translations so pending cues are re-attempted;
// every change re-evaluates the currently displayed cue.
func (c *Controller) ApplyRuntimeSettings(next config.RuntimeSettings) error {
	tag, err := language.Parse(next.TargetLanguage)
	if err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	languageChanged := tag.String() != c.targetLang.String()
	c.targetLang = tag
	if languageChanged && c.sessionID != "" {
		// Invalidate before resetting: an in-flight batch carries the
		// old language and must not write over the cleared cues.
		c.queue.Invalidate()
		c.store.ResetTranslations(c.sessionID)
	}
	sessionID := c.sessionID
	ctx := c.sessionCtx
	t := c.currentTime
	active := c.state == StateActive
	enabledNow := c.enabled
	c.mu.Unlock()

	c.queue.UpdateConfig(translate.Config{
		BatchSize:       next.BatchSize,
		RequestDelay:    time.Duration(next.RequestDelayMs) * time.Millisecond,
		RescheduleDelay: c.reschedule,
	})
	c.resolver.SetOffset(next.TimeOffsetSeconds)

	if next.Enabled != enabledNow {
		c.SetEnabled(next.Enabled)
		return nil
	}
	if active {
		c.scheduler.HandleTime(sessionID, t)
		c.queue.Kick(ctx, c.job)
	}
	return nil
}

// Close tears the controller down when its surface detaches. All state
// scoped to the surface dies with it.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sessionID := c.sessionID
	c.sessionCancel()
	c.mu.Unlock()

	c.queue.Cancel()
	c.resolver.Stop()
	if sessionID != "" {
		c.store.PurgeSession(sessionID)
	}
	log.Info("Controller closed, session %s released", sessionID)
}

// Sweep evicts any stale sessions the store still holds besides the
// active one. Driven by the maintenance schedule.
func (c *Controller) Sweep() int {
	c.mu.Lock()
	keep := c.sessionID
	c.mu.Unlock()
	return c.store.EvictExcept(keep)
}

// Status reports a snapshot for the control API.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:         c.state,
		SessionID:     c.sessionID,
		SourceURL:     c.sourceURL,
		ResolverState: c.resolver.State(),
		CueCount:      c.store.CueCount(c.sessionID),
		PendingCount:  c.store.PendingCount(c.sessionID),
		CurrentTime:   c.currentTime,
		Enabled:       c.enabled,
	}
}

// CurrentTime returns the last propagated playback time.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// job builds the queue job from the controller's current state. The
// queue calls it at the start of every pass, so rescheduled passes pick
// up live language changes instead of replaying the job they were
// kicked with.
func (c *Controller) job() translate.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return translate.Job{
		SessionID:  c.sessionID,
		SourceLang: c.sourceLang,
		TargetLang: c.targetLang.String(),
		Now:        c.CurrentTime,
	}
}
