package timesync

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/capoverlay/capsync/pkg/log"
)

// Resolver produces the current, offset-adjusted playback time from
// whichever time source is currently available.
//
// It is a state machine over time-source discovery: it starts in
// StateDiscovering, probing the surface for a scrubber with bounded
// fixed-interval retries; success moves it to StateScrubberActive,
// exhaustion to StateNativeOnly. A surface identity change resets it to
// StateDiscovering with fresh retry counters.
//
// Resolved times pass through an epsilon filter so a source firing faster
// than perceptible motion does not cause redundant downstream work.
type Resolver struct {
	probe SurfaceProbe
	emit  func(float64)

	mu        sync.Mutex
	cfg       Config
	state     State
	last      float64
	emitted   bool
	cancel    context.CancelFunc
	suspended bool
}

// NewResolver creates a resolver. emit is called with each propagated
// time; it must not block.
func NewResolver(cfg Config, probe SurfaceProbe, emit func(float64)) *Resolver {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 1
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &Resolver{
		probe: probe,
		emit:  emit,
		cfg:   cfg,
		state: StateDiscovering,
	}
}

// Start begins scrubber discovery. Calling Start on a running resolver
// restarts discovery from scratch.
func (r *Resolver) Start() {
	r.mu.Lock()
	r.suspended = false
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.state = StateDiscovering
	r.mu.Unlock()

	go r.discover(ctx)
}

// Reset returns the resolver to StateDiscovering with all retry counters
// and the propagation filter cleared, then restarts discovery. Called
// whenever the playback surface identity changes.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.emitted = false
	r.last = 0
	r.mu.Unlock()

	r.Start()
}

// Stop cancels any in-flight discovery and suspends event handling.
// Start or Reset resumes the resolver.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspended = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// State returns the current time-source state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetOffset updates the user-configured time offset applied to every
// resolved time.
func (r *Resolver) SetOffset(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.OffsetSeconds = seconds
}

// discover probes for a scrubber with bounded retries.
func (r *Resolver) discover(ctx context.Context) {
	r.mu.Lock()
	retries := r.cfg.RetryCount
	interval := r.cfg.RetryInterval
	r.mu.Unlock()

	for attempt := 1; attempt <= retries; attempt++ {
		found, err := r.probe.ProbeScrubber(ctx)
		if err != nil {
			log.Debug("Scrubber probe attempt %d failed: %v", attempt, err)
		} else if found {
			r.setState(ctx, StateScrubberActive)
			log.Info("Scrubber located after %d probe(s)", attempt)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}

	r.setState(ctx, StateNativeOnly)
	log.Warn("Scrubber discovery exhausted after %d attempts, falling back to native position", retries)
}

// setState commits a discovery outcome unless the discovery run was
// cancelled in the meantime; a stale run must not resurrect old state.
func (r *Resolver) setState(ctx context.Context, next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	r.state = next
}

// HandleNativePosition feeds a position reported by the surface itself.
// Ignored while the scrubber supplies time.
func (r *Resolver) HandleNativePosition(seconds float64) {
	r.mu.Lock()
	if r.suspended || r.state == StateScrubberActive {
		r.mu.Unlock()
		return
	}
	out, ok := r.filterLocked(seconds)
	r.mu.Unlock()

	if ok {
		r.emit(out)
	}
}

// HandleScrubber feeds a scrubber value update. When the total duration
// is a valid positive number the value is normalized as a ratio of max;
// otherwise the raw value is treated as already being in seconds. The
// fallback exists because some hosts report an undefined duration
// transiently; it is best effort, not a precision contract.
func (r *Resolver) HandleScrubber(value, max, duration float64) {
	r.mu.Lock()
	if r.suspended || r.state != StateScrubberActive {
		r.mu.Unlock()
		return
	}

	t := value
	if durationUsable(duration) && max > 0 {
		t = value / max * duration
	}
	out, ok := r.filterLocked(t)
	r.mu.Unlock()

	if ok {
		r.emit(out)
	}
}

// filterLocked applies the offset and the epsilon filter. Returns the
// offset-adjusted time and whether it should be propagated.
func (r *Resolver) filterLocked(t float64) (float64, bool) {
	t += r.cfg.OffsetSeconds
	if r.emitted && math.Abs(t-r.last) <= r.cfg.Epsilon {
		return 0, false
	}
	r.last = t
	r.emitted = true
	return t, true
}

func durationUsable(d float64) bool {
	return d > 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}
