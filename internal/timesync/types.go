package timesync

import (
	"context"
	"time"
)

// State names which source currently supplies playback time.
type State string

const (
	// StateDiscovering means the resolver is still probing the surface
	// for a scrubber-like progress control.
	StateDiscovering State = "discovering"
	// StateScrubberActive means time comes from scrubber value updates.
	StateScrubberActive State = "scrubber"
	// StateNativeOnly means time comes solely from the surface's own
	// reported position.
	StateNativeOnly State = "native"
)

// SurfaceProbe asks the playback surface whether a scrubber-like control
// is present. The resolver treats it purely as a capability query.
type SurfaceProbe interface {
	ProbeScrubber(ctx context.Context) (bool, error)
}

// Config holds the resolver's tunables.
type Config struct {
	// RetryCount bounds scrubber discovery attempts before falling back
	// to native-only time.
	RetryCount int
	// RetryInterval is the fixed delay between discovery attempts.
	RetryInterval time.Duration
	// Epsilon is the minimum change, in seconds, between consecutive
	// propagated times. Smaller updates are dropped.
	Epsilon float64
	// OffsetSeconds is added to every resolved time before propagation.
	OffsetSeconds float64
}
