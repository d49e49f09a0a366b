package session

import (
	"context"
	"time"

	"golang.org/x/text/language"

	"github.com/capoverlay/capsync/internal/config"
	"github.com/capoverlay/capsync/internal/timesync"
)

// State is the controller's lifecycle phase.
type State string

const (
	// StateIdle means no caption source is being tracked.
	StateIdle State = "idle"
	// StateLoading means a session exists but no usable cues yet.
	StateLoading State = "loading"
	// StateActive means cues are ingested and both loops run.
	StateActive State = "active"
)

// Fetcher retrieves a caption source payload by URL. The controller does
// not perform the network call itself; the playback surface side does.
type Fetcher interface {
	FetchCaptions(ctx context.Context, url string) (string, error)
}

// Settings is the controller's effective configuration at session start.
type Settings struct {
	TargetLanguage    language.Tag
	SourceLanguage    language.Tag // Und means autodetect from cues
	TimeOffsetSeconds float64
	BatchSize         int
	RequestDelay      time.Duration
	RescheduleDelay   time.Duration
	Enabled           bool
}

// SettingsFromConfig maps the application config onto controller
// settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		TargetLanguage:    cfg.Translate.TargetLanguage,
		SourceLanguage:    cfg.Translate.SourceLanguage,
		TimeOffsetSeconds: cfg.Translate.TimeOffsetSeconds,
		BatchSize:         cfg.Translate.BatchSize,
		RequestDelay:      time.Duration(cfg.Translate.RequestDelayMs) * time.Millisecond,
		RescheduleDelay:   time.Duration(cfg.Translate.RescheduleDelayMs) * time.Millisecond,
		Enabled:           cfg.Translate.Enabled,
	}
}

// ResolverConfigFromConfig maps the application config onto the time
// resolver's tunables.
func ResolverConfigFromConfig(cfg *config.Config) timesync.Config {
	return timesync.Config{
		RetryCount:    cfg.Resolver.ScrubberRetryCount,
		RetryInterval: time.Duration(cfg.Resolver.ScrubberRetryIntervalMs) * time.Millisecond,
		Epsilon:       cfg.Resolver.TimeEpsilon,
		OffsetSeconds: cfg.Translate.TimeOffsetSeconds,
	}
}

// Status is a point-in-time snapshot of one controller, served by the
// control API.
type Status struct {
	State         State          `json:"state"`
	SessionID     string         `json:"session_id,omitempty"`
	SourceURL     string         `json:"source_url,omitempty"`
	ResolverState timesync.State `json:"resolver_state"`
	CueCount      int            `json:"cue_count"`
	PendingCount  int            `json:"pending_count"`
	CurrentTime   float64        `json:"current_time"`
	Enabled       bool           `json:"enabled"`
}
