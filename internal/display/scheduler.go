package display

import (
	"sync"

	"github.com/capoverlay/capsync/internal/cuestore"
	"github.com/capoverlay/capsync/pkg/log"
)

// Slot names one of the render target's text slots.
type Slot string

const (
	SlotOriginal   Slot = "original"
	SlotTranslated Slot = "translated"
)

// RenderTarget is the external surface the scheduler writes caption text
// to. Setting a slot to the empty string clears it.
type RenderTarget interface {
	SetText(slot Slot, text string) error
}

// Scheduler selects the active cue for each propagated time and emits
// render instructions, rewriting a slot only when its content actually
// changed. Its only state is the last rendered text per slot.
type Scheduler struct {
	store  *cuestore.Store
	target RenderTarget

	mu             sync.Mutex
	lastOriginal   string
	lastTranslated string
}

func NewScheduler(store *cuestore.Store, target RenderTarget) *Scheduler {
	return &Scheduler{
		store:  store,
		target: target,
	}
}

// HandleTime renders the cue active at time t for the session, or clears
// both slots when no cue covers t.
func (s *Scheduler) HandleTime(sessionID string, t float64) {
	cue, found := s.store.FindActive(sessionID, t)
	if !found {
		s.render("", "")
		return
	}

	translated := cue.Translated
	if cue.Failed() {
		// "no translation available" is an empty slot, never the sentinel.
		translated = ""
	}
	s.render(cue.Original, translated)
}

// Clear wipes both slots regardless of the current time.
func (s *Scheduler) Clear() {
	s.render("", "")
}

func (s *Scheduler) render(original, translated string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if original != s.lastOriginal {
		if err := s.target.SetText(SlotOriginal, original); err != nil {
			log.Error("Failed to render original slot: %v", err)
		} else {
			s.lastOriginal = original
		}
	}
	if translated != s.lastTranslated {
		if err := s.target.SetText(SlotTranslated, translated); err != nil {
			log.Error("Failed to render translated slot: %v", err)
		} else {
			s.lastTranslated = translated
		}
	}
}
