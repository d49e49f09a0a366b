package cuestore

import (
	"sort"
	"sync"

	"github.com/capoverlay/capsync/internal/captions"
	"github.com/capoverlay/capsync/pkg/log"
)

// Store holds the cue sequences for playback sessions, keyed by session
// id, plus a per-session cache of the last ingested source URL so an
// identical source announced twice is not re-parsed.
//
// All methods are safe for concurrent use. Reads return copies; callers
// never observe in-place mutation.
type Store struct {
	mu      sync.RWMutex
	cues    map[string][]captions.Cue
	sources map[string]string
}

func NewStore() *Store {
	return &Store{
		cues:    make(map[string][]captions.Cue),
		sources: make(map[string]string),
	}
}

// ReplaceForSession atomically drops all prior cues for the session and
// inserts the new sequence. Used when a fresh source is ingested for the
// same session, e.g. a quality or track switch.
func (s *Store) ReplaceForSession(sessionID string, cues []captions.Cue) {
	snapshot := make([]captions.Cue, len(cues))
	copy(snapshot, cues)

	s.mu.Lock()
	s.cues[sessionID] = snapshot
	s.mu.Unlock()
}

// PurgeSession removes the session's cues and its source cache entry.
func (s *Store) PurgeSession(sessionID string) {
	s.mu.Lock()
	delete(s.cues, sessionID)
	delete(s.sources, sessionID)
	s.mu.Unlock()
}

// EvictExcept purges every session other than the given one and returns
// the number of sessions removed. An empty keep purges everything.
func (s *Store) EvictExcept(keep string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id := range s.cues {
		if id == keep {
			continue
		}
		delete(s.cues, id)
		delete(s.sources, id)
		evicted++
	}
	for id := range s.sources {
		if id == keep {
			continue
		}
		delete(s.sources, id)
	}
	if evicted > 0 {
		log.Debug("Evicted %d stale caption sessions", evicted)
	}
	return evicted
}

// FindActive returns the cue covering time t, if any. Ties break to the
// first match in insertion order.
func (s *Store) FindActive(sessionID string, t float64) (captions.Cue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cue := range s.cues[sessionID] {
		if cue.Contains(t) {
			return cue, true
		}
	}
	return captions.Cue{}, false
}

// PendingTranslations returns copies of the session's untranslated cues
// whose end time has not yet passed, ordered by start time ascending.
// Cues already behind the playhead are not worth translating.
func (s *Store) PendingTranslations(sessionID string, t float64) []captions.Cue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []captions.Cue
	for _, cue := range s.cues[sessionID] {
		if cue.Pending() && cue.End >= t {
			pending = append(pending, cue)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Start < pending[j].Start
	})
	return pending
}

// MarkTranslated writes a translation result back into the cue matched by
// the identity triple (sessionID, start, original). If no cue matches,
// the update is silently dropped and false is returned: the cue was
// purged or replaced mid-flight, which is expected under navigation and
// not an error.
func (s *Store) MarkTranslated(sessionID string, start float64, original, result string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cues := s.cues[sessionID]
	for i := range cues {
		if cues[i].Start == start && cues[i].Original == original {
			cues[i].Translated = result
			return true
		}
	}
	return false
}

// ResetTranslations clears the translated text of every cue in the
// session so translation is re-attempted. Used when the target language
// changes; success and failure markers are both discarded.
func (s *Store) ResetTranslations(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cues := s.cues[sessionID]
	for i := range cues {
		cues[i].Translated = ""
	}
}

// CacheSource records the source URL most recently ingested for the
// session.
func (s *Store) CacheSource(sessionID, url string) {
	s.mu.Lock()
	s.sources[sessionID] = url
	s.mu.Unlock()
}

// SourceCached reports whether the URL is the session's last ingested
// source and the session still holds cues. A purged session never counts
// as cached even if the URL matches.
func (s *Store) SourceCached(sessionID, url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[sessionID] == url && len(s.cues[sessionID]) > 0
}

// CueCount returns the number of cues held for the session.
func (s *Store) CueCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cues[sessionID])
}

// PendingCount returns the number of cues in the session that have not
// been translated yet, regardless of playhead position.
func (s *Store) PendingCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, cue := range s.cues[sessionID] {
		if cue.Pending() {
			n++
		}
	}
	return n
}

// Cues returns a copy of the session's cue sequence in insertion order.
func (s *Store) Cues(sessionID string) []captions.Cue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cues := s.cues[sessionID]
	snapshot := make([]captions.Cue, len(cues))
	copy(snapshot, cues)
	return snapshot
}
