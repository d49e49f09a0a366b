package cuestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capoverlay/capsync/internal/captions"
)

func seedCues(t *testing.T, s *Store, sessionID string, cues ...captions.Cue) {
	t.Helper()
	for i := range cues {
		cues[i].SessionID = sessionID
	}
	s.ReplaceForSession(sessionID, cues)
}

func TestStore_FindActive(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 2, Original: "one"},
		captions.Cue{Start: 3, End: 5, Original: "two"},
	)

	cue, ok := s.FindActive("s1", 4)
	require.True(t, ok)
	assert.Equal(t, "two", cue.Original)

	_, ok = s.FindActive("s1", 2.5)
	assert.False(t, ok)

	_, ok = s.FindActive("unknown", 4)
	assert.False(t, ok)
}

func TestStore_FindActive_OverlapPrefersInsertionOrder(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 4, Original: "first"},
		captions.Cue{Start: 2, End: 5, Original: "second"},
	)

	cue, ok := s.FindActive("s1", 3)
	require.True(t, ok)
	assert.Equal(t, "first", cue.Original)
}

func TestStore_PendingTranslations_SkipsPastAndTranslated(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 2, Original: "behind"},
		captions.Cue{Start: 10, End: 12, Original: "done", Translated: "fertig"},
		captions.Cue{Start: 20, End: 22, Original: "later"},
		captions.Cue{Start: 14, End: 16, Original: "sooner"},
	)

	pending := s.PendingTranslations("s1", 5)

	require.Len(t, pending, 2)
	assert.Equal(t, "sooner", pending[0].Original)
	assert.Equal(t, "later", pending[1].Original)
}

func TestStore_PendingTranslations_IncludesCurrentCue(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 3, Original: "current"},
	)

	pending := s.PendingTranslations("s1", 2)
	require.Len(t, pending, 1)
	assert.Equal(t, "current", pending[0].Original)
}

func TestStore_MarkTranslated_IdentityTriple(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 2, Original: "hello"},
	)

	require.True(t, s.MarkTranslated("s1", 1, "hello", "hallo"))

	cue, ok := s.FindActive("s1", 1.5)
	require.True(t, ok)
	assert.Equal(t, "hallo", cue.Translated)

	assert.False(t, s.MarkTranslated("s1", 1, "different text", "x"))
	assert.False(t, s.MarkTranslated("s1", 9, "hello", "x"))
	assert.False(t, s.MarkTranslated("gone", 1, "hello", "x"))
}

func TestStore_MarkTranslated_DroppedAfterPurge(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 2, Original: "hello"},
	)

	s.PurgeSession("s1")

	assert.False(t, s.MarkTranslated("s1", 1, "hello", "hallo"))
	assert.Zero(t, s.CueCount("s1"))
}

func TestStore_ResetTranslations(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "s1",
		captions.Cue{Start: 1, End: 2, Original: "a", Translated: "x"},
		captions.Cue{Start: 3, End: 4, Original: "b", Translated: captions.TranslationFailed},
		captions.Cue{Start: 5, End: 6, Original: "c"},
	)

	s.ResetTranslations("s1")

	assert.Equal(t, 3, s.PendingCount("s1"))
}

func TestStore_SourceCached(t *testing.T) {
	s := NewStore()
	url := "https://example.com/captions.vtt"

	assert.False(t, s.SourceCached("s1", url))

	seedCues(t, s, "s1", captions.Cue{Start: 1, End: 2, Original: "a"})
	s.CacheSource("s1", url)

	assert.True(t, s.SourceCached("s1", url))
	assert.False(t, s.SourceCached("s1", "https://example.com/other.vtt"))

	s.PurgeSession("s1")
	assert.False(t, s.SourceCached("s1", url), "purged session must not count as cached")
}

func TestStore_EvictExcept(t *testing.T) {
	s := NewStore()
	seedCues(t, s, "keep", captions.Cue{Start: 1, End: 2, Original: "a"})
	seedCues(t, s, "old1", captions.Cue{Start: 1, End: 2, Original: "b"})
	seedCues(t, s, "old2", captions.Cue{Start: 1, End: 2, Original: "c"})

	assert.Equal(t, 2, s.EvictExcept("keep"))
	assert.Equal(t, 1, s.CueCount("keep"))
	assert.Zero(t, s.CueCount("old1"))
	assert.Zero(t, s.CueCount("old2"))
}

func TestStore_ReplaceForSession_CopiesInput(t *testing.T) {
	s := NewStore()
	cues := []captions.Cue{{SessionID: "s1", Start: 1, End: 2, Original: "a"}}
	s.ReplaceForSession("s1", cues)

	cues[0].Original = "mutated"

	got := s.Cues("s1")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Original)
}
