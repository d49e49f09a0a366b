package captions

// TranslationFailed is the sentinel stored in Cue.Translated after a
// failed attempt. It is distinct from the empty string, which means the
// cue has not been translated yet. The display layer never renders it.
const TranslationFailed = "\x00translation-failed"

// Cue is one timed caption entry scoped to a playback session.
//
// Identity for matching an asynchronous translation result back to a cue
// is (SessionID, Start, Original), not a slice index: the cue set may be
// replaced or purged between request and response.
type Cue struct {
	SessionID  string  `json:"session_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Original   string  `json:"original"`
	Translated string  `json:"translated,omitempty"`
}

// Pending reports whether the cue still needs a translation attempt.
func (c Cue) Pending() bool {
	return c.Translated == ""
}

// Failed reports whether a translation attempt was made and failed.
func (c Cue) Failed() bool {
	return c.Translated == TranslationFailed
}

// Contains reports whether t falls inside the cue's time range, inclusive
// on both ends. Comparisons tolerate disordered source cues.
func (c Cue) Contains(t float64) bool {
	return c.Start <= t && t <= c.End
}
