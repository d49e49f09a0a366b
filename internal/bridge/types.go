package bridge

// inboundMessage is one JSON text frame from the page-side script. Type
// selects which fields are meaningful.
//
// Types:
//   - "source": a caption source was discovered (sessionId, url)
//   - "position": native position changed (seconds)
//   - "scrubber": scrubber attributes mutated (value, max, duration;
//     duration omitted when the host reports none)
//   - "surface_changed": a new video element replaced the old one
//   - "probe_result": reply to a "probe_scrubber" request (requestId, found)
//   - "fetch_result": reply to a "fetch" request (requestId, body or error)
type inboundMessage struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId,omitempty"`
	URL       string   `json:"url,omitempty"`
	Seconds   float64  `json:"seconds,omitempty"`
	Value     float64  `json:"value,omitempty"`
	Max       float64  `json:"max,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
	Found     bool     `json:"found,omitempty"`
	Body      string   `json:"body,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// outboundMessage is one JSON text frame to the page-side script.
//
// Types:
//   - "render": write text into a named slot; empty text clears it
//   - "probe_scrubber": ask whether a scrubber-like control exists
//   - "fetch": ask the page to fetch a caption source URL
type outboundMessage struct {
	Type      string `json:"type"`
	Slot      string `json:"slot,omitempty"`
	Text      string `json:"text"`
	RequestID string `json:"requestId,omitempty"`
	URL       string `json:"url,omitempty"`
}
