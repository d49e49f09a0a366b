package captions

import (
	"strconv"
	"strings"

	"github.com/capoverlay/capsync/pkg/log"
)

// ParseTimestamp converts a caption timestamp token into seconds.
// Accepted forms: "HH:MM:SS.mmm", "MM:SS.mmm" and a bare seconds value,
// with either '.' or ',' as the fractional separator.
//
// Malformed input yields 0 and a warning. Caption sources are frequently
// malformed and the pipeline degrades instead of failing.
func ParseTimestamp(token string) float64 {
	raw := strings.TrimSpace(token)
	if raw == "" {
		log.Warn("Unparseable caption timestamp: %q", token)
		return 0
	}
	normalized := strings.Replace(raw, ",", ".", 1)

	parts := strings.Split(normalized, ":")
	var seconds float64
	var ok bool
	switch len(parts) {
	case 1:
		seconds, ok = parseSecondsField(parts[0])
	case 2:
		var m, s float64
		m, ok = parseSecondsField(parts[0])
		if ok {
			s, ok = parseSecondsField(parts[1])
		}
		seconds = m*60 + s
	case 3:
		var h, m, s float64
		h, ok = parseSecondsField(parts[0])
		if ok {
			m, ok = parseSecondsField(parts[1])
		}
		if ok {
			s, ok = parseSecondsField(parts[2])
		}
		seconds = h*3600 + m*60 + s
	}

	if !ok {
		log.Warn("Unparseable caption timestamp: %q", token)
		return 0
	}
	return seconds
}

// parseSecondsField parses one numeric timestamp field. Negative values
// are rejected so a malformed range never produces a negative time.
func parseSecondsField(field string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
