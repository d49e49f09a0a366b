package captions

import (
	"regexp"
	"strings"

	"github.com/capoverlay/capsync/pkg/log"
)

var (
	markupRe     = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Parse converts a full WebVTT payload into the ordered cue sequence for
// a session. A payload that does not begin with the WEBVTT header is
// rejected wholesale (nil result, logged). Blocks with missing or
// malformed time ranges are skipped individually; partial success is
// preferred over total failure.
func Parse(sessionID, payload string) []Cue {
	text := strings.TrimPrefix(payload, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	if !strings.HasPrefix(text, "WEBVTT") {
		log.Warn("Caption payload for session %s rejected: missing WEBVTT header", sessionID)
		return nil
	}

	var cues []Cue
	blocks := strings.Split(text, "\n\n")
	// First block is the header, possibly with metadata lines attached.
	for _, block := range blocks[1:] {
		cue, ok := parseBlock(sessionID, block)
		if !ok {
			continue
		}
		cues = append(cues, cue)
	}

	log.Info("Parsed %d cues for session %s", len(cues), sessionID)
	return cues
}

// parseBlock parses one cue block: an optional id line, a "start --> end"
// line, then one or more text lines.
func parseBlock(sessionID, block string) (Cue, bool) {
	lines := strings.Split(block, "\n")

	timeIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		// NOTE/STYLE blocks and stray text land here; not worth a warning.
		return Cue{}, false
	}

	start, end, ok := parseTimeRange(lines[timeIdx])
	if !ok {
		log.Warn("Skipping cue block with malformed time range: %q", strings.TrimSpace(lines[timeIdx]))
		return Cue{}, false
	}

	var textParts []string
	for _, line := range lines[timeIdx+1:] {
		cleaned := cleanCueText(line)
		if cleaned == "" {
			continue
		}
		textParts = append(textParts, cleaned)
	}
	if len(textParts) == 0 {
		return Cue{}, false
	}

	return Cue{
		SessionID: sessionID,
		Start:     start,
		End:       end,
		Original:  strings.Join(textParts, " "),
	}, true
}

// parseTimeRange parses a "start --> end" line, ignoring trailing cue
// settings such as "align:start". The range must satisfy start < end;
// malformed timestamps collapse to 0 and fail that check.
func parseTimeRange(line string) (float64, float64, bool) {
	startRaw, endRaw, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false
	}

	endFields := strings.Fields(endRaw)
	if len(endFields) == 0 {
		return 0, 0, false
	}

	start := ParseTimestamp(startRaw)
	end := ParseTimestamp(endFields[0])
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}

// cleanCueText strips inline markup and collapses internal whitespace to
// single spaces.
func cleanCueText(line string) string {
	cleaned := markupRe.ReplaceAllString(line, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
