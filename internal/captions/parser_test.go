package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleCue(t *testing.T) {
	payload := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHello"

	cues := Parse("s1", payload)

	require.Len(t, cues, 1)
	assert.Equal(t, "s1", cues[0].SessionID)
	assert.InDelta(t, 1.0, cues[0].Start, 1e-9)
	assert.InDelta(t, 2.0, cues[0].End, 1e-9)
	assert.Equal(t, "Hello", cues[0].Original)
	assert.True(t, cues[0].Pending())
}

func TestParse_RejectsMissingHeader(t *testing.T) {
	payload := "00:00:01.000 --> 00:00:02.000\nHello"

	assert.Nil(t, Parse("s1", payload))
}

func TestParse_AcceptsBOMAndCRLF(t *testing.T) {
	payload := "\uFEFFWEBVTT\r\n\r\n00:00:01.000 --> 00:00:02.000\r\nHello"

	cues := Parse("s1", payload)

	require.Len(t, cues, 1)
	assert.Equal(t, "Hello", cues[0].Original)
}

func TestParse_SkipsMalformedBlocks(t *testing.T) {
	payload := "WEBVTT\n\n" +
		"NOTE a comment block\n\n" +
		"bad --> worse\nskipped\n\n" +
		"00:00:05.000 --> 00:00:04.000\ninverted range\n\n" +
		"00:00:01.000 --> 00:00:02.000\nkept"

	cues := Parse("s1", payload)

	require.Len(t, cues, 1)
	assert.Equal(t, "kept", cues[0].Original)
}

func TestParse_StripsMarkupAndJoinsLines(t *testing.T) {
	payload := "WEBVTT\n\n" +
		"1\n00:00:01.000 --> 00:00:03.000 align:start position:10%\n" +
		"<v Speaker>First   line</v>\n{b}second{/b} line"

	cues := Parse("s1", payload)

	require.Len(t, cues, 1)
	assert.Equal(t, "First line second line", cues[0].Original)
}

func TestParse_DropsMarkupOnlyBlocks(t *testing.T) {
	payload := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<c.loud></c>"

	assert.Empty(t, Parse("s1", payload))
}

func TestParse_CommaSeparatorTimestamps(t *testing.T) {
	payload := "WEBVTT\n\n00:00:01,500 --> 00:00:02,750\nHallo"

	cues := Parse("s1", payload)

	require.Len(t, cues, 1)
	assert.InDelta(t, 1.5, cues[0].Start, 1e-9)
	assert.InDelta(t, 2.75, cues[0].End, 1e-9)
}

func TestParse_Idempotent(t *testing.T) {
	payload := "WEBVTT\n\n" +
		"00:00:01.000 --> 00:00:02.000\nfirst\n\n" +
		"00:00:03.000 --> 00:00:04.000\nsecond"

	first := Parse("s1", payload)
	second := Parse("s1", payload)

	assert.Equal(t, first, second)
}

func TestCue_Contains(t *testing.T) {
	cue := Cue{Start: 1, End: 2}

	assert.True(t, cue.Contains(1))
	assert.True(t, cue.Contains(1.5))
	assert.True(t, cue.Contains(2))
	assert.False(t, cue.Contains(0.999))
	assert.False(t, cue.Contains(2.001))
}

func TestCue_FailedDistinctFromPending(t *testing.T) {
	cue := Cue{Original: "hi"}
	require.True(t, cue.Pending())
	require.False(t, cue.Failed())

	cue.Translated = TranslationFailed
	assert.False(t, cue.Pending())
	assert.True(t, cue.Failed())
}
