package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasParagraphs(t *testing.T) {
	assert.True(t, HasParagraphs("first paragraph\n\nsecond paragraph"))
	assert.True(t, HasParagraphs("line one\nline two"))
	assert.False(t, HasParagraphs("just one line of text"))
	assert.False(t, HasParagraphs(""))
}

func TestSplitParagraphs(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\n\nThird one."
	chunks := SplitParagraphs(text, 1800)
	require.Len(t, chunks, 3)
	assert.Equal(t, "First paragraph here.", chunks[0])
	assert.Equal(t, "Second paragraph here.", chunks[1])
	assert.Equal(t, "Third one.", chunks[2])
}

func TestSplitParagraphs_SingleNewlineFallback(t *testing.T) {
	text := "line one\nline two\n\nanother block"
	chunks := SplitParagraphs(text, 1800)
	require.Len(t, chunks, 2)
	assert.Equal(t, "line one\nline two", chunks[0])
	assert.Equal(t, "another block", chunks[1])

	// no blank lines at all: consecutive lines fold into one paragraph
	chunks = SplitParagraphs("line one\nline two\nline three", 1800)
	require.Len(t, chunks, 1)
	assert.Equal(t, "line one\nline two\nline three", chunks[0])
}

func TestSplitParagraphs_LongParagraphFallsBackToSentences(t *testing.T) {
	long := strings.Repeat("This sentence pads the paragraph out. ", 20)
	text := "Short intro.\n\n" + long
	chunks := SplitParagraphs(text, 100)
	require.Greater(t, len(chunks), 2)
	assert.Equal(t, "Short intro.", chunks[0])
	for _, chunk := range chunks[1:] {
		assert.LessOrEqual(t, len(chunk), 100)
	}
}

func TestSplitSentences(t *testing.T) {
	chunks := SplitSentences("One. Two! Three", 8)
	require.Len(t, chunks, 3)
	assert.Equal(t, "One.", chunks[0])
	assert.Equal(t, "Two!", chunks[1])
	assert.Equal(t, "Three", chunks[2])

	// everything fits in one chunk
	chunks = SplitSentences("One. Two! Three", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One. Two! Three", chunks[0])
}

func TestSplitSentences_OversizedSentenceKeptWhole(t *testing.T) {
	long := "this single sentence is way over the limit but has no break points"
	chunks := SplitSentences("Short. "+long+". End.", 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short.", chunks[0])
	assert.Equal(t, long+".", chunks[1])
	assert.Equal(t, "End.", chunks[2])
}

func TestSplitSentences_NoPunctuation(t *testing.T) {
	chunks := SplitSentences("no sentence enders here at all", 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "no sentence enders here at all", chunks[0])
}
