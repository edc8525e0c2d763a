// Package tts synthesizes speech for generated practice content through the
// Typecast API. Long texts are chunked under the API's character limit and
// the returned WAV parts are stitched back together with short pauses between
// paragraphs.
package tts

import (
	"regexp"
	"strings"
)

// maxChunkChars stays under Typecast's 2000 character limit with headroom.
const maxChunkChars = 1800

var (
	paragraphSplitRe = regexp.MustCompile(`\n\n+`)
	sentenceSplitRe  = regexp.MustCompile(`([.!?])\s+`)
)

// HasParagraphs reports whether the text carries paragraph structure worth
// pausing between.
func HasParagraphs(text string) bool {
	return strings.Contains(text, "\n\n") ||
		(strings.Contains(text, "\n") && len(strings.Split(text, "\n")) > 1)
}

// SplitParagraphs splits text on paragraph boundaries, falling back to
// grouping single-newline lines, and further splits any paragraph that
// exceeds maxChars on sentence boundaries.
func SplitParagraphs(text string, maxChars int) []string {
	paragraphs := paragraphSplitRe.Split(text, -1)
	if len(paragraphs) == 1 && strings.Contains(text, "\n") {
		paragraphs = groupLines(text)
	}

	var chunks []string
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) <= maxChars {
			chunks = append(chunks, paragraph)
			continue
		}
		chunks = append(chunks, SplitSentences(paragraph, maxChars)...)
	}
	return chunks
}

// groupLines folds consecutive non-empty lines into paragraphs.
func groupLines(text string) []string {
	var paragraphs []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			current = append(current, line)
			continue
		}
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, "\n"))
	}
	return paragraphs
}

// SplitSentences splits text into chunks of at most maxChars, breaking on
// sentence ends. A single sentence longer than maxChars becomes its own
// oversized chunk rather than being cut mid-word.
func SplitSentences(text string, maxChars int) []string {
	sentences := splitKeepingSeparators(text)

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChars {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitKeepingSeparators splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation attached to its sentence.
func splitKeepingSeparators(text string) []string {
	indexes := sentenceSplitRe.FindAllStringSubmatchIndex(text, -1)
	if len(indexes) == 0 {
		return []string{text}
	}

	var parts []string
	start := 0
	for _, loc := range indexes {
		// loc[3] is the end of the punctuation group
		end := loc[3]
		parts = append(parts, text[start:end]+" ")
		start = loc[1]
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}
