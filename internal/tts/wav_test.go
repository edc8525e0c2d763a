package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWavFormat = wavFormat{
	Channels:      1,
	SampleRate:    8000,
	BitsPerSample: 16,
}

func TestParseWAV_RoundTrip(t *testing.T) {
	frames := make([]byte, 2000)
	for i := range frames {
		frames[i] = byte(i % 251)
	}

	encoded := encodeWAV(testWavFormat, frames)
	format, parsed, err := parseWAV(encoded)
	require.NoError(t, err)
	assert.Equal(t, testWavFormat, format)
	assert.Equal(t, frames, parsed)
}

func TestParseWAV_Invalid(t *testing.T) {
	_, _, err := parseWAV([]byte("definitely not audio"))
	require.Error(t, err)

	_, _, err = parseWAV(nil)
	require.Error(t, err)

	// valid header but data chunk claims more bytes than present
	encoded := encodeWAV(testWavFormat, make([]byte, 100))
	_, _, err = parseWAV(encoded[:80])
	require.Error(t, err)
}

func TestSilenceFrames(t *testing.T) {
	// 16000 bytes per second at 8kHz mono 16-bit
	silence := silenceFrames(testWavFormat, 0.5)
	assert.Len(t, silence, 8000)

	assert.Nil(t, silenceFrames(testWavFormat, 0))
	assert.Nil(t, silenceFrames(testWavFormat, -1))
}

func TestConcatWAV(t *testing.T) {
	partA := encodeWAV(testWavFormat, make([]byte, 2000))
	partB := encodeWAV(testWavFormat, make([]byte, 3000))

	merged, err := concatWAV([][]byte{partA, partB}, 0.5)
	require.NoError(t, err)

	format, frames, err := parseWAV(merged)
	require.NoError(t, err)
	assert.Equal(t, testWavFormat, format)
	// 2000 + 8000 of pause + 3000
	assert.Len(t, frames, 13000)
}

func TestConcatWAV_NoPause(t *testing.T) {
	partA := encodeWAV(testWavFormat, make([]byte, 2000))
	partB := encodeWAV(testWavFormat, make([]byte, 3000))

	merged, err := concatWAV([][]byte{partA, partB}, 0)
	require.NoError(t, err)

	_, frames, err := parseWAV(merged)
	require.NoError(t, err)
	assert.Len(t, frames, 5000)
}

func TestConcatWAV_FormatMismatch(t *testing.T) {
	partA := encodeWAV(testWavFormat, make([]byte, 2000))
	stereo := testWavFormat
	stereo.Channels = 2
	partB := encodeWAV(stereo, make([]byte, 2000))

	_, err := concatWAV([][]byte{partA, partB}, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format mismatch")
}

func TestConcatWAV_Empty(t *testing.T) {
	_, err := concatWAV(nil, 0.5)
	require.Error(t, err)
}
