package tts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// wavFormat is the PCM format of one WAV payload.
type wavFormat struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

func (f wavFormat) bytesPerSecond() int {
	return int(f.SampleRate) * int(f.Channels) * int(f.BitsPerSample) / 8
}

// parseWAV reads a RIFF/WAVE byte blob and returns its PCM format and raw
// frame data. Only uncompressed PCM is supported, which is what Typecast
// returns for audio_format wav.
func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format, nil, errors.New("not a RIFF/WAVE payload")
	}

	var frames []byte
	haveFormat := false

	// walk the chunks, picking up "fmt " and "data"
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return format, nil, fmt.Errorf("truncated %q chunk", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return format, nil, errors.New("fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return format, nil, fmt.Errorf("unsupported audio format %d, want PCM", audioFormat)
			}
			format.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			format.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			format.BitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFormat = true
		case "data":
			frames = data[body : body+chunkSize]
		}

		// chunks are word aligned
		offset = body + chunkSize + chunkSize%2
	}

	if !haveFormat {
		return format, nil, errors.New("missing fmt chunk")
	}
	if frames == nil {
		return format, nil, errors.New("missing data chunk")
	}
	return format, frames, nil
}

// silenceFrames returns zeroed PCM frames of the given duration.
func silenceFrames(format wavFormat, durationSeconds float64) []byte {
	if durationSeconds <= 0 {
		return nil
	}
	n := int(float64(format.bytesPerSecond()) * durationSeconds)
	// keep whole frames
	frameSize := int(format.Channels) * int(format.BitsPerSample) / 8
	if frameSize > 0 {
		n -= n % frameSize
	}
	return make([]byte, n)
}

// encodeWAV wraps raw PCM frames in a RIFF/WAVE container.
func encodeWAV(format wavFormat, frames []byte) []byte {
	var buf bytes.Buffer

	byteRate := uint32(format.bytesPerSecond())
	blockAlign := format.Channels * format.BitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(frames)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, format.Channels)
	binary.Write(&buf, binary.LittleEndian, format.SampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, format.BitsPerSample)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(frames)))
	buf.Write(frames)

	return buf.Bytes()
}

// concatWAV merges WAV parts into one file, inserting pauseSeconds of
// silence between parts when pauseSeconds > 0. All parts must share the
// format of the first one.
func concatWAV(parts [][]byte, pauseSeconds float64) ([]byte, error) {
	if len(parts) == 0 {
		return nil, errors.New("no audio parts to concatenate")
	}

	format, frames, err := parseWAV(parts[0])
	if err != nil {
		return nil, fmt.Errorf("parse audio part 0: %w", err)
	}

	var merged bytes.Buffer
	merged.Write(frames)

	pause := silenceFrames(format, pauseSeconds)
	for i, part := range parts[1:] {
		partFormat, partFrames, err := parseWAV(part)
		if err != nil {
			return nil, fmt.Errorf("parse audio part %d: %w", i+1, err)
		}
		if partFormat != format {
			return nil, fmt.Errorf("audio part %d format mismatch: %+v != %+v", i+1, partFormat, format)
		}
		merged.Write(pause)
		merged.Write(partFrames)
	}

	return encodeWAV(format, merged.Bytes()), nil
}
