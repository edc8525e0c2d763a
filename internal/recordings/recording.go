// Package recordings stores the user's practice takes: uploaded audio blobs
// on disk, their metadata in postgres, and the live capture session that
// buffers chunks while the microphone is open.
package recordings

import (
	"errors"
	"time"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrSessionNotFound   = errors.New("recording session not found")
	ErrSessionNotLive    = errors.New("recording session not accepting chunks")
)

// Recording is one saved practice take.
type Recording struct {
	ID        string             `json:"id"`
	Activity  roadmap.ActivityID `json:"activity"`
	WeekKey   string             `json:"week_key"`
	Day       string             `json:"day"`
	Filename  string             `json:"filename"`
	Path      string             `json:"-"`
	SizeBytes int64              `json:"size_bytes"`
	MimeType  string             `json:"mime_type"`
	CreatedAt time.Time          `json:"created_at"`
}
