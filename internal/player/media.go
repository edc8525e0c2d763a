// Package player tracks audio playback state for the practice dashboard. A
// Controller wraps one media element and owns its play/pause/seek lifecycle,
// and the Registry is the single arena holding every live controller, keyed
// by the activity, week and slot it plays for.
package player

import (
	"math"
	"sync"
	"time"
)

// MediaElement is the playback capability a controller drives. Position and
// Duration are in seconds.
type MediaElement interface {
	Play()
	Pause()
	SetPosition(seconds float64)
	SetRate(rate float64)
	Position() float64
	Duration() float64
	Close()
}

// ClockTransport is a wall-clock driven media element: position advances with
// real time while playing, scaled by the playback rate. It carries no actual
// audio, the dashboard client does the hearing, the server tracks the state.
type ClockTransport struct {
	mu        sync.Mutex
	duration  float64
	position  float64
	rate      float64
	playing   bool
	updatedAt time.Time

	now func() time.Time
}

func NewClockTransport(durationSeconds float64) *ClockTransport {
	if math.IsNaN(durationSeconds) || durationSeconds < 0 {
		durationSeconds = 0
	}
	return &ClockTransport{
		duration: durationSeconds,
		rate:     1.0,
		now:      time.Now,
	}
}

// advance folds elapsed wall time into position. Callers hold the lock.
func (t *ClockTransport) advance() {
	now := t.now()
	if t.playing {
		t.position += now.Sub(t.updatedAt).Seconds() * t.rate
		if t.duration > 0 && t.position >= t.duration {
			t.position = t.duration
			t.playing = false
		}
	}
	t.updatedAt = now
}

func (t *ClockTransport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
	// play from the start again when the transport ran to the end
	if t.duration > 0 && t.position >= t.duration {
		t.position = 0
	}
	t.playing = true
}

func (t *ClockTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
	t.playing = false
}

func (t *ClockTransport) SetPosition(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if t.duration > 0 && seconds > t.duration {
		seconds = t.duration
	}
	t.position = seconds
}

func (t *ClockTransport) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
	t.rate = rate
}

func (t *ClockTransport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
	return t.position
}

func (t *ClockTransport) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *ClockTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
}
