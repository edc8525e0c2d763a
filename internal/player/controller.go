package player

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	ErrNotBound = errors.New("no media bound to player")
	ErrDisposed = errors.New("player disposed")
)

// State is the controller lifecycle. A controller starts unbound, gets media
// bound exactly once, then moves between playing and paused until disposed.
// Disposed is terminal.
type State string

const (
	StateUnbound  State = "unbound"
	StatePaused   State = "paused"
	StatePlaying  State = "playing"
	StateDisposed State = "disposed"
)

// Snapshot is the full observable player state at one instant.
type Snapshot struct {
	State         State   `json:"state"`
	Source        string  `json:"source"`
	Position      float64 `json:"position"`
	Duration      float64 `json:"duration"`
	Fraction      float64 `json:"fraction"`
	PositionLabel string  `json:"position_label"`
	DurationLabel string  `json:"duration_label"`
	Speed         float64 `json:"speed"`
	Dragging      bool    `json:"dragging"`
}

// Controller drives one media element.
type Controller struct {
	mu     sync.Mutex
	state  State
	media  MediaElement
	source string
	speed  float64

	// while the user drags the progress bar, live position updates must not
	// repaint the bar; the drag preview position wins until the drag ends
	dragging     bool
	dragFraction float64
}

func NewController() *Controller {
	return &Controller{
		state: StateUnbound,
		speed: 1.0,
	}
}

// Bind attaches the media element. Only a fresh controller can be bound.
func (c *Controller) Bind(media MediaElement, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisposed {
		return ErrDisposed
	}
	if c.state != StateUnbound {
		return fmt.Errorf("player already bound to %q", c.source)
	}

	c.media = media
	c.source = source
	c.state = StatePaused
	return nil
}

func (c *Controller) guard() error {
	if c.state == StateDisposed {
		return ErrDisposed
	}
	if c.media == nil {
		return ErrNotBound
	}
	return nil
}

// TogglePlayPause flips between playing and paused and returns the new state.
func (c *Controller) TogglePlayPause() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return c.state, err
	}

	if c.state == StatePlaying {
		c.media.Pause()
		c.state = StatePaused
	} else {
		c.media.Play()
		c.state = StatePlaying
	}
	return c.state, nil
}

// SeekFraction jumps to the given fraction of the duration. Fractions outside
// [0, 1] are clamped, an unknown or zero duration makes the seek a no-op.
func (c *Controller) SeekFraction(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	duration := c.media.Duration()
	if math.IsNaN(duration) || duration <= 0 {
		return nil
	}

	fraction = clamp(fraction, 0, 1)
	c.media.SetPosition(fraction * duration)
	return nil
}

// Skip moves the position by delta seconds, clamped to [0, duration].
func (c *Controller) Skip(deltaSeconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}

	duration := c.media.Duration()
	if math.IsNaN(duration) || duration <= 0 {
		return nil
	}

	target := clamp(c.media.Position()+deltaSeconds, 0, duration)
	c.media.SetPosition(target)
	return nil
}

// SetSpeed sets the playback rate. Non-positive or NaN values reset to 1.0
// instead of failing, a bad preference must never wedge playback.
func (c *Controller) SetSpeed(speed float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return 0, err
	}

	if math.IsNaN(speed) || speed <= 0 {
		speed = 1.0
	}
	c.speed = speed
	c.media.SetRate(speed)
	return speed, nil
}

// BeginDrag enters drag mode: the snapshot freezes on the drag preview.
func (c *Controller) BeginDrag(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}
	c.dragging = true
	c.dragFraction = clamp(fraction, 0, 1)
	return nil
}

// DragTo updates the drag preview without touching the media position.
func (c *Controller) DragTo(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guard(); err != nil {
		return err
	}
	if !c.dragging {
		return nil
	}
	c.dragFraction = clamp(fraction, 0, 1)
	return nil
}

// EndDrag leaves drag mode and commits the final fraction as a seek.
func (c *Controller) EndDrag(fraction float64) error {
	c.mu.Lock()
	if err := c.guard(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.dragging = false
	c.mu.Unlock()

	return c.SeekFraction(fraction)
}

// Snapshot reports the observable state. During a drag the reported position
// is the drag preview, not the live transport position.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:    c.state,
		Source:   c.source,
		Speed:    c.speed,
		Dragging: c.dragging,
	}
	if c.media == nil || c.state == StateDisposed {
		snap.PositionLabel = FormatClock(0)
		snap.DurationLabel = FormatClock(0)
		return snap
	}

	snap.Duration = c.media.Duration()
	snap.Position = c.media.Position()

	if c.dragging {
		snap.Fraction = c.dragFraction
		snap.Position = c.dragFraction * snap.Duration
	} else if snap.Duration > 0 {
		snap.Fraction = clamp(snap.Position/snap.Duration, 0, 1)
	}

	snap.PositionLabel = FormatClock(snap.Position)
	snap.DurationLabel = FormatClock(snap.Duration)
	return snap
}

// Dispose releases the media element. Safe to call more than once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisposed {
		return
	}
	if c.media != nil {
		c.media.Pause()
		c.media.Close()
		c.media = nil
	}
	c.state = StateDisposed
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FormatClock renders seconds as M:SS. Invalid inputs render as 0:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
