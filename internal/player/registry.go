package player

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

// Key identifies one player slot: which activity of which week it plays for,
// and which slot inside the activity card (an activity can carry more than
// one audio, e.g. per-chapter podcast players).
type Key struct {
	Activity roadmap.ActivityID `json:"activity"`
	WeekKey  string             `json:"week_key"`
	Slot     string             `json:"slot"`
}

// MediaFactory builds the media element for a mounted source.
type MediaFactory func(source string, durationSeconds float64) MediaElement

// Registry is the arena of live controllers. Everything a mounted player owns
// hangs off its registry entry, so unmounting a week reliably frees all of
// its players with no strays left behind.
type Registry struct {
	mu      sync.Mutex
	players map[Key]*Controller
	factory MediaFactory

	onCountChange func(count int)
}

func NewRegistry(factory MediaFactory) *Registry {
	if factory == nil {
		factory = func(_ string, durationSeconds float64) MediaElement {
			return NewClockTransport(durationSeconds)
		}
	}
	return &Registry{
		players: map[Key]*Controller{},
		factory: factory,
	}
}

// OnCountChange registers a callback fired with the live player count after
// every mount and unmount. Used to keep the active players gauge fresh.
func (reg *Registry) OnCountChange(fn func(count int)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.onCountChange = fn
}

func (reg *Registry) notifyCount() {
	if reg.onCountChange != nil {
		reg.onCountChange(len(reg.players))
	}
}

// Mount returns the controller for the key, creating it when absent. Mounting
// the same key with the same source is idempotent and returns the live
// controller. A different source disposes the old controller first and
// mounts a fresh one.
func (reg *Registry) Mount(key Key, source string, durationSeconds float64) (*Controller, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing, ok := reg.players[key]; ok {
		snap := existing.Snapshot()
		if snap.State != StateDisposed && snap.Source == source {
			return existing, nil
		}
		existing.Dispose()
		delete(reg.players, key)
		log.Debugf("player %v remounted, source %q -> %q", key, snap.Source, source)
	}

	controller := NewController()
	if err := controller.Bind(reg.factory(source, durationSeconds), source); err != nil {
		return nil, err
	}

	reg.players[key] = controller
	reg.notifyCount()
	return controller, nil
}

// Lookup returns the live controller for the key. Absence is not an error,
// state polls for never-mounted slots are routine.
func (reg *Registry) Lookup(key Key) (*Controller, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	controller, ok := reg.players[key]
	return controller, ok
}

// Unmount disposes and removes one player. Unmounting an absent key is a
// no-op.
func (reg *Registry) Unmount(key Key) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if controller, ok := reg.players[key]; ok {
		controller.Dispose()
		delete(reg.players, key)
		reg.notifyCount()
	}
}

// UnmountWeek disposes every player mounted for the given week and returns
// how many were removed.
func (reg *Registry) UnmountWeek(weekKey string) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := 0
	for key, controller := range reg.players {
		if key.WeekKey != weekKey {
			continue
		}
		controller.Dispose()
		delete(reg.players, key)
		removed++
	}
	if removed > 0 {
		reg.notifyCount()
	}
	return removed
}

// Count returns the number of live players.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.players)
}
