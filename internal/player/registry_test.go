package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

func testKey(activity roadmap.ActivityID, weekKey, slot string) Key {
	return Key{Activity: activity, WeekKey: weekKey, Slot: slot}
}

func TestRegistry_MountIdempotent(t *testing.T) {
	reg := NewRegistry(nil)
	key := testKey(roadmap.WeeklyExpressions, "2025-W01", "main")

	c1, err := reg.Mount(key, "vocab_01.mp3", 120)
	require.NoError(t, err)
	require.NotNil(t, c1)
	assert.Equal(t, 1, reg.Count())

	// same key, same source: the live controller comes back untouched
	c2, err := reg.Mount(key, "vocab_01.mp3", 120)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_MountNewSourceRecreates(t *testing.T) {
	reg := NewRegistry(nil)
	key := testKey(roadmap.ShadowingPractice, "2025-W01", "main")

	c1, err := reg.Mount(key, "old.mp3", 60)
	require.NoError(t, err)
	_, err = c1.TogglePlayPause()
	require.NoError(t, err)

	// a new source disposes the old controller before mounting the new one
	c2, err := reg.Mount(key, "new.mp3", 90)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, StateDisposed, c1.State())
	assert.Equal(t, StatePaused, c2.State())
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_MountReplacesDisposed(t *testing.T) {
	reg := NewRegistry(nil)
	key := testKey(roadmap.WeeklySpeakingPrompt, "2025-W02", "main")

	c1, err := reg.Mount(key, "prompt.mp3", 30)
	require.NoError(t, err)
	c1.Dispose()

	// same source, but the old controller is dead: mount builds a fresh one
	c2, err := reg.Mount(key, "prompt.mp3", 30)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, StatePaused, c2.State())
}

func TestRegistry_LookupAbsentIsBenign(t *testing.T) {
	reg := NewRegistry(nil)

	controller, ok := reg.Lookup(testKey(roadmap.VoiceJournaling, "2025-W01", "main"))
	assert.False(t, ok)
	assert.Nil(t, controller)

	// unmounting something never mounted is a no-op too
	reg.Unmount(testKey(roadmap.VoiceJournaling, "2025-W01", "main"))
	assert.Equal(t, 0, reg.UnmountWeek("2025-W01"))
}

func TestRegistry_UnmountWeek(t *testing.T) {
	reg := NewRegistry(nil)

	week1Expressions := testKey(roadmap.WeeklyExpressions, "2025-W01", "main")
	week1Chapter1 := testKey(roadmap.PodcastShadowing, "2025-W01", "chapter-1")
	week1Chapter2 := testKey(roadmap.PodcastShadowing, "2025-W01", "chapter-2")
	week2Expressions := testKey(roadmap.WeeklyExpressions, "2025-W02", "main")

	var controllers []*Controller
	for _, key := range []Key{week1Expressions, week1Chapter1, week1Chapter2, week2Expressions} {
		c, err := reg.Mount(key, key.Slot+".mp3", 60)
		require.NoError(t, err)
		controllers = append(controllers, c)
	}
	require.Equal(t, 4, reg.Count())

	removed := reg.UnmountWeek("2025-W01")
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, reg.Count())

	for _, c := range controllers[:3] {
		assert.Equal(t, StateDisposed, c.State())
	}

	// the other week's player is untouched
	survivor, ok := reg.Lookup(week2Expressions)
	require.True(t, ok)
	assert.Equal(t, StatePaused, survivor.State())
}

func TestRegistry_OnCountChange(t *testing.T) {
	reg := NewRegistry(nil)

	var lastCount int
	reg.OnCountChange(func(count int) { lastCount = count })

	_, err := reg.Mount(testKey(roadmap.WeeklyExpressions, "2025-W01", "main"), "a.mp3", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, lastCount)

	_, err = reg.Mount(testKey(roadmap.WeeklyExpressions, "2025-W02", "main"), "b.mp3", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, lastCount)

	reg.UnmountWeek("2025-W01")
	assert.Equal(t, 1, lastCount)
}
