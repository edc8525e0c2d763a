package podcast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestLibrary lays out episode dirs with chapter transcripts and clips.
func newTestLibrary(t *testing.T, episodes map[string][]string) *Library {
	t.Helper()
	dir := t.TempDir()
	for episode, chapters := range episodes {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, episode), 0o755))
		for _, chapter := range chapters {
			transcript := "Transcript of " + chapter + "."
			require.NoError(t, os.WriteFile(
				filepath.Join(dir, episode, chapter+".txt"), []byte(transcript), 0o644))
			require.NoError(t, os.WriteFile(
				filepath.Join(dir, episode, chapter+".mp3"), []byte("clip bytes"), 0o644))
		}
	}
	library, err := NewLibrary(dir)
	require.NoError(t, err)
	return library
}

func mustWeekKey(t *testing.T, raw string) weekcal.WeekKey {
	t.Helper()
	key, err := weekcal.Parse(raw)
	require.NoError(t, err)
	return key
}

func TestLibrary_Episodes(t *testing.T) {
	library := newTestLibrary(t, map[string][]string{
		"beta-episode":  {"ch2", "ch1"},
		"alpha-episode": {"intro"},
	})

	episodes, err := library.Episodes()
	require.NoError(t, err)
	require.Len(t, episodes, 2)

	assert.Equal(t, "alpha-episode", episodes[0].Name)
	assert.Equal(t, []string{"intro"}, episodes[0].Chapters)
	assert.Equal(t, "beta-episode", episodes[1].Name)
	assert.Equal(t, []string{"ch1", "ch2"}, episodes[1].Chapters)
}

func TestLibrary_EpisodeForWeek(t *testing.T) {
	library := newTestLibrary(t, map[string][]string{
		"a-ep": {"ch1"},
		"b-ep": {"ch1"},
	})

	episode, err := library.EpisodeForWeek(mustWeekKey(t, "2025-W01"))
	require.NoError(t, err)
	assert.Equal(t, "a-ep", episode.Name)

	episode, err = library.EpisodeForWeek(mustWeekKey(t, "2025-W02"))
	require.NoError(t, err)
	assert.Equal(t, "b-ep", episode.Name)

	// cycles back around
	episode, err = library.EpisodeForWeek(mustWeekKey(t, "2025-W03"))
	require.NoError(t, err)
	assert.Equal(t, "a-ep", episode.Name)
}

func TestLibrary_EpisodeForWeek_Empty(t *testing.T) {
	library := newTestLibrary(t, nil)
	_, err := library.EpisodeForWeek(mustWeekKey(t, "2025-W01"))
	require.ErrorIs(t, err, ErrNoEpisodes)
}

func TestLibrary_NextEpisode(t *testing.T) {
	library := newTestLibrary(t, map[string][]string{
		"a-ep": {"ch1"},
		"b-ep": {"ch1"},
		"c-ep": {"ch1"},
	})

	next, err := library.NextEpisode("a-ep")
	require.NoError(t, err)
	assert.Equal(t, "b-ep", next.Name)

	next, err = library.NextEpisode("c-ep")
	require.NoError(t, err)
	assert.Equal(t, "a-ep", next.Name)

	// unknown current restarts the cycle
	next, err = library.NextEpisode("gone-ep")
	require.NoError(t, err)
	assert.Equal(t, "a-ep", next.Name)
}

func TestLibrary_Transcript(t *testing.T) {
	library := newTestLibrary(t, map[string][]string{
		"a-ep": {"intro"},
	})

	transcript, err := library.Transcript("a-ep", "intro")
	require.NoError(t, err)
	assert.Equal(t, "Transcript of intro.", transcript)

	_, err = library.Transcript("a-ep", "missing")
	require.ErrorIs(t, err, ErrTranscriptNotFound)

	_, err = library.Transcript("no-such-ep", "intro")
	require.ErrorIs(t, err, ErrTranscriptNotFound)

	_, err = library.Transcript("../outside", "intro")
	require.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestLibrary_ClipPath(t *testing.T) {
	library := newTestLibrary(t, map[string][]string{
		"a-ep": {"intro"},
	})

	path, err := library.ClipPath("a-ep/intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(library.dir, "a-ep", "intro.mp3"), path)

	_, err = library.ClipPath("a-ep/missing.mp3")
	require.ErrorIs(t, err, ErrClipNotFound)

	_, err = library.ClipPath("intro.mp3")
	require.ErrorIs(t, err, ErrClipNotFound)

	_, err = library.ClipPath("../../etc/passwd")
	require.ErrorIs(t, err, ErrClipNotFound)
}
