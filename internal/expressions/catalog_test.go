package expressions

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

func newTestCatalog(t *testing.T, files ...string) *Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("mp3 bytes"), 0o644))
	}
	catalog, err := NewCatalog(dir)
	require.NoError(t, err)
	return catalog
}

func mustWeekKey(t *testing.T, raw string) weekcal.WeekKey {
	t.Helper()
	key, err := weekcal.Parse(raw)
	require.NoError(t, err)
	return key
}

func TestCatalog_Files(t *testing.T) {
	catalog := newTestCatalog(t, "charlie.mp3", "alpha.mp3", "bravo.MP3", "notes.txt")

	files, err := catalog.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.mp3", "bravo.MP3", "charlie.mp3"}, files)
}

func TestCatalog_FilesCached(t *testing.T) {
	catalog := newTestCatalog(t, "alpha.mp3")

	files, err := catalog.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)

	// new file is invisible until the cache is invalidated
	require.NoError(t, os.WriteFile(filepath.Join(catalog.dir, "bravo.mp3"), []byte("x"), 0o644))
	files, err = catalog.Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	catalog.Invalidate()
	files, err = catalog.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCatalog_FileForWeek(t *testing.T) {
	catalog := newTestCatalog(t, "a.mp3", "b.mp3", "c.mp3")

	// week 1 gets the first file, the assignment cycles
	file, err := catalog.FileForWeek(mustWeekKey(t, "2025-W01"))
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", file)

	file, err = catalog.FileForWeek(mustWeekKey(t, "2025-W02"))
	require.NoError(t, err)
	assert.Equal(t, "b.mp3", file)

	file, err = catalog.FileForWeek(mustWeekKey(t, "2025-W04"))
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", file)
}

func TestCatalog_FileForWeek_Empty(t *testing.T) {
	catalog := newTestCatalog(t)
	_, err := catalog.FileForWeek(mustWeekKey(t, "2025-W01"))
	require.ErrorIs(t, err, ErrNoMP3Files)
}

func TestCatalog_NextFile(t *testing.T) {
	catalog := newTestCatalog(t, "a.mp3", "b.mp3", "c.mp3")

	next, err := catalog.NextFile("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "b.mp3", next)

	// wraps around
	next, err = catalog.NextFile("c.mp3")
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", next)

	// unknown current restarts the cycle
	next, err = catalog.NextFile("gone.mp3")
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", next)
}

func TestCatalog_Path(t *testing.T) {
	catalog := newTestCatalog(t, "a.mp3")

	path, err := catalog.Path("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(catalog.dir, "a.mp3"), path)

	_, err = catalog.Path("missing.mp3")
	require.ErrorIs(t, err, ErrMP3NotFound)

	_, err = catalog.Path("../../../etc/passwd")
	require.ErrorIs(t, err, ErrMP3NotFound)

	_, err = catalog.Path("")
	require.ErrorIs(t, err, ErrMP3NotFound)
}
