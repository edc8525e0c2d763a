package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

func mustParseWeekKey(t *testing.T, s string) weekcal.WeekKey {
	t.Helper()
	key, err := weekcal.Parse(s)
	require.NoError(t, err)
	return key
}

// fixedCatalog cycles a tiny mp3 set the way the real expressions catalog does.
type fixedCatalog struct {
	files []string
}

func (c *fixedCatalog) FileForWeek(key weekcal.WeekKey) (string, error) {
	if len(c.files) == 0 {
		return "", fmt.Errorf("no mp3 files")
	}
	return c.files[(key.Week-1)%len(c.files)], nil
}

// newTestService pins the clock to Tuesday Jan 7 2025, inside week 2025-W01
// (the week starting Sunday Jan 5).
func newTestService(store Store) *Service {
	s := NewService(store, &fixedCatalog{files: []string{"a.mp3", "b.mp3", "c.mp3"}}, time.UTC)
	s.now = func() time.Time {
		return time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestService_LoadAll(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)

	snapshot, currentKey, summary, err := service.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-W01", currentKey.String())
	assert.Equal(t, "2025-W01", summary.WeekKey)
	// current week plus half a year of pre-created future weeks
	assert.Len(t, snapshot.Weeks, 1+26)

	current, ok := snapshot.Weeks["2025-W01"]
	require.True(t, ok)
	assert.Equal(t, "a.mp3", current.WeeklyExpressions.MP3File)

	next, ok := snapshot.Weeks["2025-W02"]
	require.True(t, ok)
	assert.Equal(t, "b.mp3", next.WeeklyExpressions.MP3File)

	// mp3 assignment wraps around the catalog
	fourth, ok := snapshot.Weeks["2025-W04"]
	require.True(t, ok)
	assert.Equal(t, "a.mp3", fourth.WeeklyExpressions.MP3File)
}

func TestService_LoadAll_KeepsExistingWeeks(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)

	ctx := context.Background()
	_, _, _, err := service.LoadAll(ctx)
	require.NoError(t, err)

	_, _, err = service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.VoiceJournaling,
		Completed: true,
	})
	require.NoError(t, err)

	// a second load must not reset what is already there
	snapshot, _, summary, err := service.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.VoiceJournalingDays)
	assert.Equal(t,
		[]string{"2025-01-07"},
		snapshot.Weeks["2025-W01"].VoiceJournaling.CompletedDays,
	)
}

func TestService_ToggleCompletion(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)
	ctx := context.Background()

	// defaults: current week, today
	snapshot, summary, err := service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.ShadowingPractice,
		Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ShadowingPracticeDays)
	assert.Equal(t,
		[]string{"2025-01-07"},
		snapshot.Weeks["2025-W01"].ShadowingPractice.CompletedDays,
	)

	// explicit week and day
	otherWeek := mustParseWeekKey(t, "2025-W03")
	snapshot, summary, err = service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.WeeklyExpressions,
		WeekKey:   &otherWeek,
		Day:       "2025-01-20",
		Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-W03", summary.WeekKey)
	assert.Equal(t, 1, summary.WeeklyExpressionsDays)
	assert.Contains(t, snapshot.Weeks["2025-W03"].WeeklyExpressions.CompletedDays, "2025-01-20")

	// and untoggle
	snapshot, _, err = service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.ShadowingPractice,
		Completed: false,
	})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Weeks["2025-W01"].ShadowingPractice.CompletedDays)

	_, _, err = service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.ShadowingPractice,
		Day:       "not-a-date",
		Completed: true,
	})
	require.Error(t, err)
}

func TestService_ToggleCompletion_StaleRevision(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)
	ctx := context.Background()

	_, _, err := service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.VoiceJournaling,
		Completed: true,
	})
	require.NoError(t, err)

	wp, err := store.GetWeek(ctx, "2025-W01")
	require.NoError(t, err)
	stale := wp.Revision - 1

	_, _, err = service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.VoiceJournaling,
		Completed: true,
		Revision:  &stale,
	})
	require.ErrorIs(t, err, ErrStaleRevision)

	// with the fresh revision the write goes through
	fresh := wp.Revision
	_, summary, err := service.ToggleCompletion(ctx, ToggleParams{
		Activity:  roadmap.VoiceJournaling,
		Day:       "2025-01-08",
		Completed: true,
		Revision:  &fresh,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.VoiceJournalingDays)
}

func TestService_UpdateActivityInfo(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)
	ctx := context.Background()

	key := mustParseWeekKey(t, "2025-W01")
	snapshot, err := service.UpdateActivityInfo(
		ctx, key, roadmap.ShadowingPractice, "script", []byte(`"practice script"`), nil)
	require.NoError(t, err)
	assert.Equal(t, "practice script", snapshot.Weeks["2025-W01"].ShadowingPractice.Script)

	stale := int64(100)
	_, err = service.UpdateActivityInfo(
		ctx, key, roadmap.ShadowingPractice, "script", []byte(`"other"`), &stale)
	require.ErrorIs(t, err, ErrStaleRevision)

	_, err = service.UpdateActivityInfo(
		ctx, key, roadmap.ShadowingPractice, "bogus_field", []byte(`"x"`), nil)
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestService_Week(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)

	key := mustParseWeekKey(t, "2024-W52")
	wp, summary, days, err := service.Week(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, wp)

	assert.Equal(t, "2024-W52", summary.WeekKey)
	require.Len(t, days, 7)
	assert.Equal(t, "2024-12-29", days[0].Date)
	assert.Equal(t, "2025-01-04", days[6].Date)
}

func TestService_PreviousWeeksContent(t *testing.T) {
	store := NewMockRepo()
	service := newTestService(store)
	ctx := context.Background()

	week := func(s string) weekcal.WeekKey { return mustParseWeekKey(t, s) }

	setWeek := func(key weekcal.WeekKey, topics []string, script string, words ...string) {
		wp, err := service.EnsureWeek(ctx, key)
		require.NoError(t, err)
		wp.VoiceJournaling.Topics = topics
		wp.ShadowingPractice.Script = script
		for _, w := range words {
			wp.WeeklySpeakingPrompt.Words = append(wp.WeeklySpeakingPrompt.Words, WordEntry{Word: w})
		}
		_, err = store.SaveWeek(ctx, key.String(), wp)
		require.NoError(t, err)
	}

	// three consecutive weeks right before 2025-W04 all use "keen"
	setWeek(week("2025-W01"), []string{"t1"}, "week one script", "keen", "brisk")
	setWeek(week("2025-W02"), []string{"t2"}, "", "keen")
	setWeek(week("2025-W03"), nil, "week three script", "keen", "vivid")

	content, err := service.PreviousWeeksContent(ctx, week("2025-W04"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"t1", "t2"}, content.JournalingTopics)
	assert.Len(t, content.ScriptSummaries, 2)
	assert.Equal(t, []string{"keen"}, content.OverusedWords)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two three", truncateWords("one two three", 10))
	assert.Equal(t, "one two", truncateWords("one two three four", 2))
	assert.Equal(t, "", truncateWords("", 5))
}
