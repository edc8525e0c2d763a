package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

// Store is implemented by the pgx repo in production and by an in-memory
// mock in tests.
type Store interface {
	GetWeek(ctx context.Context, weekKey string) (*WeekProgress, error)
	SaveWeek(ctx context.Context, weekKey string, wp *WeekProgress) (int64, error)
	CreateWeekIfAbsent(ctx context.Context, weekKey string, wp *WeekProgress) (bool, error)
	GetAll(ctx context.Context) (*Snapshot, error)
}

var (
	_ Store = (*Repo)(nil)
	_ Store = (*repoMock)(nil)
)

// MediaCatalog picks the expressions mp3 assigned to a week.
type MediaCatalog interface {
	FileForWeek(key weekcal.WeekKey) (string, error)
}

// weeksAhead is how far into the future empty week records are pre-created,
// so the dashboard can navigate forward without hitting missing weeks.
const weeksAhead = 26

type Service struct {
	store    Store
	catalog  MediaCatalog
	location *time.Location
	now      func() time.Time
}

func NewService(store Store, catalog MediaCatalog, location *time.Location) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		location: location,
		now:      time.Now,
	}
}

func (s *Service) CurrentWeekKey() weekcal.WeekKey {
	return weekcal.ForDate(s.now(), s.location)
}

func (s *Service) today() string {
	return s.now().In(s.location).Format("2006-01-02")
}

func (s *Service) mp3ForWeek(key weekcal.WeekKey) string {
	if s.catalog == nil {
		return ""
	}
	mp3File, err := s.catalog.FileForWeek(key)
	if err != nil {
		log.Warnf("no expressions mp3 for week %s: %s", key, err)
		return ""
	}
	return mp3File
}

// EnsureWeek returns the week record, creating an empty one first when the
// week was never touched. An existing record missing its expressions mp3
// gets one assigned on the way out.
func (s *Service) EnsureWeek(ctx context.Context, key weekcal.WeekKey) (*WeekProgress, error) {
	weekKey := key.String()

	wp, err := s.store.GetWeek(ctx, weekKey)
	if errors.Is(err, ErrWeekNotFound) {
		if _, err := s.store.CreateWeekIfAbsent(ctx, weekKey, NewWeekProgress(s.mp3ForWeek(key))); err != nil {
			return nil, err
		}
		return s.store.GetWeek(ctx, weekKey)
	}
	if err != nil {
		return nil, err
	}

	if wp.WeeklyExpressions.MP3File == "" {
		if mp3File := s.mp3ForWeek(key); mp3File != "" {
			wp.WeeklyExpressions.MP3File = mp3File
			if _, err := s.store.SaveWeek(ctx, weekKey, wp); err != nil {
				return nil, err
			}
			return s.store.GetWeek(ctx, weekKey)
		}
	}

	return wp, nil
}

// EnsureFutureWeeks pre-creates empty records for the next half year of weeks.
func (s *Service) EnsureFutureWeeks(ctx context.Context, from weekcal.WeekKey) error {
	key := from
	for i := 0; i < weeksAhead; i++ {
		key = key.Next()
		if _, err := s.store.CreateWeekIfAbsent(ctx, key.String(), NewWeekProgress(s.mp3ForWeek(key))); err != nil {
			return fmt.Errorf("ensure week %s: %w", key, err)
		}
	}
	return nil
}

// LoadAll is the GET /api/progress path: make sure the current and future
// weeks exist, then return the whole snapshot plus the current week summary.
func (s *Service) LoadAll(ctx context.Context) (*Snapshot, weekcal.WeekKey, Summary, error) {
	currentKey := s.CurrentWeekKey()

	wp, err := s.EnsureWeek(ctx, currentKey)
	if err != nil {
		return nil, currentKey, Summary{}, err
	}
	if err := s.EnsureFutureWeeks(ctx, currentKey); err != nil {
		return nil, currentKey, Summary{}, err
	}

	snapshot, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, currentKey, Summary{}, err
	}

	return snapshot, currentKey, Summarize(currentKey.String(), wp), nil
}

// Week returns one week's record, summary and calendar days.
func (s *Service) Week(ctx context.Context, key weekcal.WeekKey) (*WeekProgress, Summary, []weekcal.DayEntry, error) {
	wp, err := s.EnsureWeek(ctx, key)
	if err != nil {
		return nil, Summary{}, nil, err
	}
	if err := s.EnsureFutureWeeks(ctx, s.CurrentWeekKey()); err != nil {
		return nil, Summary{}, nil, err
	}
	return wp, Summarize(key.String(), wp), key.Days(), nil
}

// ToggleParams is one completion toggle request. WeekKey and Day default to
// the current week / today. Revision, when set, must match the stored week
// revision or the write is rejected as stale.
type ToggleParams struct {
	Activity  roadmap.ActivityID
	WeekKey   *weekcal.WeekKey
	Day       string
	Completed bool
	Revision  *int64
}

func (s *Service) resolveWeekAndDay(p *ToggleParams) (weekcal.WeekKey, string, error) {
	key := s.CurrentWeekKey()
	if p.WeekKey != nil {
		key = *p.WeekKey
	}

	day := p.Day
	if day == "" {
		day = s.today()
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return key, "", fmt.Errorf("invalid day %q: %w", day, err)
	}
	return key, day, nil
}

// ToggleCompletion flips one day's completion flag and returns the full fresh
// snapshot together with the updated week summary.
func (s *Service) ToggleCompletion(ctx context.Context, p ToggleParams) (*Snapshot, Summary, error) {
	key, day, err := s.resolveWeekAndDay(&p)
	if err != nil {
		return nil, Summary{}, err
	}

	wp, err := s.EnsureWeek(ctx, key)
	if err != nil {
		return nil, Summary{}, err
	}
	if p.Revision != nil && *p.Revision != wp.Revision {
		return nil, Summary{}, fmt.Errorf("%w: have %d, want %d", ErrStaleRevision, *p.Revision, wp.Revision)
	}

	if err := wp.SetCompleted(p.Activity, day, p.Completed); err != nil {
		return nil, Summary{}, err
	}
	if _, err := s.store.SaveWeek(ctx, key.String(), wp); err != nil {
		return nil, Summary{}, err
	}

	return s.freshSnapshotAndSummary(ctx, key)
}

// UpdateActivityInfo applies one field-level update to a week's activity blob.
func (s *Service) UpdateActivityInfo(
	ctx context.Context,
	key weekcal.WeekKey,
	activity roadmap.ActivityID,
	field string,
	value []byte,
	revision *int64,
) (*Snapshot, error) {
	wp, err := s.EnsureWeek(ctx, key)
	if err != nil {
		return nil, err
	}
	if revision != nil && *revision != wp.Revision {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrStaleRevision, *revision, wp.Revision)
	}

	if err := wp.ApplyFieldUpdate(activity, field, value); err != nil {
		return nil, err
	}
	if _, err := s.store.SaveWeek(ctx, key.String(), wp); err != nil {
		return nil, err
	}

	snapshot, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// MutateWeek lets other packages (generation, TTS, podcast rotation) rewrite a
// week's record in one revision bump. The mutate callback gets the current
// record and edits it in place.
func (s *Service) MutateWeek(
	ctx context.Context,
	key weekcal.WeekKey,
	mutate func(wp *WeekProgress) error,
) (*Snapshot, error) {
	wp, err := s.EnsureWeek(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := mutate(wp); err != nil {
		return nil, err
	}
	if _, err := s.store.SaveWeek(ctx, key.String(), wp); err != nil {
		return nil, err
	}
	return s.store.GetAll(ctx)
}

func (s *Service) freshSnapshotAndSummary(ctx context.Context, key weekcal.WeekKey) (*Snapshot, Summary, error) {
	snapshot, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, Summary{}, err
	}
	wp, ok := snapshot.Weeks[key.String()]
	if !ok {
		return nil, Summary{}, ErrWeekNotFound
	}
	return snapshot, Summarize(key.String(), wp), nil
}

// PreviousContent is the anti-repetition context fed to content generation:
// what recent weeks already used, so new content does not repeat it.
type PreviousContent struct {
	JournalingTopics []string
	ScriptSummaries  []string
	Prompts          []string
	// OverusedWords are weekly-prompt words seen in 3 or more consecutive
	// recent weeks. A word from further back is allowed to come around again.
	OverusedWords []string
}

const (
	previousWeeksWindow    = 4
	consecutiveWeeksCutoff = 3
	scriptSummaryWords     = 150
)

// PreviousWeeksContent collects the last few weeks of generated content
// preceding the given week.
func (s *Service) PreviousWeeksContent(ctx context.Context, key weekcal.WeekKey) (*PreviousContent, error) {
	content := &PreviousContent{}

	wordAppearances := map[string][]int{} // word -> offsets (1 = previous week)

	prev := key
	for offset := 1; offset <= previousWeeksWindow; offset++ {
		prev = prev.Prev()

		wp, err := s.store.GetWeek(ctx, prev.String())
		if errors.Is(err, ErrWeekNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		content.JournalingTopics = append(content.JournalingTopics, wp.VoiceJournaling.Topics...)

		if script := wp.ShadowingPractice.Script; script != "" {
			content.ScriptSummaries = append(content.ScriptSummaries, truncateWords(script, scriptSummaryWords))
		}
		if prompt := wp.WeeklySpeakingPrompt.Prompt; prompt != "" {
			content.Prompts = append(content.Prompts, prompt)
		}
		for _, w := range wp.WeeklySpeakingPrompt.Words {
			wordAppearances[w.Word] = append(wordAppearances[w.Word], offset)
		}
	}

	// a word is overused when its most recent appearances form an unbroken
	// run of consecutive weeks
	for word, offsets := range wordAppearances {
		run := 1
		for i := 1; i < len(offsets); i++ {
			if offsets[i] != offsets[i-1]+1 {
				break
			}
			run++
		}
		if offsets[0] == 1 && run >= consecutiveWeeksCutoff {
			content.OverusedWords = append(content.OverusedWords, word)
		}
	}

	return content, nil
}

func truncateWords(text string, limit int) string {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] != ' ' {
			continue
		}
		count++
		if count >= limit {
			return text[:i]
		}
	}
	return text
}
