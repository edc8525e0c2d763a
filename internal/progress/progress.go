// Package progress owns the per-week activity progress records: the backend
// side of every checkbox, note, script and generated-audio reference on the
// dashboard. Clients never merge: every mutation returns a full fresh
// snapshot and the client replaces its copy wholesale.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
)

var (
	ErrWeekNotFound  = errors.New("week not found")
	ErrStaleRevision = errors.New("stale week revision")
	ErrUnknownField  = errors.New("unknown activity field")
)

// WordEntry is one generated practice word with usage hints.
type WordEntry struct {
	Word         string `json:"word"`
	PartOfSpeech string `json:"part_of_speech,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

type ExpressionsProgress struct {
	CompletedDays []string          `json:"completed_days"`
	MP3File       string            `json:"mp3_file"`
	Notes         map[string]string `json:"notes"` // day (ISO date) -> note text
	PlaybackSpeed float64           `json:"playback_speed,omitempty"`
}

type JournalingProgress struct {
	CompletedDays []string `json:"completed_days"`
	Topics        []string `json:"topics"` // 7 generated topics, one per day
}

type ShadowingProgress struct {
	CompletedDays []string `json:"completed_days"`
	AudioName     string   `json:"audio_name"`
	Script        string   `json:"script"`
	AudioURL      string   `json:"audio_url"`
	VoiceID       string   `json:"voice_id,omitempty"`
	VoiceName     string   `json:"voice_name,omitempty"`
	Model         string   `json:"model,omitempty"`
	AudioSpeed    float64  `json:"audio_speed,omitempty"`
}

type PodcastProgress struct {
	CompletedDays  []string `json:"completed_days"`
	EpisodeName    string   `json:"episode_name"`
	ChapterNames   []string `json:"chapter_names"`
	TranscriptPath string   `json:"transcript_path"`
	AudioURL       string   `json:"audio_url,omitempty"`
	VoiceID        string   `json:"voice_id,omitempty"`
}

type PromptProgress struct {
	CompletedDays []string    `json:"completed_days"`
	Prompt        string      `json:"prompt"`
	Words         []WordEntry `json:"words"` // 5 generated words
	AudioURL      string      `json:"audio_url,omitempty"`
}

// WeekProgress is the full progress record of one week. Revision is the
// monotonic generation stamp used to reject writes based on a stale snapshot.
type WeekProgress struct {
	WeeklyExpressions    ExpressionsProgress `json:"weekly_expressions"`
	VoiceJournaling      JournalingProgress  `json:"voice_journaling"`
	ShadowingPractice    ShadowingProgress   `json:"shadowing_practice"`
	PodcastShadowing     PodcastProgress     `json:"podcast_shadowing"`
	WeeklySpeakingPrompt PromptProgress      `json:"weekly_speaking_prompt"`
	Revision             int64               `json:"revision"`
}

// Snapshot is the whole progress state returned to the dashboard.
type Snapshot struct {
	LastUpdated *time.Time               `json:"last_updated"`
	Weeks       map[string]*WeekProgress `json:"weeks"`
}

// Summary counts, per activity, the days completed in one week.
type Summary struct {
	WeekKey                  string `json:"week_key"`
	WeeklyExpressionsDays    int    `json:"weekly_expressions_days"`
	VoiceJournalingDays      int    `json:"voice_journaling_days"`
	ShadowingPracticeDays    int    `json:"shadowing_practice_days"`
	PodcastShadowingDays     int    `json:"podcast_shadowing_days"`
	WeeklySpeakingPromptDays int    `json:"weekly_speaking_prompt_days"`
	TotalActivities          int    `json:"total_activities"`
	CompletedActivities      int    `json:"completed_activities"`
}

// NewWeekProgress returns the empty record for a fresh week, with the
// expressions mp3 pre-assigned.
func NewWeekProgress(mp3File string) *WeekProgress {
	return &WeekProgress{
		WeeklyExpressions: ExpressionsProgress{
			CompletedDays: []string{},
			MP3File:       mp3File,
			Notes:         map[string]string{},
		},
		VoiceJournaling: JournalingProgress{
			CompletedDays: []string{},
			Topics:        []string{},
		},
		ShadowingPractice: ShadowingProgress{
			CompletedDays: []string{},
		},
		PodcastShadowing: PodcastProgress{
			CompletedDays: []string{},
			ChapterNames:  []string{},
		},
		WeeklySpeakingPrompt: PromptProgress{
			CompletedDays: []string{},
			Words:         []WordEntry{},
		},
	}
}

func (wp *WeekProgress) completedDays(activity roadmap.ActivityID) *[]string {
	switch activity {
	case roadmap.WeeklyExpressions:
		return &wp.WeeklyExpressions.CompletedDays
	case roadmap.VoiceJournaling:
		return &wp.VoiceJournaling.CompletedDays
	case roadmap.ShadowingPractice:
		return &wp.ShadowingPractice.CompletedDays
	case roadmap.PodcastShadowing:
		return &wp.PodcastShadowing.CompletedDays
	case roadmap.WeeklySpeakingPrompt:
		return &wp.WeeklySpeakingPrompt.CompletedDays
	}
	return nil
}

// SetCompleted marks or unmarks one day of one activity. Marking an already
// marked day (or unmarking an unmarked one) changes nothing.
func (wp *WeekProgress) SetCompleted(activity roadmap.ActivityID, day string, completed bool) error {
	days := wp.completedDays(activity)
	if days == nil {
		return fmt.Errorf("unknown activity id: %q", activity)
	}

	idx := -1
	for i, d := range *days {
		if d == day {
			idx = i
			break
		}
	}

	switch {
	case completed && idx < 0:
		*days = append(*days, day)
	case !completed && idx >= 0:
		*days = append((*days)[:idx], (*days)[idx+1:]...)
	}
	return nil
}

// CompletedCount returns how many days of an activity are done.
func (wp *WeekProgress) CompletedCount(activity roadmap.ActivityID) int {
	days := wp.completedDays(activity)
	if days == nil {
		return 0
	}
	return len(*days)
}

// ApplyFieldUpdate sets one activity-specific field from a raw JSON value.
// The allowed fields form a closed set per activity; anything else is an error
// and nothing is partially applied.
func (wp *WeekProgress) ApplyFieldUpdate(activity roadmap.ActivityID, field string, value json.RawMessage) error {
	unmarshal := func(dst any) error {
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("invalid value for field %q: %w", field, err)
		}
		return nil
	}

	switch activity {
	case roadmap.WeeklyExpressions:
		switch field {
		case "notes":
			notes := map[string]string{}
			if err := unmarshal(&notes); err != nil {
				return err
			}
			if wp.WeeklyExpressions.Notes == nil {
				wp.WeeklyExpressions.Notes = map[string]string{}
			}
			for day, note := range notes {
				if note == "" {
					delete(wp.WeeklyExpressions.Notes, day)
					continue
				}
				wp.WeeklyExpressions.Notes[day] = note
			}
			return nil
		case "mp3_file":
			return unmarshal(&wp.WeeklyExpressions.MP3File)
		case "playback_speed":
			return unmarshal(&wp.WeeklyExpressions.PlaybackSpeed)
		}

	case roadmap.VoiceJournaling:
		if field == "topics" {
			return unmarshal(&wp.VoiceJournaling.Topics)
		}

	case roadmap.ShadowingPractice:
		switch field {
		case "audio_name":
			return unmarshal(&wp.ShadowingPractice.AudioName)
		case "script":
			return unmarshal(&wp.ShadowingPractice.Script)
		case "audio_url":
			return unmarshal(&wp.ShadowingPractice.AudioURL)
		case "audio_speed":
			return unmarshal(&wp.ShadowingPractice.AudioSpeed)
		}

	case roadmap.PodcastShadowing:
		switch field {
		case "episode_name":
			return unmarshal(&wp.PodcastShadowing.EpisodeName)
		case "chapter_names":
			return unmarshal(&wp.PodcastShadowing.ChapterNames)
		case "transcript_path":
			return unmarshal(&wp.PodcastShadowing.TranscriptPath)
		}

	case roadmap.WeeklySpeakingPrompt:
		switch field {
		case "prompt":
			return unmarshal(&wp.WeeklySpeakingPrompt.Prompt)
		case "words":
			return unmarshal(&wp.WeeklySpeakingPrompt.Words)
		}

	default:
		return fmt.Errorf("unknown activity id: %q", activity)
	}

	return fmt.Errorf("%w: %q for activity %q", ErrUnknownField, field, activity)
}

// Summarize builds the weekly summary of one week's record.
func Summarize(weekKey string, wp *WeekProgress) Summary {
	s := Summary{
		WeekKey:                  weekKey,
		WeeklyExpressionsDays:    wp.CompletedCount(roadmap.WeeklyExpressions),
		VoiceJournalingDays:      wp.CompletedCount(roadmap.VoiceJournaling),
		ShadowingPracticeDays:    wp.CompletedCount(roadmap.ShadowingPractice),
		PodcastShadowingDays:     wp.CompletedCount(roadmap.PodcastShadowing),
		WeeklySpeakingPromptDays: wp.CompletedCount(roadmap.WeeklySpeakingPrompt),
		TotalActivities:          len(roadmap.All()),
	}
	for _, days := range []int{
		s.WeeklyExpressionsDays,
		s.VoiceJournalingDays,
		s.ShadowingPracticeDays,
		s.PodcastShadowingDays,
		s.WeeklySpeakingPromptDays,
	} {
		if days > 0 {
			s.CompletedActivities++
		}
	}
	return s
}
