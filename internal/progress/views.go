package progress

import (
	"fmt"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

// DayCheckbox is one day cell on an activity card.
type DayCheckbox struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Note      string `json:"note,omitempty"`
}

// ActivityCard is the per-activity view model for one week.
type ActivityCard struct {
	Activity       roadmap.ActivityID `json:"activity"`
	Title          string             `json:"title"`
	Days           []DayCheckbox      `json:"days"`
	CompletedCount int                `json:"completed_count"`

	// content fields, populated per activity
	MP3File       string      `json:"mp3_file,omitempty"`
	PlaybackSpeed float64     `json:"playback_speed,omitempty"`
	Topics        []string    `json:"topics,omitempty"`
	Script        string      `json:"script,omitempty"`
	AudioName     string      `json:"audio_name,omitempty"`
	AudioURL      string      `json:"audio_url,omitempty"`
	AudioSpeed    float64     `json:"audio_speed,omitempty"`
	EpisodeName   string      `json:"episode_name,omitempty"`
	ChapterNames  []string    `json:"chapter_names,omitempty"`
	Prompt        string      `json:"prompt,omitempty"`
	Words         []WordEntry `json:"words,omitempty"`
}

// WeekCards is the full card view for one week.
type WeekCards struct {
	WeekKey        string         `json:"week_key"`
	DateRangeLabel string         `json:"date_range_label"`
	Cards          []ActivityCard `json:"cards"`
}

func dayCheckboxes(days []weekcal.DayEntry, completed []string, notes map[string]string) []DayCheckbox {
	done := make(map[string]bool, len(completed))
	for _, d := range completed {
		done[d] = true
	}

	boxes := make([]DayCheckbox, 0, len(days))
	for _, day := range days {
		box := DayCheckbox{
			Date:      day.Date,
			Label:     day.Label,
			Completed: done[day.Date],
		}
		if notes != nil {
			box.Note = notes[day.Date]
		}
		boxes = append(boxes, box)
	}
	return boxes
}

func renderCard(activity roadmap.ActivityID, wp *WeekProgress, days []weekcal.DayEntry) (ActivityCard, error) {
	card := ActivityCard{
		Activity:       activity,
		CompletedCount: wp.CompletedCount(activity),
	}

	switch activity {
	case roadmap.WeeklyExpressions:
		p := wp.WeeklyExpressions
		card.Title = "Weekly Expressions"
		card.Days = dayCheckboxes(days, p.CompletedDays, p.Notes)
		card.MP3File = p.MP3File
		card.PlaybackSpeed = p.PlaybackSpeed
	case roadmap.VoiceJournaling:
		p := wp.VoiceJournaling
		card.Title = "Voice Journaling"
		card.Days = dayCheckboxes(days, p.CompletedDays, nil)
		card.Topics = p.Topics
	case roadmap.ShadowingPractice:
		p := wp.ShadowingPractice
		card.Title = "Shadowing Practice"
		card.Days = dayCheckboxes(days, p.CompletedDays, nil)
		card.Script = p.Script
		card.AudioName = p.AudioName
		card.AudioURL = p.AudioURL
		card.AudioSpeed = p.AudioSpeed
	case roadmap.PodcastShadowing:
		p := wp.PodcastShadowing
		card.Title = "Podcast Shadowing"
		card.Days = dayCheckboxes(days, p.CompletedDays, nil)
		card.EpisodeName = p.EpisodeName
		card.ChapterNames = p.ChapterNames
		card.AudioURL = p.AudioURL
	case roadmap.WeeklySpeakingPrompt:
		p := wp.WeeklySpeakingPrompt
		card.Title = "Weekly Speaking Prompt"
		card.Days = dayCheckboxes(days, p.CompletedDays, nil)
		card.Prompt = p.Prompt
		card.Words = p.Words
		card.AudioURL = p.AudioURL
	default:
		return ActivityCard{}, fmt.Errorf("unknown activity: %s", activity)
	}

	return card, nil
}

// RenderWeekCards builds the card view for one week's record.
func RenderWeekCards(key weekcal.WeekKey, wp *WeekProgress) (*WeekCards, error) {
	days := key.Days()
	view := &WeekCards{
		WeekKey:        key.String(),
		DateRangeLabel: key.DateRangeLabel(),
	}

	for _, activity := range roadmap.All() {
		card, err := renderCard(activity, wp, days)
		if err != nil {
			return nil, err
		}
		view.Cards = append(view.Cards, card)
	}
	return view, nil
}
