// Package roadmap holds the static Phase 1 roadmap structure and the closed
// set of practice activities. Everything that dispatches per-activity behavior
// switches over ActivityID: unknown ids are rejected up front instead of
// falling through to a default card.
package roadmap

import (
	"fmt"
)

// ActivityID enumerates the practice activities. The set is closed: adding an
// activity means touching every switch over this type.
type ActivityID string

const (
	WeeklyExpressions    ActivityID = "weekly_expressions"
	VoiceJournaling      ActivityID = "voice_journaling"
	ShadowingPractice    ActivityID = "shadowing_practice"
	PodcastShadowing     ActivityID = "podcast_shadowing"
	WeeklySpeakingPrompt ActivityID = "weekly_speaking_prompt"
)

// All lists every activity id, in dashboard order.
func All() []ActivityID {
	return []ActivityID{
		WeeklyExpressions,
		VoiceJournaling,
		ShadowingPractice,
		PodcastShadowing,
		WeeklySpeakingPrompt,
	}
}

// ParseActivityID validates a raw activity id from a request.
func ParseActivityID(s string) (ActivityID, error) {
	id := ActivityID(s)
	switch id {
	case WeeklyExpressions, VoiceJournaling, ShadowingPractice,
		PodcastShadowing, WeeklySpeakingPrompt:
		return id, nil
	}
	return "", fmt.Errorf("unknown activity id: %q", s)
}

type Activity struct {
	ID           ActivityID `json:"id"`
	Title        string     `json:"title"`
	Type         string     `json:"type"`
	TargetLength string     `json:"target_length,omitempty"`
}

type Phase struct {
	Phase      int        `json:"phase"`
	Title      string     `json:"title"`
	Duration   string     `json:"duration"`
	Objective  string     `json:"objective"`
	Activities []Activity `json:"activities"`
}

// Phase1 returns the roadmap structure served at /api/roadmap.
// Phase 1 covers daily speaking habits for months 0-6.
func Phase1() Phase {
	return Phase{
		Phase:     1,
		Title:     "Daily Speaking Habits",
		Duration:  "0-6 months",
		Objective: "Build consistency, real-time speaking flow, and natural delivery.",
		Activities: []Activity{
			{ID: WeeklyExpressions, Title: "Weekly expressions", Type: "daily"},
			{ID: VoiceJournaling, Title: "Voice Journaling", Type: "daily", TargetLength: "2-3 mins"},
			{ID: ShadowingPractice, Title: "Shadowing Practice", Type: "daily"},
			{ID: PodcastShadowing, Title: "Podcast Shadowing", Type: "daily"},
			{ID: WeeklySpeakingPrompt, Title: "Weekly Speaking Prompt", Type: "daily", TargetLength: "3-5 mins"},
		},
	}
}
