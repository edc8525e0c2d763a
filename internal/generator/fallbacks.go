package generator

import (
	"math/rand"

	"github.com/jhkim-dev/speakpath/internal/progress"
)

// Fallback content used when the API is unavailable during initial
// generation. Regeneration never falls back silently, the caller gets the
// error instead.

func fallbackJournalingTopics() []string {
	return []string{
		"Describe your ideal weekend",
		"Talk about a recent challenge you overcame",
		"What motivates you to keep learning?",
		"Share a memorable experience from the past year",
		"Discuss a book, movie, or article that impacted you",
		"What are you grateful for today?",
		"Describe your goals for the next month",
	}
}

func fallbackPromptWords() []progress.WordEntry {
	return []progress.WordEntry{
		{Word: "prioritize", PartOfSpeech: "verb", Hint: "Decide what to focus on first"},
		{Word: "stakeholder", PartOfSpeech: "noun", Hint: "Someone with interest in the product"},
		{Word: "metric", PartOfSpeech: "noun", Hint: "A way to measure success"},
		{Word: "iterate", PartOfSpeech: "verb", Hint: "Improve through repeated cycles"},
		{Word: "align", PartOfSpeech: "verb", Hint: "Get everyone on the same page"},
	}
}

const fallbackShadowingScript = `Welcome to today's shadowing practice. This script is designed to help you improve your English speaking skills through repetition and imitation.

Shadowing is a powerful technique where you listen to native speakers and try to imitate their rhythm, intonation, and pronunciation. Today, we'll practice with a script about daily routines and productivity.

Let's begin. First, let's talk about morning routines. Many successful people start their day with a clear plan. They wake up early, exercise, and set intentions for the day ahead. This helps them stay focused and motivated throughout the day.

Next, let's discuss the importance of communication. Good communication skills are essential in both personal and professional settings. When we express ourselves clearly, we build stronger relationships and achieve better results.

Finally, remember that practice makes perfect. The more you speak English, the more confident you'll become. Keep practicing daily, and you'll see significant improvement over time.`

func fallbackWeeklyPrompt() string {
	prompts := []string{
		"Imagine you're a product manager launching a new feature. Walk through how you would gather user feedback and decide whether to iterate or pivot.",
		"Explain how you would balance user needs with business goals when making product decisions. Use a specific example to illustrate your thinking.",
		"Describe your approach to prioritizing features when resources are limited. What framework would you use and why?",
		"Talk about a product you use daily and analyze what makes it successful from a product management perspective.",
		"Imagine you're explaining a complex product decision to stakeholders with different priorities. How would you structure your explanation?",
	}
	return prompts[rand.Intn(len(prompts))]
}
