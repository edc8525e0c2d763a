package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
)

const (
	modelFast = "gpt-4o-mini"
	// gpt-4o complies with the script length requirement far better
	modelLong = "gpt-4o"

	scriptMaxTokens = 5000
	promptMaxTokens = 250

	// scripts under this word count get retried
	minScriptWords = 800
	scriptRetries  = 2

	// how many previous topics go into the avoid list
	avoidTopicsLimit = 20
)

var ErrNotGeneratable = errors.New("activity content is not generated here")

type Service struct {
	chat     ChatClient
	progress *progress.Service
	metrics  *metrics.Manager
}

func NewService(chat ChatClient, progressService *progress.Service, metrics *metrics.Manager) *Service {
	return &Service{
		chat:     chat,
		progress: progressService,
		metrics:  metrics,
	}
}

type GenerateParams struct {
	WeekKey    weekcal.WeekKey
	Activity   roadmap.ActivityID
	Regenerate bool
}

// Generate produces the week's content for one activity and saves it on the
// week record. Regeneration feeds the week's current content into the avoid
// list so the replacement actually differs.
func (s *Service) Generate(ctx context.Context, params GenerateParams) (*progress.WeekProgress, error) {
	prev, err := s.progress.PreviousWeeksContent(ctx, params.WeekKey)
	if err != nil {
		return nil, fmt.Errorf("load previous weeks content: %w", err)
	}
	wp, err := s.progress.EnsureWeek(ctx, params.WeekKey)
	if err != nil {
		return nil, fmt.Errorf("load week %s: %w", params.WeekKey, err)
	}

	var mutate func(wp *progress.WeekProgress) error
	switch params.Activity {
	case roadmap.VoiceJournaling:
		avoid := prev.JournalingTopics
		if params.Regenerate {
			avoid = append(avoid, wp.VoiceJournaling.Topics...)
		}
		topics := s.journalingTopics(ctx, avoid, params.Regenerate)
		mutate = func(wp *progress.WeekProgress) error {
			wp.VoiceJournaling.Topics = topics
			return nil
		}

	case roadmap.WeeklySpeakingPrompt:
		avoidPrompts := prev.Prompts
		if params.Regenerate && wp.WeeklySpeakingPrompt.Prompt != "" {
			avoidPrompts = append([]string{wp.WeeklySpeakingPrompt.Prompt}, avoidPrompts...)
		}
		prompt := s.weeklyPrompt(ctx, avoidPrompts, params.Regenerate)

		avoidWords := prev.OverusedWords
		if params.Regenerate {
			for _, w := range wp.WeeklySpeakingPrompt.Words {
				avoidWords = append(avoidWords, w.Word)
			}
		}
		words := s.promptWords(ctx, avoidWords, params.Regenerate)

		mutate = func(wp *progress.WeekProgress) error {
			wp.WeeklySpeakingPrompt.Prompt = prompt
			wp.WeeklySpeakingPrompt.Words = words
			wp.WeeklySpeakingPrompt.AudioURL = ""
			return nil
		}

	case roadmap.ShadowingPractice:
		script, err := s.shadowingScript(ctx, prev.ScriptSummaries, params.Regenerate, wp.ShadowingPractice.Script)
		if err != nil {
			return nil, err
		}
		mutate = func(wp *progress.WeekProgress) error {
			wp.ShadowingPractice.Script = script
			// stale audio no longer matches the script
			wp.ShadowingPractice.AudioURL = ""
			wp.ShadowingPractice.AudioName = ""
			return nil
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrNotGeneratable, params.Activity)
	}

	if _, err := s.progress.MutateWeek(ctx, params.WeekKey, mutate); err != nil {
		return nil, fmt.Errorf("save generated content: %w", err)
	}
	if s.metrics != nil {
		s.metrics.CounterContentGenerations.WithLabelValues(string(params.Activity)).Inc()
	}

	updated, err := s.progress.EnsureWeek(ctx, params.WeekKey)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GenerateAll runs content generation for every generated activity of the
// week. Audio stays a separate explicit call.
func (s *Service) GenerateAll(ctx context.Context, key weekcal.WeekKey, regenerate bool) (*progress.WeekProgress, error) {
	generated := []roadmap.ActivityID{
		roadmap.VoiceJournaling,
		roadmap.ShadowingPractice,
		roadmap.WeeklySpeakingPrompt,
	}

	var wp *progress.WeekProgress
	for _, activity := range generated {
		var err error
		wp, err = s.Generate(ctx, GenerateParams{
			WeekKey:    key,
			Activity:   activity,
			Regenerate: regenerate,
		})
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", activity, err)
		}
	}
	return wp, nil
}

type topicsPayload struct {
	Topics []string `json:"topics"`
}

func (s *Service) journalingTopics(ctx context.Context, avoid []string, regenerate bool) []string {
	userPrompt := journalingTopicsUserPrompt
	if len(avoid) > 0 {
		if len(avoid) > avoidTopicsLimit {
			avoid = avoid[:avoidTopicsLimit]
		}
		userPrompt += fmt.Sprintf(
			"\n\nIMPORTANT: Avoid these topics from recent weeks: %s. Generate fresh, different topics.",
			strings.Join(avoid, ", "),
		)
	}
	if regenerate {
		userPrompt += regenerationNote
	}

	content, err := s.chat.ChatCompletion(ctx, ChatParams{
		Model: modelFast,
		Messages: []ChatMessage{
			{Role: "system", Content: journalingTopicsSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:  temperature(0.7, regenerate),
		JSONResponse: true,
	})
	if err != nil {
		log.Errorf("generate journaling topics: %s", err)
		return fallbackJournalingTopics()
	}

	var payload topicsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || len(payload.Topics) != 7 {
		log.Warnf("journaling topics response unusable (%d topics, err: %v), using fallback", len(payload.Topics), err)
		return fallbackJournalingTopics()
	}
	return payload.Topics
}

type wordsPayload struct {
	Words []progress.WordEntry `json:"words"`
}

func (s *Service) promptWords(ctx context.Context, avoidWords []string, regenerate bool) []progress.WordEntry {
	userPrompt := promptWordsUserPrompt
	if len(avoidWords) > 0 {
		userPrompt += fmt.Sprintf(
			"\n\nIMPORTANT: Avoid these words that appeared in 3+ consecutive recent weeks: %s. "+
				"It's fine if a word from 5+ weeks ago comes back (shows importance), but avoid words that appeared week after week recently.",
			strings.Join(avoidWords, ", "),
		)
	}
	if regenerate {
		userPrompt += regenerationNote
	}

	content, err := s.chat.ChatCompletion(ctx, ChatParams{
		Model: modelFast,
		Messages: []ChatMessage{
			{Role: "system", Content: backgroundContext + "\n\n" + promptWordsSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:  temperature(0.7, regenerate),
		JSONResponse: true,
	})
	if err != nil {
		log.Errorf("generate prompt words: %s", err)
		return fallbackPromptWords()
	}

	var payload wordsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || len(payload.Words) == 0 {
		log.Warnf("prompt words response unusable, using fallback: %v", err)
		return fallbackPromptWords()
	}
	return payload.Words
}

func (s *Service) shadowingScript(ctx context.Context, summaries []string, regenerate bool, currentScript string) (string, error) {
	basePrompt := shadowingScriptUserPrompt
	if len(summaries) > 0 {
		shortened := summaries
		if len(shortened) > 3 {
			shortened = shortened[:3]
		}
		basePrompt += fmt.Sprintf(
			"\n\nIMPORTANT: Choose a DIFFERENT topic from previous weeks to avoid repetition. Recent topics: %s",
			strings.Join(shortened, ", "),
		)
	}
	if regenerate {
		note := regenerationNote
		if currentScript != "" {
			note = fmt.Sprintf(
				"\n\nCRITICAL: This is a REGENERATION request. The current script for this week starts with:\n%q\n\n"+
					"You MUST generate a COMPLETELY DIFFERENT script with a different topic, opening, structure and content.",
				head(currentScript, 200),
			)
		}
		basePrompt += note
	}

	var script string
	for attempt := 0; attempt <= scriptRetries; attempt++ {
		userPrompt := basePrompt
		if attempt > 0 {
			userPrompt += "\n\nNOTE: The previous response was too short. Generate the COMPLETE 875-1,250 word script. " +
				"Do not summarize - write every word that would be spoken in a 7-10 minute talk."
		}

		content, err := s.chat.ChatCompletion(ctx, ChatParams{
			Model: modelLong,
			Messages: []ChatMessage{
				{Role: "system", Content: backgroundContext + "\n\n" + shadowingScriptSystemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: temperature(0.8, regenerate),
			MaxTokens:   scriptMaxTokens,
		})
		if err != nil {
			if regenerate {
				return "", fmt.Errorf("regenerate shadowing script: %w", err)
			}
			log.Errorf("generate shadowing script: %s", err)
			return fallbackShadowingScript, nil
		}

		script = strings.TrimSpace(content)

		// a regeneration that comes back identical to the current script
		// is useless, push back
		if regenerate && currentScript != "" &&
			strings.TrimSpace(head(script, 100)) == strings.TrimSpace(head(currentScript, 100)) {
			if attempt < scriptRetries {
				log.Warn("regenerated script matches the current one, retrying")
				continue
			}
			return "", errors.New("regeneration returned the current script again")
		}

		wordCount := len(strings.Fields(script))
		if wordCount >= minScriptWords || attempt >= scriptRetries {
			if wordCount < minScriptWords {
				log.Warnf("shadowing script is %d words, target is 875-1250", wordCount)
			}
			return script, nil
		}
		log.Warnf("shadowing script too short (%d words), retrying", wordCount)
	}

	return script, nil
}

func (s *Service) weeklyPrompt(ctx context.Context, avoidPrompts []string, regenerate bool) string {
	userPrompt := weeklyPromptUserPrompt
	if len(avoidPrompts) > 0 {
		shortened := make([]string, 0, 3)
		for _, p := range avoidPrompts {
			shortened = append(shortened, head(p, 80))
			if len(shortened) == 3 {
				break
			}
		}
		userPrompt += fmt.Sprintf(
			"\n\nIMPORTANT: Create a DIFFERENT prompt from previous weeks. Previous prompts: %s. "+
				"Choose a new PM topic or approach that hasn't been covered recently.",
			strings.Join(shortened, ", "),
		)
	}
	if regenerate {
		userPrompt += regenerationNote
	}

	content, err := s.chat.ChatCompletion(ctx, ChatParams{
		Model: modelFast,
		Messages: []ChatMessage{
			{Role: "system", Content: backgroundContext + "\n\n" + weeklyPromptSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature(0.8, regenerate),
		MaxTokens:   promptMaxTokens,
	})
	if err != nil {
		log.Errorf("generate weekly prompt: %s", err)
		return fallbackWeeklyPrompt()
	}
	return strings.TrimSpace(content)
}

func temperature(base float64, regenerate bool) float64 {
	if regenerate {
		return 0.9
	}
	return base
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
