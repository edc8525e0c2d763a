package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	"github.com/jhkim-dev/speakpath/internal/telemetry/tracing"
)

const (
	DefaultBaseURL = "https://api.typecast.ai/v1"

	// DefaultVoiceID is Jennifer's voice.
	DefaultVoiceID = "tc_601944fb9089786f78c285ef"

	ModelSSFMv21 = "ssfm-v21"
	ModelSSFMv30 = "ssfm-v30"

	// paragraphPauseSeconds of silence go between paragraph chunks.
	paragraphPauseSeconds = 0.5

	// wordsPerMinute is the speaking rate used for timestamp estimates.
	wordsPerMinute = 125.0

	voicesCacheKey = "typecast::voices"
	voicesCacheTTL = 12 * time.Hour
)

var ErrAPIKeyMissing = errors.New("typecast api key not set")

// adultProfessionalNames filters the voice list down to clear adult voices
// suitable for language learning, skipping kid, elderly and game voices.
var adultProfessionalNames = map[string]struct{}{
	"Rachel": {}, "Sarah": {}, "Emily": {}, "Jessica": {}, "Michelle": {},
	"Melissa": {}, "Sophia": {}, "Olivia": {}, "Charlotte": {}, "Elizabeth": {},
	"Victoria": {}, "Kate": {}, "Lucy": {}, "Anna": {}, "Maria": {},
	"Michael": {}, "David": {}, "James": {}, "Robert": {}, "Matthew": {},
	"Andrew": {}, "Kevin": {}, "Brian": {}, "George": {}, "Daniel": {},
	"Ryan": {}, "Justin": {}, "Henry": {}, "Joshua": {}, "Jack": {}, "Dylan": {},
}

// Voice is one synthesis voice offered by the API.
type Voice struct {
	VoiceID  string   `json:"voice_id"`
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Emotions []string `json:"emotions,omitempty"`
}

// ParagraphTimestamp estimates where a paragraph starts in the combined
// audio, at an assumed speaking rate.
type ParagraphTimestamp struct {
	ParagraphIndex int     `json:"paragraph_index"`
	StartTime      float64 `json:"start_time"`
	Text           string  `json:"text"`
}

type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	redisClient *redis.Client
	metrics     *metrics.Manager
}

func NewClient(
	baseURL, apiKey string,
	httpClient *http.Client,
	redisClient *redis.Client,
	metrics *metrics.Manager,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  httpClient,
		redisClient: redisClient,
		metrics:     metrics,
	}
}

// apiVoice is the raw voice object the API returns.
type apiVoice struct {
	VoiceID   string   `json:"voice_id"`
	VoiceName string   `json:"voice_name"`
	Model     string   `json:"model"`
	Emotions  []string `json:"emotions"`
}

// GetVoices returns the filtered, alphabetically sorted voice list. The
// voice catalog barely changes, so it is cached in redis for a few hours.
// Clients hitting the endpoint with a cache-buster set forceRefresh.
func (c *Client) GetVoices(ctx context.Context, forceRefresh bool) (_ []Voice, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "typecast.getVoices")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	// try the redis cache first
	if c.redisClient != nil && !forceRefresh {
		cmd := c.redisClient.Get(ctx, voicesCacheKey)
		if cached := cmd.Val(); cached != "" {
			var voices []Voice
			if unmarshalErr := json.Unmarshal([]byte(cached), &voices); unmarshalErr == nil {
				span.SetAttributes(attribute.Bool("voices.from-cache", true))
				return voices, nil
			} else {
				log.Errorf("failed to unmarshal cached typecast voices: %s", unmarshalErr)
			}
		}
	}
	span.SetAttributes(attribute.Bool("voices.from-cache", false))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get typecast voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("typecast voices status %d: %s", resp.StatusCode, respBytes)
	}

	var raw []apiVoice
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode typecast voices: %w", err)
	}

	var voices []Voice
	for _, v := range raw {
		firstName := strings.SplitN(v.VoiceName, " ", 2)[0]
		if _, ok := adultProfessionalNames[firstName]; !ok {
			continue
		}
		voices = append(voices, Voice{
			VoiceID:  v.VoiceID,
			Name:     v.VoiceName,
			Model:    v.Model,
			Emotions: v.Emotions,
		})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })

	if c.redisClient != nil {
		if voicesJson, err := json.Marshal(voices); err == nil {
			if err := c.redisClient.Set(ctx, voicesCacheKey, voicesJson, voicesCacheTTL).Err(); err != nil {
				log.Errorf("failed to cache typecast voices in redis: %s", err)
			}
		}
	}

	return voices, nil
}

// normalizeModel validates the model name, falling back to ssfm-v21.
func normalizeModel(model string) string {
	switch strings.ToLower(model) {
	case ModelSSFMv21, ModelSSFMv30:
		return strings.ToLower(model)
	default:
		if model != "" {
			log.Warnf("invalid typecast model %q, defaulting to %s", model, ModelSSFMv21)
		}
		return ModelSSFMv21
	}
}

// SynthesizeParams describe one synthesis job.
type SynthesizeParams struct {
	Text    string
	VoiceID string
	Model   string
	// Tempo is the audio speed, 0.5 to 2.0. Zero means normal speed.
	Tempo float64
}

type ttsRequest struct {
	VoiceID  string    `json:"voice_id"`
	Text     string    `json:"text"`
	Model    string    `json:"model"`
	Language string    `json:"language"`
	Prompt   ttsPrompt `json:"prompt"`
	Output   ttsOutput `json:"output"`
}

type ttsPrompt struct {
	EmotionPreset    string `json:"emotion_preset"`
	EmotionIntensity int    `json:"emotion_intensity"`
}

type ttsOutput struct {
	Volume      int     `json:"volume"`
	AudioPitch  int     `json:"audio_pitch"`
	AudioTempo  float64 `json:"audio_tempo"`
	AudioFormat string  `json:"audio_format"`
}

// synthesizeChunk sends one chunk to the API and returns the WAV bytes.
func (c *Client) synthesizeChunk(ctx context.Context, text, voiceID, model string, tempo float64) ([]byte, error) {
	payload := ttsRequest{
		VoiceID:  voiceID,
		Text:     text,
		Model:    model,
		Language: "eng",
		Prompt: ttsPrompt{
			EmotionPreset:    "normal",
			EmotionIntensity: 1,
		},
		Output: ttsOutput{
			Volume:      100,
			AudioPitch:  0,
			AudioTempo:  tempo,
			AudioFormat: "wav",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("typecast text-to-speech: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read typecast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("typecast api error (%d): %s", resp.StatusCode, respBytes)
	}

	if c.metrics != nil {
		c.metrics.CounterTTSChunks.Inc()
	}
	return respBytes, nil
}

// Synthesize converts text to one WAV payload. Texts with paragraphs are
// chunked per paragraph and rejoined with short pauses, long paragraph-less
// texts are chunked on sentence boundaries with no pauses. Paragraph start
// timestamps are estimated from word counts.
func (c *Client) Synthesize(ctx context.Context, params SynthesizeParams) (_ []byte, _ []ParagraphTimestamp, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "typecast.synthesize")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.apiKey == "" {
		return nil, nil, ErrAPIKeyMissing
	}
	if strings.TrimSpace(params.Text) == "" {
		return nil, nil, errors.New("text empty")
	}

	voiceID := params.VoiceID
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	model := normalizeModel(params.Model)
	tempo := params.Tempo
	if tempo <= 0 {
		tempo = 1.0
	}

	started := time.Now()
	if c.metrics != nil {
		c.metrics.CounterTTSRequests.Inc()
		defer func() {
			c.metrics.HistTTSSynthesisDuration.Observe(time.Since(started).Seconds())
		}()
	}

	hasParagraphs := HasParagraphs(params.Text)
	var chunks []string
	if hasParagraphs {
		chunks = SplitParagraphs(params.Text, maxChunkChars)
	} else {
		chunks = SplitSentences(params.Text, maxChunkChars)
	}
	span.SetAttributes(attribute.Int("tts.chunks", len(chunks)))

	pause := 0.0
	if hasParagraphs {
		pause = paragraphPauseSeconds
	}

	var (
		parts       [][]byte
		timestamps  []ParagraphTimestamp
		currentTime float64
	)
	for i, chunk := range chunks {
		timestamps = append(timestamps, ParagraphTimestamp{
			ParagraphIndex: i,
			StartTime:      currentTime,
			Text:           truncateText(chunk, 100),
		})

		audio, synthErr := c.synthesizeChunk(ctx, chunk, voiceID, model, tempo)
		if synthErr != nil {
			return nil, nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), synthErr)
		}
		parts = append(parts, audio)

		wordCount := len(strings.Fields(chunk))
		currentTime += (float64(wordCount) / wordsPerMinute) * 60.0 / tempo
		if i < len(chunks)-1 {
			currentTime += pause
		}
	}

	if len(parts) == 1 {
		return parts[0], timestamps, nil
	}

	combined, err := concatWAV(parts, pause)
	if err != nil {
		return nil, nil, err
	}
	return combined, timestamps, nil
}

func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
