package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

// BlobStore keeps generated audio on disk, same contract as the
// recordings store.
type BlobStore interface {
	Save(ctx context.Context, activity, weekKey, clientFilename string, r io.Reader) (relPath string, size int64, err error)
	Open(ctx context.Context, relPath string) (io.ReadSeekCloser, error)
}

type Handler struct {
	client   *Client
	blobs    BlobStore
	progress *progress.Service
}

func NewHandler(client *Client, blobs BlobStore, progressService *progress.Service) *Handler {
	return &Handler{
		client:   client,
		blobs:    blobs,
		progress: progressService,
	}
}

type voicesResponse struct {
	Success bool    `json:"success"`
	Voices  []Voice `json:"voices"`
	Total   int     `json:"total"`
}

func (handler *Handler) HandleVoices(w http.ResponseWriter, r *http.Request) {
	// a ?t= cache-buster forces a refetch from the API
	forceRefresh := r.URL.Query().Get("t") != ""

	voices, err := handler.client.GetVoices(r.Context(), forceRefresh)
	if err != nil {
		handler.writeTTSError(w, err)
		return
	}
	if voices == nil {
		voices = []Voice{}
	}

	pkg.WriteJSONResponse(w, http.StatusOK, voicesResponse{
		Success: true,
		Voices:  voices,
		Total:   len(voices),
	})
}

type synthesizeRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"`
	Model   string  `json:"model"`
	Speed   float64 `json:"speed"`
}

// HandleGenerateAudioSingle synthesizes a one-off text and streams the WAV
// back without persisting it.
func (handler *Handler) HandleGenerateAudioSingle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warnf("generate audio single, unmarshal request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Text == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	audio, _, err := handler.client.Synthesize(r.Context(), SynthesizeParams{
		Text:    req.Text,
		VoiceID: req.VoiceID,
		Model:   req.Model,
		Tempo:   req.Speed,
	})
	if err != nil {
		handler.writeTTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("Content-Disposition", `inline; filename="speech.wav"`)
	if _, err := w.Write(audio); err != nil {
		log.Errorf("generate audio single, write response: %s", err)
	}
}

type weeklyAudioRequest struct {
	WeekKey string  `json:"week_key"`
	VoiceID string  `json:"voice_id"`
	Model   string  `json:"model"`
	Speed   float64 `json:"speed"`
}

type weeklyAudioResponse struct {
	Success    bool                 `json:"success"`
	WeekKey    string               `json:"week_key"`
	AudioURL   string               `json:"audio_url"`
	SizeBytes  int64                `json:"size_bytes"`
	Timestamps []ParagraphTimestamp `json:"timestamps,omitempty"`
}

func (handler *Handler) resolveWeekKey(raw string) (weekcal.WeekKey, error) {
	if raw == "" {
		return handler.progress.CurrentWeekKey(), nil
	}
	return weekcal.Parse(raw)
}

// HandleGenerateWeeklyPromptAudio synthesizes the week's speaking prompt,
// stores the WAV and points the week record at it.
func (handler *Handler) HandleGenerateWeeklyPromptAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req weeklyAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.progress.EnsureWeek(r.Context(), key)
	if err != nil {
		log.Errorf("generate weekly prompt audio, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}
	text := promptNarration(wp)
	if text == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "week has no speaking prompt yet")
		return
	}

	relPath, size, timestamps, err := handler.synthesizeAndStore(r.Context(), key, "weekly_speaking_prompt", text, req)
	if err != nil {
		handler.writeTTSError(w, err)
		return
	}

	audioURL := audioURLFor(relPath)
	if _, err := handler.progress.MutateWeek(r.Context(), key, func(wp *progress.WeekProgress) error {
		wp.WeeklySpeakingPrompt.AudioURL = audioURL
		return nil
	}); err != nil {
		log.Errorf("generate weekly prompt audio, save week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, weeklyAudioResponse{
		Success:    true,
		WeekKey:    key.String(),
		AudioURL:   audioURL,
		SizeBytes:  size,
		Timestamps: timestamps,
	})
}

// HandleGenerateShadowingAudio synthesizes the week's shadowing script.
func (handler *Handler) HandleGenerateShadowingAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req weeklyAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.progress.EnsureWeek(r.Context(), key)
	if err != nil {
		log.Errorf("generate shadowing audio, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}
	if wp.ShadowingPractice.Script == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "week has no shadowing script yet")
		return
	}

	relPath, size, timestamps, err := handler.synthesizeAndStore(r.Context(), key, "shadowing_practice", wp.ShadowingPractice.Script, req)
	if err != nil {
		handler.writeTTSError(w, err)
		return
	}

	audioURL := audioURLFor(relPath)
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	if _, err := handler.progress.MutateWeek(r.Context(), key, func(wp *progress.WeekProgress) error {
		wp.ShadowingPractice.AudioURL = audioURL
		wp.ShadowingPractice.AudioName = fmt.Sprintf("week_%s_typecast.wav", key)
		wp.ShadowingPractice.VoiceID = orDefaultVoice(req.VoiceID)
		wp.ShadowingPractice.Model = normalizeModel(req.Model)
		wp.ShadowingPractice.AudioSpeed = speed
		return nil
	}); err != nil {
		log.Errorf("generate shadowing audio, save week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, weeklyAudioResponse{
		Success:    true,
		WeekKey:    key.String(),
		AudioURL:   audioURL,
		SizeBytes:  size,
		Timestamps: timestamps,
	})
}

// HandleServeAudio streams a stored generated WAV.
func (handler *Handler) HandleServeAudio(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	relPath := vars["path"]
	if relPath == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "path is required")
		return
	}

	rsc, err := handler.blobs.Open(r.Context(), relPath)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "audio not found")
		return
	}
	defer rsc.Close()

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "speech.wav", time.Time{}, rsc)
}

func (handler *Handler) synthesizeAndStore(
	ctx context.Context,
	key weekcal.WeekKey,
	activity, text string,
	req weeklyAudioRequest,
) (relPath string, size int64, timestamps []ParagraphTimestamp, err error) {
	audio, timestamps, err := handler.client.Synthesize(ctx, SynthesizeParams{
		Text:    text,
		VoiceID: req.VoiceID,
		Model:   req.Model,
		Tempo:   req.Speed,
	})
	if err != nil {
		return "", 0, nil, err
	}

	filename := fmt.Sprintf("week_%s_typecast.wav", key)
	relPath, size, err = handler.blobs.Save(ctx, activity, key.String(), filename, bytes.NewReader(audio))
	if err != nil {
		return "", 0, nil, fmt.Errorf("store generated audio: %w", err)
	}
	return relPath, size, timestamps, nil
}

// promptNarration is the text read aloud for the weekly speaking prompt:
// the prompt itself, then the practice words with their hints.
func promptNarration(wp *progress.WeekProgress) string {
	prompt := wp.WeeklySpeakingPrompt.Prompt
	if prompt == "" {
		return ""
	}

	var b bytes.Buffer
	b.WriteString(prompt)
	for _, word := range wp.WeeklySpeakingPrompt.Words {
		b.WriteString("\n\n")
		b.WriteString(word.Word)
		if word.Hint != "" {
			b.WriteString(". ")
			b.WriteString(word.Hint)
		}
	}
	return b.String()
}

func orDefaultVoice(voiceID string) string {
	if voiceID == "" {
		return DefaultVoiceID
	}
	return voiceID
}

func audioURLFor(relPath string) string {
	return "/api/tts/audio/" + relPath
}

func (handler *Handler) writeTTSError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAPIKeyMissing):
		pkg.WriteJSONError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
	default:
		log.Errorf("speech synthesis failed: %s", err)
		pkg.WriteJSONError(w, http.StatusBadGateway, "speech synthesis failed")
	}
}
