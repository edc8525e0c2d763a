package podcast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/tts"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

type Handler struct {
	library   *Library
	ttsClient *tts.Client
	blobs     tts.BlobStore
	progress  *progress.Service
}

func NewHandler(library *Library, ttsClient *tts.Client, blobs tts.BlobStore, progressService *progress.Service) *Handler {
	return &Handler{
		library:   library,
		ttsClient: ttsClient,
		blobs:     blobs,
		progress:  progressService,
	}
}

func (handler *Handler) resolveWeekKey(raw string) (weekcal.WeekKey, error) {
	if raw == "" {
		return handler.progress.CurrentWeekKey(), nil
	}
	return weekcal.Parse(raw)
}

type videosRequest struct {
	WeekKey string `json:"week_key"`
	// Episode pins the week to a specific episode instead of the cycled
	// assignment.
	Episode string `json:"episode"`
}

type videosResponse struct {
	Success  bool      `json:"success"`
	WeekKey  string    `json:"week_key"`
	Episodes []Episode `json:"episodes"`
	Assigned Episode   `json:"assigned"`
}

// HandleVideos lists the episode library and assigns the week its episode,
// either the cycled default or an explicitly requested one.
func (handler *Handler) HandleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req videosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	episodes, err := handler.library.Episodes()
	if err != nil {
		log.Errorf("list podcast episodes: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list episodes")
		return
	}

	var assigned Episode
	if req.Episode != "" {
		assigned, err = handler.library.Episode(req.Episode)
		if err != nil {
			pkg.WriteJSONError(w, http.StatusNotFound, "episode not found")
			return
		}
	} else {
		wp, err := handler.progress.EnsureWeek(r.Context(), key)
		if err != nil {
			log.Errorf("podcast videos, load week %s: %s", key, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
			return
		}
		if wp.PodcastShadowing.EpisodeName != "" {
			assigned, err = handler.library.Episode(wp.PodcastShadowing.EpisodeName)
		}
		if wp.PodcastShadowing.EpisodeName == "" || err != nil {
			assigned, err = handler.library.EpisodeForWeek(key)
			if err != nil {
				handler.writeLibraryError(w, key, err)
				return
			}
		}
	}

	if err := handler.saveAssignment(r, key, assigned); err != nil {
		log.Errorf("save podcast episode for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, videosResponse{
		Success:  true,
		WeekKey:  key.String(),
		Episodes: episodes,
		Assigned: assigned,
	})
}

// HandleRegenerate rotates the week's episode to the next one in the cycle.
func (handler *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req videosRequest
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
		log.Errorf("regenerate podcast episode, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}

	next, err := handler.library.NextEpisode(wp.PodcastShadowing.EpisodeName)
	if err != nil {
		handler.writeLibraryError(w, key, err)
		return
	}

	if err := handler.saveAssignment(r, key, next); err != nil {
		log.Errorf("save podcast episode for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, videosResponse{
		Success:  true,
		WeekKey:  key.String(),
		Assigned: next,
	})
}

func (handler *Handler) saveAssignment(r *http.Request, key weekcal.WeekKey, episode Episode) error {
	_, err := handler.progress.MutateWeek(r.Context(), key, func(wp *progress.WeekProgress) error {
		if wp.PodcastShadowing.EpisodeName != episode.Name {
			// episode changed, drop chapter-bound state
			wp.PodcastShadowing.TranscriptPath = ""
			wp.PodcastShadowing.AudioURL = ""
		}
		wp.PodcastShadowing.EpisodeName = episode.Name
		wp.PodcastShadowing.ChapterNames = episode.Chapters
		return nil
	})
	return err
}

type transcriptRequest struct {
	WeekKey string `json:"week_key"`
	Chapter string `json:"chapter"`
}

type transcriptResponse struct {
	Success        bool   `json:"success"`
	WeekKey        string `json:"week_key"`
	Episode        string `json:"episode"`
	Chapter        string `json:"chapter"`
	TranscriptPath string `json:"transcript_path"`
	Transcript     string `json:"transcript"`
}

// HandleTranscript reads a chapter transcript of the week's episode and
// records it as the week's shadowing material.
func (handler *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Chapter == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "chapter is required")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.progress.EnsureWeek(r.Context(), key)
	if err != nil {
		log.Errorf("podcast transcript, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}
	if wp.PodcastShadowing.EpisodeName == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "week has no assigned episode")
		return
	}

	transcript, err := handler.library.Transcript(wp.PodcastShadowing.EpisodeName, req.Chapter)
	if err != nil {
		if errors.Is(err, ErrTranscriptNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "transcript not found")
			return
		}
		log.Errorf("podcast transcript %s/%s: %s", wp.PodcastShadowing.EpisodeName, req.Chapter, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}

	transcriptPath := TranscriptPath(wp.PodcastShadowing.EpisodeName, req.Chapter)
	if _, err := handler.progress.MutateWeek(r.Context(), key, func(wp *progress.WeekProgress) error {
		wp.PodcastShadowing.TranscriptPath = transcriptPath
		return nil
	}); err != nil {
		log.Errorf("save podcast transcript path for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, transcriptResponse{
		Success:        true,
		WeekKey:        key.String(),
		Episode:        wp.PodcastShadowing.EpisodeName,
		Chapter:        req.Chapter,
		TranscriptPath: transcriptPath,
		Transcript:     transcript,
	})
}

type generateAudioRequest struct {
	WeekKey string  `json:"week_key"`
	Chapter string  `json:"chapter"`
	VoiceID string  `json:"voice_id"`
	Model   string  `json:"model"`
	Speed   float64 `json:"speed"`
}

type generateAudioResponse struct {
	Success    bool                     `json:"success"`
	WeekKey    string                   `json:"week_key"`
	AudioURL   string                   `json:"audio_url"`
	SizeBytes  int64                    `json:"size_bytes"`
	Timestamps []tts.ParagraphTimestamp `json:"timestamps,omitempty"`
}

// HandleGenerateTypecastAudio synthesizes a chapter transcript with the
// Typecast voice, for shadowing a clean studio rendition of the episode.
func (handler *Handler) HandleGenerateTypecastAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req generateAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Chapter == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "chapter is required")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.progress.EnsureWeek(r.Context(), key)
	if err != nil {
		log.Errorf("podcast audio, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}
	if wp.PodcastShadowing.EpisodeName == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "week has no assigned episode")
		return
	}

	transcript, err := handler.library.Transcript(wp.PodcastShadowing.EpisodeName, req.Chapter)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "transcript not found")
		return
	}

	audio, timestamps, err := handler.ttsClient.Synthesize(r.Context(), tts.SynthesizeParams{
		Text:    transcript,
		VoiceID: req.VoiceID,
		Model:   req.Model,
		Tempo:   req.Speed,
	})
	if err != nil {
		if errors.Is(err, tts.ErrAPIKeyMissing) {
			pkg.WriteJSONError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
			return
		}
		log.Errorf("podcast audio synthesis for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	filename := fmt.Sprintf("week_%s_typecast.wav", key)
	relPath, size, err := handler.blobs.Save(r.Context(), "podcast_shadowing", key.String(), filename, bytes.NewReader(audio))
	if err != nil {
		log.Errorf("store podcast audio for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	audioURL := "/api/tts/audio/" + relPath
	if _, err := handler.progress.MutateWeek(r.Context(), key, func(wp *progress.WeekProgress) error {
		wp.PodcastShadowing.AudioURL = audioURL
		if req.VoiceID != "" {
			wp.PodcastShadowing.VoiceID = req.VoiceID
		} else {
			wp.PodcastShadowing.VoiceID = tts.DefaultVoiceID
		}
		return nil
	}); err != nil {
		log.Errorf("save podcast audio url for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, generateAudioResponse{
		Success:    true,
		WeekKey:    key.String(),
		AudioURL:   audioURL,
		SizeBytes:  size,
		Timestamps: timestamps,
	})
}

// HandleServeMP3 streams one chapter clip, addressed as
// <episode>/<chapter>.mp3.
func (handler *Handler) HandleServeMP3(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	relPath := vars["filename"]

	path, err := handler.library.ClipPath(relPath)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "clip not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("open podcast clip %s: %s", relPath, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to open clip")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, relPath, time.Time{}, f)
}

func (handler *Handler) writeLibraryError(w http.ResponseWriter, key weekcal.WeekKey, err error) {
	if errors.Is(err, ErrNoEpisodes) {
		pkg.WriteJSONError(w, http.StatusNotFound, "no episodes available")
		return
	}
	log.Errorf("podcast library lookup for %s: %s", key, err)
	pkg.WriteJSONError(w, http.StatusInternalServerError, "library lookup failed")
}
