package recordings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	"github.com/jhkim-dev/speakpath/internal/telemetry/tracing"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

const (
	maxUploadedFileSize = 100 << 20 // 100 MB
	maxChunkSize        = 10 << 20  // 10 MB
)

type Handler struct {
	service  *Service
	sessions *SessionManager
	metrics  *metrics.Manager
}

func NewHandler(service *Service, sessions *SessionManager, metrics *metrics.Manager) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		metrics:  metrics,
	}
}

func parseRecordingTarget(activityParam, weekKeyParam string) (roadmap.ActivityID, string, error) {
	activity, err := roadmap.ParseActivityID(activityParam)
	if err != nil {
		return "", "", err
	}
	if _, err := weekcal.Parse(weekKeyParam); err != nil {
		return "", "", err
	}
	return activity, weekKeyParam, nil
}

// HandleSave is the one-shot upload path: the client recorded locally and
// posts the finished take as multipart form data.
func (handler *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "recordingsHandler.save")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseMultipartForm(maxUploadedFileSize); err != nil {
		log.Errorf("save recording, parse multipart form: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid multipart form or file too big")
		return
	}

	activity, weekKey, err := parseRecordingTarget(
		r.FormValue("activity"), r.FormValue("week_key"))
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid activity or week key")
		return
	}

	day := r.FormValue("day")
	if day == "" {
		day = time.Now().Format("2006-01-02")
	}

	file, fileHeader, err := r.FormFile("audio")
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, audio file missing")
		return
	}
	defer file.Close()

	mimeType := "application/octet-stream"
	if t := fileHeader.Header.Get("Content-Type"); t != "" {
		mimeType = t
	}

	rec, err := handler.service.Save(ctx, activity, weekKey, day, fileHeader.Filename, mimeType, file)
	if err != nil {
		log.Errorf("save recording [%s %s]: %s", activity, weekKey, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save recording")
		return
	}

	handler.metrics.CounterRecordingsSaved.Inc()
	log.Debugf("recording saved: %s [%s %s]", rec.ID, activity, weekKey)

	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success   bool       `json:"success"`
		Recording *Recording `json:"recording"`
	}{
		Success:   true,
		Recording: rec,
	})
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	recordings, err := handler.service.List(
		r.Context(),
		r.URL.Query().Get("activity"),
		r.URL.Query().Get("week_key"),
	)
	if err != nil {
		log.Errorf("list recordings: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list recordings")
		return
	}

	if len(recordings) == 0 {
		recordings = []Recording{}
	}

	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success    bool        `json:"success"`
		Recordings []Recording `json:"recordings"`
		Total      int         `json:"total"`
	}{
		Success:    true,
		Recordings: recordings,
		Total:      len(recordings),
	})
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, id empty")
		return
	}

	err := handler.service.Delete(r.Context(), id)
	if errors.Is(err, ErrRecordingNotFound) {
		pkg.WriteJSONError(w, http.StatusNotFound, "recording not found")
		return
	}
	if err != nil {
		log.Errorf("delete recording %s: %s", id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to delete recording")
		return
	}

	handler.metrics.CounterRecordingsDeleted.Inc()
	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Deleted string `json:"deleted"`
	}{
		Success: true,
		Deleted: id,
	})
}

// HandleServeAudio streams a stored take back to the dashboard player.
func (handler *Handler) HandleServeAudio(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, id empty")
		return
	}

	f, rec, err := handler.service.Open(r.Context(), id)
	if errors.Is(err, ErrRecordingNotFound) {
		pkg.WriteJSONError(w, http.StatusNotFound, "recording not found")
		return
	}
	if err != nil {
		log.Errorf("open recording %s: %s", id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to open recording")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", rec.MimeType)
	http.ServeContent(w, r, rec.Filename, rec.CreatedAt, f)
}

type sessionStartRequest struct {
	Activity string `json:"activity"`
	WeekKey  string `json:"week_key"`
	Day      string `json:"day,omitempty"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type sessionResponse struct {
	Success   bool         `json:"success"`
	Session   *SessionInfo `json:"session,omitempty"`
	Preempted bool         `json:"preempted,omitempty"`
}

func (handler *Handler) HandleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	activity, weekKey, err := parseRecordingTarget(req.Activity, req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid activity or week key")
		return
	}

	day := req.Day
	if day == "" {
		day = time.Now().Format("2006-01-02")
	}
	filename := req.Filename
	if filename == "" {
		filename = "session.webm"
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	info, preempted := handler.sessions.Start(StartParams{
		Activity: activity,
		WeekKey:  weekKey,
		Day:      day,
		Filename: filename,
		MimeType: mimeType,
	})

	pkg.WriteJSONResponse(w, http.StatusOK, sessionResponse{
		Success:   true,
		Session:   &info,
		Preempted: preempted,
	})
}

func (handler *Handler) HandleSessionChunk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, session id empty")
		return
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxChunkSize))
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "failed to read chunk")
		return
	}

	info, err := handler.sessions.AppendChunk(id, chunk)
	if err != nil {
		handler.writeSessionError(w, err)
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, sessionResponse{
		Success: true,
		Session: &info,
	})
}

func (handler *Handler) HandleSessionStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, session id empty")
		return
	}

	rec, err := handler.sessions.Stop(r.Context(), id)
	if err != nil {
		handler.writeSessionError(w, err)
		return
	}

	handler.metrics.CounterRecordingsSaved.Inc()
	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success   bool       `json:"success"`
		Recording *Recording `json:"recording"`
	}{
		Success:   true,
		Recording: rec,
	})
}

func (handler *Handler) HandleSessionAbort(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, session id empty")
		return
	}

	if err := handler.sessions.Abort(id); err != nil {
		handler.writeSessionError(w, err)
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, sessionResponse{Success: true})
}

func (handler *Handler) HandleSessionStatus(w http.ResponseWriter, _ *http.Request) {
	info, ok := handler.sessions.Active()
	resp := sessionResponse{Success: true}
	if ok {
		resp.Session = &info
	}
	pkg.WriteJSONResponse(w, http.StatusOK, resp)
}

func (handler *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		pkg.WriteJSONError(w, http.StatusNotFound, "recording session not found")
	case errors.Is(err, ErrSessionNotLive):
		pkg.WriteJSONError(w, http.StatusConflict, "recording session not accepting chunks")
	default:
		log.Errorf("recording session: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "recording session error")
	}
}
