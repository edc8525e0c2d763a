package expressions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

type Handler struct {
	catalog  *Catalog
	progress *progress.Service
}

func NewHandler(catalog *Catalog, progressService *progress.Service) *Handler {
	return &Handler{
		catalog:  catalog,
		progress: progressService,
	}
}

type selectRequest struct {
	WeekKey string `json:"week_key"`
}

type selectResponse struct {
	Success bool   `json:"success"`
	WeekKey string `json:"week_key"`
	MP3File string `json:"mp3_file"`
}

func (handler *Handler) resolveWeekKey(raw string) (weekcal.WeekKey, error) {
	if raw == "" {
		return handler.progress.CurrentWeekKey(), nil
	}
	return weekcal.Parse(raw)
}

// HandleSelectMP3 assigns the week its catalog mp3 and saves it on the week
// record.
func (handler *Handler) HandleSelectMP3(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	file, err := handler.catalog.FileForWeek(key)
	if err != nil {
		handler.writeCatalogError(w, key, err)
		return
	}

	handler.saveAssignment(r.Context(), w, key, file)
}

// HandleRegenerate advances the week's assignment to the next file in the
// cycle, for when the assigned recording is not a good fit.
func (handler *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req selectRequest
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
		log.Errorf("regenerate expressions mp3, load week %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load week")
		return
	}

	handler.catalog.Invalidate()
	file, err := handler.catalog.NextFile(wp.WeeklyExpressions.MP3File)
	if err != nil {
		handler.writeCatalogError(w, key, err)
		return
	}

	handler.saveAssignment(r.Context(), w, key, file)
}

func (handler *Handler) saveAssignment(ctx context.Context, w http.ResponseWriter, key weekcal.WeekKey, file string) {
	if _, err := handler.progress.MutateWeek(ctx, key, func(wp *progress.WeekProgress) error {
		wp.WeeklyExpressions.MP3File = file
		return nil
	}); err != nil {
		log.Errorf("save expressions mp3 for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, selectResponse{
		Success: true,
		WeekKey: key.String(),
		MP3File: file,
	})
}

// HandleServeMP3 streams one catalog mp3.
func (handler *Handler) HandleServeMP3(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	path, err := handler.catalog.Path(filename)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, "mp3 not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("open catalog mp3 %s: %s", filename, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to open mp3")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, filename, time.Time{}, f)
}

func (handler *Handler) writeCatalogError(w http.ResponseWriter, key weekcal.WeekKey, err error) {
	if errors.Is(err, ErrNoMP3Files) {
		pkg.WriteJSONError(w, http.StatusNotFound, "no mp3 files available")
		return
	}
	log.Errorf("expressions catalog lookup for %s: %s", key, err)
	pkg.WriteJSONError(w, http.StatusInternalServerError, "catalog lookup failed")
}
