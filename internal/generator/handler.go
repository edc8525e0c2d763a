package generator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type generateRequest struct {
	WeekKey    string `json:"week_key"`
	Regenerate bool   `json:"regenerate"`
}

type generateResponse struct {
	Success  bool                   `json:"success"`
	WeekKey  string                 `json:"week_key"`
	Activity string                 `json:"activity,omitempty"`
	Progress *progress.WeekProgress `json:"progress"`
}

func (handler *Handler) resolveWeekKey(raw string) (weekcal.WeekKey, error) {
	if raw == "" {
		return handler.service.progress.CurrentWeekKey(), nil
	}
	return weekcal.Parse(raw)
}

func (handler *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	activity, err := roadmap.ParseActivityID(vars["activityId"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "unknown activity")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.service.Generate(r.Context(), GenerateParams{
		WeekKey:    key,
		Activity:   activity,
		Regenerate: req.Regenerate,
	})
	if err != nil {
		if errors.Is(err, ErrNotGeneratable) {
			pkg.WriteJSONError(w, http.StatusBadRequest, "activity content is not generated")
			return
		}
		log.Errorf("generate %s content for %s: %s", activity, key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "content generation failed")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, generateResponse{
		Success:  true,
		WeekKey:  key.String(),
		Activity: string(activity),
		Progress: wp,
	})
}

func (handler *Handler) HandleGenerateAll(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request")
		return
	}

	key, err := handler.resolveWeekKey(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, err := handler.service.GenerateAll(r.Context(), key, req.Regenerate)
	if err != nil {
		log.Errorf("generate all content for %s: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "content generation failed")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, generateResponse{
		Success:  true,
		WeekKey:  key.String(),
		Progress: wp,
	})
}
