package progress

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

type Handler struct {
	service *Service
	metrics *metrics.Manager
}

func NewHandler(service *Service, metrics *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
	}
}

type snapshotResponse struct {
	Success       bool      `json:"success"`
	Progress      *Snapshot `json:"progress"`
	CurrentWeek   string    `json:"current_week"`
	WeeklySummary *Summary  `json:"weekly_summary,omitempty"`
}

type weekResponse struct {
	Success       bool               `json:"success"`
	WeekKey       string             `json:"week_key"`
	DateRange     string             `json:"date_range"`
	Days          []weekcal.DayEntry `json:"days"`
	Progress      *WeekProgress      `json:"progress"`
	WeeklySummary Summary            `json:"weekly_summary"`
}

func (handler *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	snapshot, currentKey, summary, err := handler.service.LoadAll(r.Context())
	if err != nil {
		log.Errorf("load progress failed: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, snapshotResponse{
		Success:       true,
		Progress:      snapshot,
		CurrentWeek:   currentKey.String(),
		WeeklySummary: &summary,
	})
}

func weekKeyVar(r *http.Request) (weekcal.WeekKey, error) {
	return weekcal.Parse(mux.Vars(r)["weekKey"])
}

func (handler *Handler) HandleGetWeek(w http.ResponseWriter, r *http.Request) {
	key, err := weekKeyVar(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, summary, days, err := handler.service.Week(r.Context(), key)
	if err != nil {
		log.Errorf("get week %s failed: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, weekResponse{
		Success:       true,
		WeekKey:       key.String(),
		DateRange:     key.DateRangeLabel(),
		Days:          days,
		Progress:      wp,
		WeeklySummary: summary,
	})
}

func (handler *Handler) HandleGetWeekCards(w http.ResponseWriter, r *http.Request) {
	key, err := weekKeyVar(r)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	wp, _, _, err := handler.service.Week(r.Context(), key)
	if err != nil {
		log.Errorf("get week cards %s failed: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get week")
		return
	}

	cards, err := RenderWeekCards(key, wp)
	if err != nil {
		log.Errorf("render week cards %s failed: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to render week")
		return
	}

	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success bool       `json:"success"`
		Cards   *WeekCards `json:"cards"`
	}{
		Success: true,
		Cards:   cards,
	})
}

type toggleRequest struct {
	Activity  string `json:"activity"`
	WeekKey   string `json:"week_key,omitempty"`
	Day       string `json:"day,omitempty"`
	Completed bool   `json:"completed"`
	Revision  *int64 `json:"revision,omitempty"`
}

func (handler *Handler) HandleToggleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	activity, err := roadmap.ParseActivityID(req.Activity)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "unknown activity")
		return
	}

	params := ToggleParams{
		Activity:  activity,
		Day:       req.Day,
		Completed: req.Completed,
		Revision:  req.Revision,
	}
	if req.WeekKey != "" {
		key, err := weekcal.Parse(req.WeekKey)
		if err != nil {
			pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
			return
		}
		params.WeekKey = &key
	}

	snapshot, summary, err := handler.service.ToggleCompletion(r.Context(), params)
	switch {
	case errors.Is(err, ErrStaleRevision):
		pkg.WriteJSONError(w, http.StatusConflict, "stale revision, reload progress")
		return
	case err != nil:
		log.Errorf("toggle completion [%s] failed: %s", activity, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to update progress")
		return
	}

	handler.metrics.CounterProgressUpdates.WithLabelValues(string(activity)).Inc()

	pkg.WriteJSONResponse(w, http.StatusOK, snapshotResponse{
		Success:       true,
		Progress:      snapshot,
		CurrentWeek:   handler.service.CurrentWeekKey().String(),
		WeeklySummary: &summary,
	})
}

type activityInfoRequest struct {
	Activity string          `json:"activity"`
	WeekKey  string          `json:"week_key"`
	Field    string          `json:"field"`
	Value    json.RawMessage `json:"value"`
	Revision *int64          `json:"revision,omitempty"`
}

func (handler *Handler) HandleUpdateActivityInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req activityInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	activity, err := roadmap.ParseActivityID(req.Activity)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "unknown activity")
		return
	}
	key, err := weekcal.Parse(req.WeekKey)
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}
	if req.Field == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, field empty")
		return
	}

	snapshot, err := handler.service.UpdateActivityInfo(r.Context(), key, activity, req.Field, req.Value, req.Revision)
	switch {
	case errors.Is(err, ErrStaleRevision):
		pkg.WriteJSONError(w, http.StatusConflict, "stale revision, reload progress")
		return
	case errors.Is(err, ErrUnknownField):
		pkg.WriteJSONError(w, http.StatusBadRequest, "unknown field for activity")
		return
	case err != nil:
		log.Errorf("update activity info [%s.%s] failed: %s", activity, req.Field, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to update activity info")
		return
	}

	handler.metrics.CounterProgressUpdates.WithLabelValues(string(activity)).Inc()

	pkg.WriteJSONResponse(w, http.StatusOK, snapshotResponse{
		Success:     true,
		Progress:    snapshot,
		CurrentWeek: handler.service.CurrentWeekKey().String(),
	})
}
