package player

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/weekcal"
	"github.com/jhkim-dev/speakpath/pkg"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type keyRequest struct {
	Activity string `json:"activity"`
	WeekKey  string `json:"week_key"`
	Slot     string `json:"slot"`
}

func (kr keyRequest) toKey() (Key, error) {
	activity, err := roadmap.ParseActivityID(kr.Activity)
	if err != nil {
		return Key{}, err
	}
	if _, err := weekcal.Parse(kr.WeekKey); err != nil {
		return Key{}, err
	}
	slot := kr.Slot
	if slot == "" {
		slot = "main"
	}
	return Key{Activity: activity, WeekKey: kr.WeekKey, Slot: slot}, nil
}

type stateResponse struct {
	Success bool      `json:"success"`
	Mounted bool      `json:"mounted"`
	Player  *Snapshot `json:"player,omitempty"`
}

func writePlayerState(w http.ResponseWriter, controller *Controller) {
	snap := controller.Snapshot()
	pkg.WriteJSONResponse(w, http.StatusOK, stateResponse{
		Success: true,
		Mounted: true,
		Player:  &snap,
	})
}

func (handler *Handler) decodeKeyBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// lookup resolves a key request to a live controller, writing the error
// responses itself. A nil return means the response was already written.
func (handler *Handler) lookup(w http.ResponseWriter, kr keyRequest) *Controller {
	key, err := kr.toKey()
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid player key")
		return nil
	}

	controller, ok := handler.registry.Lookup(key)
	if !ok {
		pkg.WriteJSONResponse(w, http.StatusOK, stateResponse{
			Success: true,
			Mounted: false,
		})
		return nil
	}
	return controller
}

type mountRequest struct {
	keyRequest
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (handler *Handler) HandleMount(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req mountRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "error, source empty")
		return
	}

	key, err := req.toKey()
	if err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid player key")
		return
	}

	controller, err := handler.registry.Mount(key, req.Source, req.DurationSeconds)
	if err != nil {
		log.Errorf("mount player %v failed: %s", key, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to mount player")
		return
	}

	writePlayerState(w, controller)
}

func (handler *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	kr := keyRequest{
		Activity: r.URL.Query().Get("activity"),
		WeekKey:  r.URL.Query().Get("week_key"),
		Slot:     r.URL.Query().Get("slot"),
	}
	if controller := handler.lookup(w, kr); controller != nil {
		writePlayerState(w, controller)
	}
}

func (handler *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req keyRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}

	controller := handler.lookup(w, req)
	if controller == nil {
		return
	}

	if _, err := controller.TogglePlayPause(); err != nil {
		handler.writeControllerError(w, "toggle", err)
		return
	}
	writePlayerState(w, controller)
}

type seekRequest struct {
	keyRequest
	Fraction float64 `json:"fraction"`
	// Drag marks seek bar drag updates: "start" enters preview mode,
	// "move" repaints the preview, "end" commits the seek.
	Drag string `json:"drag,omitempty"`
}

func (handler *Handler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req seekRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}

	controller := handler.lookup(w, req.keyRequest)
	if controller == nil {
		return
	}

	var err error
	switch req.Drag {
	case "":
		err = controller.SeekFraction(req.Fraction)
	case "start":
		err = controller.BeginDrag(req.Fraction)
	case "move":
		err = controller.DragTo(req.Fraction)
	case "end":
		err = controller.EndDrag(req.Fraction)
	default:
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid drag phase")
		return
	}
	if err != nil {
		handler.writeControllerError(w, "seek", err)
		return
	}
	writePlayerState(w, controller)
}

type skipRequest struct {
	keyRequest
	Seconds float64 `json:"seconds"`
}

func (handler *Handler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req skipRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}

	controller := handler.lookup(w, req.keyRequest)
	if controller == nil {
		return
	}

	if err := controller.Skip(req.Seconds); err != nil {
		handler.writeControllerError(w, "skip", err)
		return
	}
	writePlayerState(w, controller)
}

type speedRequest struct {
	keyRequest
	Speed float64 `json:"speed"`
}

func (handler *Handler) HandleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req speedRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}

	controller := handler.lookup(w, req.keyRequest)
	if controller == nil {
		return
	}

	if _, err := controller.SetSpeed(req.Speed); err != nil {
		handler.writeControllerError(w, "speed", err)
		return
	}
	writePlayerState(w, controller)
}

type unmountWeekRequest struct {
	WeekKey string `json:"week_key"`
}

func (handler *Handler) HandleUnmountWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req unmountWeekRequest
	if !handler.decodeKeyBody(w, r, &req) {
		return
	}
	if _, err := weekcal.Parse(req.WeekKey); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid week key")
		return
	}

	removed := handler.registry.UnmountWeek(req.WeekKey)
	log.Debugf("unmounted %d players for week %s", removed, req.WeekKey)

	pkg.WriteJSONResponse(w, http.StatusOK, struct {
		Success bool `json:"success"`
		Removed int  `json:"removed"`
	}{
		Success: true,
		Removed: removed,
	})
}

func (handler *Handler) writeControllerError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrDisposed) || errors.Is(err, ErrNotBound) {
		pkg.WriteJSONError(w, http.StatusConflict, "player no longer available")
		return
	}
	log.Errorf("player %s failed: %s", op, err)
	pkg.WriteJSONError(w, http.StatusInternalServerError, "player operation failed")
}
