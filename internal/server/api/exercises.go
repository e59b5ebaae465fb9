package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/hipcheck/internal/motion"
	"github.com/ayusman/hipcheck/internal/store"
)

// ExerciseHandler handles HTTP requests for exercise presets.
type ExerciseHandler struct {
	store   *store.Store
	session Session
}

// NewExerciseHandler creates an ExerciseHandler. session may be nil, in which
// case activation only records the setting.
func NewExerciseHandler(s *store.Store, session Session) *ExerciseHandler {
	return &ExerciseHandler{store: s, session: session}
}

// ServeHTTP routes /api/exercises, /api/exercises/{id} and
// /api/exercises/{id}/activate.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/exercises")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// exerciseRequest carries optional fields; omitted tolerance values fall back
// to the defaults on create and to the stored values on update.
type exerciseRequest struct {
	Name           string   `json:"name"`
	TargetDistance *float64 `json:"target_distance"`
	RelativeError  *float64 `json:"relative_error"`
	LateralSlack   *float64 `json:"lateral_slack"`
}

func (req exerciseRequest) apply(e *store.Exercise) {
	if req.Name != "" {
		e.Name = req.Name
	}
	if req.TargetDistance != nil {
		e.TargetDistance = *req.TargetDistance
	}
	if req.RelativeError != nil {
		e.RelativeError = *req.RelativeError
	}
	if req.LateralSlack != nil {
		e.LateralSlack = *req.LateralSlack
	}
}

type exerciseResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TargetDistance float64 `json:"target_distance"`
	RelativeError  float64 `json:"relative_error"`
	LateralSlack   float64 `json:"lateral_slack"`
	Active         bool    `json:"active"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toResponse(e *store.Exercise, activeID string) exerciseResponse {
	return exerciseResponse{
		ID:             e.ID,
		Name:           e.Name,
		TargetDistance: e.TargetDistance,
		RelativeError:  e.RelativeError,
		LateralSlack:   e.LateralSlack,
		Active:         e.ID == activeID,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
}

// activeID returns the stored active exercise ID, or "" if none is set.
func (h *ExerciseHandler) activeID() string {
	id, err := h.store.Settings().Get(store.SettingActiveExercise)
	if err != nil {
		return ""
	}
	return id
}

// list handles GET /api/exercises.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.store.Exercises().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exercises")
		return
	}

	active := h.activeID()
	response := listExercisesResponse{
		Exercises: make([]exerciseResponse, 0, len(exercises)),
	}
	for _, e := range exercises {
		response.Exercises = append(response.Exercises, toResponse(e, active))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/exercises/{id}.
func (h *ExerciseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(e, h.activeID()))
}

// create handles POST /api/exercises.
func (h *ExerciseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if _, err := h.store.Exercises().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Exercise name already exists")
		return
	}

	def := motion.DefaultTolerance()
	e := &store.Exercise{
		TargetDistance: def.TargetDistance,
		RelativeError:  def.RelativeError,
		LateralSlack:   def.LateralSlack,
	}
	req.apply(e)

	if err := h.store.Exercises().Create(e); err != nil {
		if errors.Is(err, motion.ErrInvalidTolerance) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create exercise")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(e, h.activeID()))
}

// update handles PUT /api/exercises/{id}. Updating the active exercise
// applies the new bands to the session, starting a new attempt.
func (h *ExerciseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name != "" && req.Name != e.Name {
		if _, err := h.store.Exercises().GetByName(req.Name); err == nil {
			writeError(w, http.StatusConflict, "Exercise name already exists")
			return
		}
	}
	req.apply(e)

	if err := h.store.Exercises().Update(e); err != nil {
		if errors.Is(err, motion.ErrInvalidTolerance) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update exercise")
		return
	}

	active := h.activeID()
	if e.ID == active && h.session != nil {
		if err := h.session.SelectTolerance(e.Tolerance()); err != nil {
			log.Printf("apply updated exercise %s: %v", e.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, toResponse(e, active))
}

// delete handles DELETE /api/exercises/{id}. The active exercise cannot be
// deleted.
func (h *ExerciseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if id == h.activeID() {
		writeError(w, http.StatusConflict, "Cannot delete the active exercise")
		return
	}

	if err := h.store.Exercises().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete exercise")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/exercises/{id}/activate.
func (h *ExerciseHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}

	tol := e.Tolerance()
	if err := tol.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Settings().Set(store.SettingActiveExercise, e.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save active exercise")
		return
	}
	if h.session != nil {
		if err := h.session.SelectTolerance(tol); err != nil {
			log.Printf("apply exercise %s: %v", e.ID, err)
		}
	}

	log.Printf("exercise %q activated", e.Name)
	writeJSON(w, http.StatusOK, toResponse(e, e.ID))
}

func (h *ExerciseHandler) lookup(w http.ResponseWriter, id string) (*store.Exercise, bool) {
	e, err := h.store.Exercises().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return nil, false
	}
	return e, true
}
