package api

import (
	"net/http"
	"time"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/motion"
)

// Display colours per state, as shown by the dashboard.
const (
	ColourInProgress = "green"
	ColourAtTarget   = "yellow"
	ColourErrored    = "red"
	ColourCompleted  = "blue"
)

// StateColour returns the display colour for s.
func StateColour(s motion.State) string {
	switch s {
	case motion.AtTarget:
		return ColourAtTarget
	case motion.Errored:
		return ColourErrored
	case motion.Completed:
		return ColourCompleted
	default:
		return ColourInProgress
	}
}

// SessionResponse is the JSON view of an observation. It is also the message
// format of the live stream.
type SessionResponse struct {
	AttemptID      string           `json:"attempt_id,omitempty"`
	State          motion.State     `json:"state"`
	Status         motion.Status    `json:"status"`
	SignedDistance float64          `json:"signed_distance"`
	Remaining      float64          `json:"remaining"`
	Tolerance      motion.Tolerance `json:"tolerance"`
	Sample         *motion.Point3   `json:"sample,omitempty"`
	Colour         string           `json:"colour"`
	At             string           `json:"at,omitempty"`
}

// NewSessionResponse converts an observation for display.
func NewSessionResponse(o app.Observation) SessionResponse {
	sample := o.Sample
	return SessionResponse{
		AttemptID:      o.AttemptID,
		State:          o.Result.State,
		Status:         o.Result.Status,
		SignedDistance: o.Result.SignedDistance,
		Remaining:      o.Remaining,
		Tolerance:      o.Tolerance,
		Sample:         &sample,
		Colour:         StateColour(o.Result.State),
		At:             o.At.Format(time.RFC3339Nano),
	}
}

// SessionHandler serves the live session state.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s Session) *SessionHandler {
	return &SessionHandler{session: s}
}

// ServeHTTP routes GET /api/session and POST /api/session/reset.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/session", "/api/session/":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r)
	case "/api/session/reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.reset(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// get returns the latest observation, or a quiet session when no sample has
// been classified yet.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	obs, ok := h.session.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{
			State:  motion.Quiet,
			Status: motion.Status{Kind: motion.InProgress},
			Colour: StateColour(motion.Quiet),
		})
		return
	}
	writeJSON(w, http.StatusOK, NewSessionResponse(obs))
}

// reset abandons the current attempt. The session re-arms on the next sample.
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.session.Reset()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reset requested"})
}
