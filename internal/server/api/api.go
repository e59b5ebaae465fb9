// Package api provides HTTP API handlers for exercise presets and the live
// exercise session.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/motion"
)

// Session is the part of the running monitor the handlers control.
type Session interface {
	Latest() (app.Observation, bool)
	Reset()
	SelectTolerance(t motion.Tolerance) error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
