package httputil

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteNotAvailable is the single rejection shape for video requests that
// are denied, unauthenticated, or aimed at something that does not exist.
// One body for all three, so responses cannot be compared to probe whether
// a forbidden video exists.
func WriteNotAvailable(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, "not available")
}
