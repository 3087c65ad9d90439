// Package handler implements the HTTP endpoints of the scan API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/alanyoungcy/crossarb/internal/scan"
)

// LatestSource exposes the most recent completed scan. Latest returns nil
// until the first scan finishes.
type LatestSource interface {
	Latest() *scan.Result
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
