// Package httpx holds the JSON response helpers and health endpoints shared
// by the soilwatch HTTP services.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpx: encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Success: false, Error: msg})
}

// WriteStorageError maps a storage failure to a status and a caller supplied
// generic message. Backend details are only logged.
func WriteStorageError(w http.ResponseWriter, logger *log.Logger, err error, generic string) {
	status := StatusFor(err)
	switch status {
	case http.StatusNotFound:
		WriteError(w, status, "Not found")
		return
	case http.StatusServiceUnavailable:
		generic = "Service temporarily unavailable"
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("%s: %v", generic, err)
	WriteError(w, status, generic)
}

func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IntParam reads an integer query parameter clamped to [min, max]; max <= 0
// means unbounded. Missing or malformed values yield def.
func IntParam(r *http.Request, key string, def, min, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
