package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/exa"
	"github.com/kalambet/pursuit/internal/storage"
)

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeError maps service errors onto the error envelope. what names the
// failed operation in the 500 message.
func writeError(w http.ResponseWriter, err error, what string) {
	var verr *analytics.ValidationError
	switch {
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s: not found", what)
	case errors.Is(err, exa.ErrNoAPIKey):
		httpError(w, http.StatusServiceUnavailable, "api_error", "%v", err)
	default:
		slog.Error("request failed", "op", what, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "failed to %s: %v", what, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON request body into dst. It writes the 400 itself
// and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
