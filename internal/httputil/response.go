// Package httputil holds the JSON response and request helpers shared by
// the HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/crt.report/internal/monitoring"
)

var logf = monitoring.Componentf("HTTP")

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode json response: %v", err)
	}
}

// WriteError writes a JSON error response with a formatted message.
func WriteError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	WriteJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...), Status: status})
}

// RequireMethod reports whether r uses one of the allowed methods. Otherwise
// it writes a 405 with an Allow header and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	for _, m := range allowed {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
	return false
}

// LimitBody caps the request body at maxBytes. Reads past the cap fail.
func LimitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) io.Reader {
	return http.MaxBytesReader(w, r.Body, maxBytes)
}

// QueryInt parses an integer query parameter. A missing value yields def;
// a malformed or out-of-range value is an error.
func QueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, v)
	}
	return v, nil
}
