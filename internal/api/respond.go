package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error types surfaced in failure responses.
const (
	errValidation = "validation_error"
	errAuth       = "authentication_error"
	errStorage    = "storage_error"
	errIngest     = "ingest_error"
	errNotFound   = "not_found"
	errAPI        = "api_error"
)

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	respondJSON(w, code, map[string]any{
		"success": false,
		"error":   errType,
		"message": fmt.Sprintf(format, args...),
	})
}
