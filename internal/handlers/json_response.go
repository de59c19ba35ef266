package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const msgProcessingError = "Error processing request"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeValidationError(w http.ResponseWriter, message string, details map[string]string) {
	body := map[string]any{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, http.StatusBadRequest, body)
}

// writeInternalError logs err with its oops context and answers with a generic message.
func writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zap.L().Error(msg,
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSONError(w, http.StatusInternalServerError, msgProcessingError)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
