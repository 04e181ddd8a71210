package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the normalised error body {message, code, details}.
func writeJSONError(w http.ResponseWriter, status int, message, code string, details map[string]any) {
	writeJSON(w, status, apperrors.APIError{Message: message, Code: code, Details: details})
}

// writeValidationError reports a field-level rejection as 422.
func writeValidationError(w http.ResponseWriter, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		writeJSONError(w, http.StatusUnprocessableEntity, "Validation failed", "VALIDATION_ERROR",
			map[string]any{"field": ve.Field, "message": ve.Message})
		return
	}
	writeJSONError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body", "INVALID_BODY", nil)
		return false
	}
	return true
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: s.nowTime().UTC()})
	}
}
