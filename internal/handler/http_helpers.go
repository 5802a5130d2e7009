package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "pdf-workbench/pkg/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps an error to its HTTP status and a {"detail": ...} body
func writeError(w http.ResponseWriter, err error) {
	detail := "internal server error"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Message
		if appErr.Detail != "" {
			detail += ": " + appErr.Detail
		}
	}
	writeJSON(w, apperrors.GetStatusCode(err), map[string]string{"detail": detail})
}
