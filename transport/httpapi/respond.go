// Package httpapi is the request/response surface: group management,
// history, search, profiles, and the auth endpoints that mint the bearer
// tokens everything else requires.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "group-chat/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto its HTTP status. 5xx causes are
// logged server-side and replaced by a generic message on the wire.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperrors.MapToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ErrValidation
	}
	return nil
}
