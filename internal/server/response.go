package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/koustreak/tablescan/internal/errs"
)

// writeJSON writes data with statusCode and returns any encoding error.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError maps err's kind to a status code and writes
// {"error": kind, "message": text}.
func writeError(w http.ResponseWriter, err error) error {
	kind := errs.ErrKindUnknown
	var e *errs.Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	return writeJSON(w, statusFor(kind), map[string]string{
		"error":   kind.String(),
		"message": err.Error(),
	})
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
