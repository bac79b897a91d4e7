// Package httputil centralizes JSON response envelopes and domain error
// translation so every handler speaks the same dialect.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "veritas/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope.
//
// Policy rejections are deliberately bland: the body carries only the code,
// never which detection rule fired.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, toHTTPStatus(code), map[string]string{"error": string(code)})
}

// toHTTPStatus maps domain error codes to HTTP statuses.
func toHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Decode parses a JSON request body into T. Failures come back as
// CodeInvalidInput domain errors ready for WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.Wrap(dErrors.CodeInvalidInput, "malformed request body", err)
	}
	return req, nil
}
