package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"tradelab/internal/apperr"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

const maxBodyBytes = 1 << 20

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid json body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps domain sentinels to HTTP statuses. Anything unmapped is a 500
// with a generic body; callers log the original error.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrInsufficientMargin):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, apperr.ErrAccessDenied):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrAlreadyClosed):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, err.Error()
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}
