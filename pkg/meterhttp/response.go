package meterhttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidBody),
		errors.Is(err, errBadParam),
		errors.Is(err, meter.ErrInvalidRequest),
		errors.Is(err, usage.ErrInvalidUserID),
		errors.Is(err, usage.ErrInvalidQuantity),
		errors.Is(err, overage.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, overage.ErrChargeNotFound), errors.Is(err, usage.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, overage.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, plans.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, usage.ErrStorageUnavailable), errors.Is(err, overage.ErrLogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageOf hides internal error details from 5xx responses.
func messageOf(status int, err error) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return "storage unavailable"
	case errors.Is(err, plans.ErrConfiguration):
		return "unknown tier"
	case status >= http.StatusInternalServerError:
		return http.StatusText(status)
	default:
		return err.Error()
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: messageOf(status, err)})
}
