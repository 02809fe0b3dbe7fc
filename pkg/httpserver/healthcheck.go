package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// HealthCheckTimeout bounds a single readiness probe.
const HealthCheckTimeout = 2 * time.Second

// HealthStatus is the body written by HealthCheckHandler.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheckHandler serves liveness when checks is empty and readiness
// otherwise. Each check runs with the request context bounded by
// HealthCheckTimeout; any failure answers 503 with the failing names.
func HealthCheckHandler(log *slog.Logger, checks map[string]func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	names := slices.Sorted(maps.Keys(checks))

	return func(w http.ResponseWriter, r *http.Request) {
		if len(names) == 0 {
			writeHealth(w, http.StatusOK, HealthStatus{Status: "alive"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
		defer cancel()

		res := HealthStatus{Status: "ready", Checks: make(map[string]string, len(names))}
		code := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
				res.Checks[name] = "failed"
				res.Status = "not_ready"
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
		writeHealth(w, code, res)
	}
}

func writeHealth(w http.ResponseWriter, code int, body HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
