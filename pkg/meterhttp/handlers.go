package meterhttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

var errBadParam = errors.New("meterhttp.errors.bad_param")

const dayLayout = "2006-01-02"

type handlers struct {
	engine *meter.Engine
	log    *slog.Logger
}

type checkRequest struct {
	Tier           string `json:"tier"`
	OverageConsent bool   `json:"overage_consent"`
}

type usageRequest struct {
	Tier           string `json:"tier"`
	Quantity       int64  `json:"quantity"`
	OverageConsent bool   `json:"overage_consent"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type chargesResponse struct {
	Charges []overage.Charge `json:"charges"`
}

func (h *handlers) capabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Capabilities())
}

func (h *handlers) getUsage(w http.ResponseWriter, r *http.Request) {
	tier := r.URL.Query().Get("tier")
	if tier == "" {
		h.fail(w, r, fmt.Errorf("%w: tier is required", errBadParam))
		return
	}
	snap, err := h.engine.Usage(r.Context(), chi.URLParam(r, "userID"), tier)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := bindJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.engine.CheckQuota(r.Context(), chi.URLParam(r, "userID"), req.Tier, req.OverageConsent)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handlers) recordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := bindJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	receipt, err := h.engine.RecordUsage(r.Context(), meter.UsageRequest{
		UserID:         chi.URLParam(r, "userID"),
		TierID:         req.Tier,
		Quantity:       req.Quantity,
		OverageConsent: req.OverageConsent,
	})
	switch {
	case errors.Is(err, usage.ErrAccountingDeferred):
		writeJSON(w, http.StatusAccepted, receipt)
	case err != nil:
		h.fail(w, r, err)
	default:
		writeJSON(w, http.StatusOK, receipt)
	}
}

func (h *handlers) userCharges(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		h.fail(w, r, fmt.Errorf("%w: from and to must form a non-empty range", errBadParam))
		return
	}

	charges, err := h.engine.Biller().Charges(r.Context(), chi.URLParam(r, "userID"), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargesResponse{Charges: nonNil(charges)})
}

func (h *handlers) pendingCharges(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.fail(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadParam))
			return
		}
		limit = n
	}

	charges, err := h.engine.Biller().PendingCharges(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chargesResponse{Charges: nonNil(charges)})
}

func (h *handlers) updateChargeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "chargeID"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: invalid charge id", errBadParam))
		return
	}
	var req statusRequest
	if err := bindJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := overage.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	charge, err := h.engine.Biller().UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charge)
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dates use YYYY-MM-DD", errBadParam)
	}
	return t, nil
}

func nonNil(c []overage.Charge) []overage.Charge {
	if c == nil {
		return []overage.Charge{}
	}
	return c
}
