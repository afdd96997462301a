package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"icarus/internal/apperror"
	"icarus/internal/entries"
	mw "icarus/internal/middleware"
)

type HistoryHandler struct {
	svc    *entries.Service
	logger *zap.Logger
}

func NewHistoryHandler(svc *entries.Service, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, logger: logger}
}

type historyResponse struct {
	ReferenceDate string             `json:"referenceDate"`
	ProteinGoal   string             `json:"proteinGoal"`
	Days          []entries.DayTotal `json:"days"`
}

// DailyTotals powers the history chart: per-day totals for the last N days ending at the
// caller's today. Accepts optional query params time (see the entry routes) and days (1-31, default 7).
func (h *HistoryHandler) DailyTotals(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	q := r.URL.Query()

	ref, err := h.svc.Reference(q.Get("time"))
	if err != nil {
		writeError(w, h.logger, "Error building history", err)
		return
	}

	days := entries.DefaultHistoryDays
	if raw := q.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, "Error building history", apperror.ValidationFailed("days", "days must be a whole number"))
			return
		}
	}

	totals, err := h.svc.DailyTotals(r.Context(), userID, ref, days)
	if err != nil {
		writeError(w, h.logger, "Error building history", err)
		return
	}
	goal, err := h.svc.GetGoal(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "Error building history", err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		ReferenceDate: entries.DateKey(ref, ref.Location()),
		ProteinGoal:   goal,
		Days:          totals,
	})
}
