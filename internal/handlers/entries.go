package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"icarus/internal/apperror"
	"icarus/internal/entries"
	"icarus/internal/metrics"
	mw "icarus/internal/middleware"
)

// EntryHandler serves the per-user entry collection. Every read takes an optional
// "time" query parameter naming the caller's "today".
type EntryHandler struct {
	svc    *entries.Service
	logger *zap.Logger
}

func NewEntryHandler(svc *entries.Service, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{svc: svc, logger: logger}
}

func (h *EntryHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "Error adding entry", err)
		return
	}

	entry, err := h.svc.Add(r.Context(), userID, entries.AddInput{
		MealName:      req.MealName,
		ProteinAmount: string(req.ProteinAmount),
		Time:          req.Time,
	})
	if err != nil {
		writeError(w, h.logger, "Error adding entry", err)
		return
	}
	metrics.EntriesAdded(1, entry.ProteinAmount)
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) GetTodaysEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	ref, err := h.svc.Reference(r.URL.Query().Get("time"))
	if err != nil {
		writeError(w, h.logger, "Error fetching entries", err)
		return
	}
	list, err := h.svc.ListToday(r.Context(), userID, ref)
	if err != nil {
		writeError(w, h.logger, "Error fetching entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todaysEntries": list})
}

func (h *EntryHandler) SumTodaysEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	ref, err := h.svc.Reference(r.URL.Query().Get("time"))
	if err != nil {
		writeError(w, h.logger, "Error summing entries", err)
		return
	}
	sum, err := h.svc.SumToday(r.Context(), userID, ref)
	if err != nil {
		writeError(w, h.logger, "Error summing entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "Total protein consumed today:",
		"totalProteinToday": sum,
	})
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	entryID := chi.URLParam(r, "entryId")

	if err := h.svc.Delete(r.Context(), userID, entryID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Entry not found.")
			return
		}
		writeError(w, h.logger, "Error deleting entry", err)
		return
	}
	metrics.EntryDeleted()
	writeMessage(w, http.StatusOK, "Entry deleted successfully.")
}

func (h *EntryHandler) GetAllPastEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	ref, err := h.svc.Reference(r.URL.Query().Get("time"))
	if err != nil {
		writeError(w, h.logger, "Error fetching entries", err)
		return
	}
	list, err := h.svc.ListAllUpTo(r.Context(), userID, ref)
	if err != nil {
		writeError(w, h.logger, "Error fetching entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pastEntries": list})
}
