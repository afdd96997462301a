package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"icarus/internal/entries"
	"icarus/internal/metrics"
	mw "icarus/internal/middleware"
)

type ImportHandler struct {
	svc    *entries.Service
	logger *zap.Logger
}

func NewImportHandler(svc *entries.Service, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

type importRequest struct {
	Entries []entryRequest `json:"entries"`
}

// ImportEntries godoc
// @Summary Import entries
// @Description Stores a batch of past-dated entries for the authenticated user; nothing is stored if any entry is invalid
// @Tags entries
// @Accept json
// @Produce json
// @Param data body importRequest true "Entries to import"
// @Success 201 {object} map[string]interface{} "Entries imported"
// @Failure 400 {object} messageResponse "Invalid entry"
// @Router /user/importEntries [post]
func (h *ImportHandler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "Error importing entries", err)
		return
	}

	items := make([]entries.AddInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		items = append(items, entries.AddInput{
			MealName:      e.MealName,
			ProteinAmount: string(e.ProteinAmount),
			Time:          e.Time,
		})
	}

	list, err := h.svc.Import(r.Context(), userID, items)
	if err != nil {
		writeError(w, h.logger, "Error importing entries", err)
		return
	}
	metrics.EntriesImported(len(list), entries.SumProtein(list))
	h.logger.Info("entries imported", zap.Int("user_id", userID), zap.Int("count", len(list)))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Entries imported successfully",
		"imported": len(list),
	})
}
