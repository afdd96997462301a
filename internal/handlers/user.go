package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"icarus/internal/entries"
	mw "icarus/internal/middleware"
)

type UserHandler struct {
	svc    *entries.Service
	logger *zap.Logger
}

func NewUserHandler(svc *entries.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

func (h *UserHandler) GetProteinGoal(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	goal, err := h.svc.GetGoal(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "Error fetching protein goal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"proteinGoal": goal})
}

type goalRequest struct {
	ProteinGoal flexString `json:"proteinGoal"`
}

func (h *UserHandler) UpdateProteinGoal(w http.ResponseWriter, r *http.Request) {
	userID, _ := mw.UserIDFromContext(r.Context())
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, "Error updating protein goal", err)
		return
	}

	user, err := h.svc.SetGoal(r.Context(), userID, string(req.ProteinGoal))
	if err != nil {
		writeError(w, h.logger, "Error updating protein goal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Protein goal updated successfully!",
		"user":    ToUserDTO(*user),
	})
}
