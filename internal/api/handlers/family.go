package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/api/middleware"
	"github.com/Iron-Cow/MonoProject/internal/family"
)

// FamilyHandler serves visibility-scope queries for the report/bot layer.
type FamilyHandler struct {
	service *family.Service
	log     zerolog.Logger
}

// NewFamilyHandler creates the handler.
func NewFamilyHandler(service *family.Service, log zerolog.Logger) *FamilyHandler {
	return &FamilyHandler{service: service, log: log}
}

// Expand handles POST /family/expand.
func (h *FamilyHandler) Expand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		UserIDs   []string `json:"user_ids"`
		Recursive bool     `json:"recursive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expanded, err := h.service.Expand(r.Context(), req.UserIDs, req.Recursive)
	if err != nil {
		h.log.Error().Err(err).Msg("Family expansion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to expand family")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_ids": expanded,
		"count":    len(expanded),
	})
}
