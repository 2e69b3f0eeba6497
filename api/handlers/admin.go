package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/igorsal/commit-bridge/api/middleware"
	"github.com/igorsal/commit-bridge/internal/interfaces"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

type ReloadResponse struct {
	Status        string   `json:"status"`
	StatusMapping []string `json:"status_mapping"`
}

// StatusMappingReloadHandler re-reads the status mapping on demand
type StatusMappingReloadHandler struct {
	mappings interfaces.StatusMappingSource
	logger   interfaces.Logger
}

func NewStatusMappingReloadHandler(mappings interfaces.StatusMappingSource, logger interfaces.Logger) *StatusMappingReloadHandler {
	return &StatusMappingReloadHandler{
		mappings: mappings,
		logger:   logger,
	}
}

// Handle reloads the mapping. A failed reload leaves the active mapping in place.
func (h *StatusMappingReloadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.mappings.Reload()
	if err != nil {
		middleware.WriteError(w, r, h.logger,
			pkgerrors.NewInternalError("status mapping reload failed: "+err.Error()).WithCause(err))
		return
	}

	h.logger.Info("Status mapping reloaded via admin endpoint", "keys", mapping.Keys())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ReloadResponse{Status: "reloaded", StatusMapping: mapping.Keys()}); err != nil {
		h.logger.Error("Failed to encode reload response", err)
	}
}
