// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// AdminDependencies defines the interface for destructive administration.
type AdminDependencies interface {
	ClearAll(ctx context.Context) error
}

// AdminHandler handles administrative requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type clearedResponse struct {
	Status string `json:"status"`
}

// HandleClear handles POST /admin/clear requests. All boards are deleted
// outright; subsequent reads see empty boards.
func (h *AdminHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, clearedResponse{Status: "cleared"})
}
