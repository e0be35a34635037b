// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// WalletDependencies defines the interface for wallet removal.
type WalletDependencies interface {
	RemoveWallet(ctx context.Context, wallet string) error
}

// WalletHandler handles wallet administration requests.
type WalletHandler struct {
	deps WalletDependencies
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(deps WalletDependencies) *WalletHandler {
	return &WalletHandler{deps: deps}
}

type removedResponse struct {
	Status string `json:"status"`
	Wallet string `json:"wallet"`
}

// HandleDeleteWallet handles DELETE /wallets/{wallet} requests.
// Removing an absent wallet succeeds; the operation is idempotent.
func (h *WalletHandler) HandleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	wallet := strings.TrimPrefix(r.URL.Path, "/wallets/")
	if wallet == "" || strings.Contains(wallet, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.RemoveWallet(r.Context(), wallet); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Status: "removed", Wallet: wallet})
}
