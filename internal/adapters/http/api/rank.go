// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
)

// RankDependencies defines the interface for rank lookups.
type RankDependencies interface {
	Rank(ctx context.Context, wallet string, tf timeframe.Timeframe) (repository.Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{wallet}?timeframe=1d requests.
// A wallet with no score in the timeframe yields 404, distinct from store
// failures which yield 500.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	wallet := strings.TrimPrefix(r.URL.Path, "/rank/")
	if wallet == "" || strings.Contains(wallet, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	tf, err := parseTimeframe(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entry, err := h.deps.Rank(r.Context(), wallet, tf)
	if err != nil {
		if isNotRanked(err) {
			writeError(w, http.StatusNotFound, "not_ranked", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}
