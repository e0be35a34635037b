// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, tf timeframe.Timeframe, n int) ([]repository.Entry, error)
	RankRange(ctx context.Context, tf timeframe.Timeframe, start, end int) ([]repository.Entry, error)
	Count(ctx context.Context, tf timeframe.Timeframe) (int64, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?timeframe=1d&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tf, err := parseTimeframe(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if h.maxLimit > 0 && n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}
	entries, err := h.deps.TopN(r.Context(), tf, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

// HandleGetRange handles GET /leaderboard/range?timeframe=1d&start=S&end=E
// requests. Ranks are 1-based and inclusive; an inverted range yields an
// empty list.
func (h *LeaderboardHandler) HandleGetRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tf, err := parseTimeframe(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	start, err := strconv.Atoi(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	end, err := strconv.Atoi(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entries, err := h.deps.RankRange(r.Context(), tf, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

type sizeResponse struct {
	Timeframe string `json:"timeframe"`
	Count     int64  `json:"count"`
}

// HandleGetSize handles GET /leaderboard/size?timeframe=1d requests.
func (h *LeaderboardHandler) HandleGetSize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tf, err := parseTimeframe(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	count, err := h.deps.Count(r.Context(), tf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, sizeResponse{Timeframe: tf.String(), Count: count})
}
