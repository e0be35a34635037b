// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
)

// StatsDependencies defines the interface for board statistics.
type StatsDependencies interface {
	Stats(ctx context.Context) (map[timeframe.Timeframe]repository.Stats, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// boardStatsResponse mirrors one timeframe's aggregate numbers. The score
// fields are null when the board is empty.
type boardStatsResponse struct {
	TotalWallets int64    `json:"total_wallets"`
	TopPnlUSD    *float64 `json:"top_pnl_usd"`
	BottomPnlUSD *float64 `json:"bottom_pnl_usd"`
	AvgPnlUSD    *float64 `json:"avg_pnl_usd"`
}

type statsResponse struct {
	Boards  map[string]boardStatsResponse `json:"boards"`
	Service map[string]interface{}        `json:"service"`
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps          StatsDependencies
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies, statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{
		deps:          deps,
		statsProvider: statsProvider,
	}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	boardStats, err := h.deps.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	boards := make(map[string]boardStatsResponse, len(boardStats))
	for tf, s := range boardStats {
		boards[tf.String()] = boardStatsResponse{
			TotalWallets: s.TotalWallets,
			TopPnlUSD:    s.TopPnl,
			BottomPnlUSD: s.BottomPnl,
			AvgPnlUSD:    s.AveragePnl,
		}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Boards:  boards,
		Service: h.statsProvider.GetStats(),
	})
}
