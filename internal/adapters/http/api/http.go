// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue pushes an update for async processing. Returns false on
	// backpressure or an unusable wallet address.
	Enqueue(ctx context.Context, u model.PnlUpdate) bool

	// Read operations expose leaderboard data.
	TopN(ctx context.Context, tf timeframe.Timeframe, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, wallet string, tf timeframe.Timeframe) (repository.Entry, error)
	RankRange(ctx context.Context, tf timeframe.Timeframe, start, end int) ([]repository.Entry, error)
	Count(ctx context.Context, tf timeframe.Timeframe) (int64, error)
	Stats(ctx context.Context) (map[timeframe.Timeframe]repository.Stats, error)

	// Administrative operations.
	RemoveWallet(ctx context.Context, wallet string) error
	ClearAll(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	updatesHandler     *UpdatesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	walletHandler      *WalletHandler
	adminHandler       *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps, statsProvider),
		updatesHandler:     NewUpdatesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		walletHandler:      NewWalletHandler(deps),
		adminHandler:       NewAdminHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/updates", MetricsMiddleware(s.updatesHandler.HandlePostUpdates, "updates"))
	mux.HandleFunc("/leaderboard/range", MetricsMiddleware(s.leaderboardHandler.HandleGetRange, "leaderboard_range"))
	mux.HandleFunc("/leaderboard/size", MetricsMiddleware(s.leaderboardHandler.HandleGetSize, "leaderboard_size"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/wallets/", MetricsMiddleware(s.walletHandler.HandleDeleteWallet, "wallets"))
	mux.HandleFunc("/admin/clear", MetricsMiddleware(s.adminHandler.HandleClear, "admin_clear"))
}

// entryResponse mirrors the read shape returned by leaderboard queries.
type entryResponse struct {
	Rank      int     `json:"rank"`
	Wallet    string  `json:"wallet"`
	PnlUSD    float64 `json:"pnl_usd"`
	Timeframe string  `json:"timeframe"`
}

func toEntryResponse(e repository.Entry) entryResponse {
	return entryResponse{
		Rank:      e.Rank,
		Wallet:    e.Wallet,
		PnlUSD:    e.PnlUSD,
		Timeframe: e.Period.String(),
	}
}

func toEntryResponses(entries []repository.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

type ackResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseTimeframe reads the timeframe query parameter, defaulting to 1d.
func parseTimeframe(r *http.Request) (timeframe.Timeframe, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("timeframe"))
	if raw == "" {
		return timeframe.Day1, nil
	}
	return timeframe.Parse(raw)
}

// isNotRanked translates the store's soft miss to 404 at the edge.
func isNotRanked(err error) bool {
	return errors.Is(err, repository.ErrNotRanked)
}
