// Package repository defines the ranking board contract and errors.
package repository

import (
	"context"

	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
)

// Entry represents one leaderboard row. Rank is 1-based and always derived
// from the store's current descending order; it is never persisted.
type Entry struct {
	Rank   int
	Wallet string
	PnlUSD float64
	Period timeframe.Timeframe
}

// Stats aggregates one timeframe's board. The score fields are nil when the
// board is empty. AveragePnl is the mean of only the top and bottom score,
// kept as-is for compatibility with existing consumers.
type Stats struct {
	TotalWallets int64
	TopPnl       *float64
	BottomPnl    *float64
	AveragePnl   *float64
}

// Board provides read/write access to the per-timeframe ranking state.
//
// Writes targeting several timeframes travel in one batched request but are
// not applied atomically across timeframes: a failure can leave a subset
// updated, and callers must treat any write error as "state unknown".
// Ordering of wallets with equal scores is store-defined; callers must not
// rely on a specific tie-break.
type Board interface {
	// Connect establishes the store connection and runs a liveness probe.
	Connect(ctx context.Context) error

	// EnsureBoards idempotently initializes every timeframe's ordered set.
	EnsureBoards(ctx context.Context) error

	// UpsertScore writes pnl as wallet's score in each named timeframe,
	// overwriting any prior score. Empty tfs means all timeframes.
	UpsertScore(ctx context.Context, wallet string, pnl float64, tfs ...timeframe.Timeframe) error

	// BatchUpsert applies every update to each named timeframe as one
	// batched request per timeframe. Duplicate wallets within the batch
	// resolve last-write-wins in submitted order.
	BatchUpsert(ctx context.Context, updates []model.PnlUpdate, tfs ...timeframe.Timeframe) error

	// Remove deletes wallet from every timeframe. Absence is a no-op.
	Remove(ctx context.Context, wallet string) error

	// TopN returns the top n entries of tf ordered by score descending.
	TopN(ctx context.Context, tf timeframe.Timeframe, n int) ([]Entry, error)

	// Rank returns wallet's current entry in tf.
	// Returns ErrNotRanked if the wallet has no score there.
	Rank(ctx context.Context, wallet string, tf timeframe.Timeframe) (Entry, error)

	// RankRange returns the entries occupying the 1-based inclusive rank
	// range [start, end]. Ranges beyond the board truncate; an inverted
	// range yields an empty result.
	RankRange(ctx context.Context, tf timeframe.Timeframe, start, end int) ([]Entry, error)

	// Count returns the number of ranked wallets in tf.
	Count(ctx context.Context, tf timeframe.Timeframe) (int64, error)

	// Stats reports aggregate statistics for every timeframe.
	Stats(ctx context.Context) (map[timeframe.Timeframe]Stats, error)

	// DropBoards deletes every timeframe's ordered set outright. Reads
	// afterwards treat the missing sets as empty boards.
	DropBoards(ctx context.Context) error

	// Close releases the store connection.
	Close() error
}
