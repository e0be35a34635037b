package repository

import "errors"

// Sentinel kinds for board errors.
var (
	// ErrConnect means the store was unreachable or rejected the liveness
	// probe. Fatal at startup.
	ErrConnect = errors.New("ranking store connect failed")

	// ErrNotRanked marks a wallet absent from a timeframe. Soft: distinct
	// from an operation failure, and distinct from "ranked with score 0".
	ErrNotRanked = errors.New("wallet not ranked")

	// ErrInvalidLimit rejects non-positive top-N limits.
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
