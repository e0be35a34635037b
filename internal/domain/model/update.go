// Package model contains domain models passed between layers.
package model

import "github.com/google/uuid"

// PnlUpdate carries one wallet's realized PnL figure from a producer to the
// ranking board. A batch of updates has no identity of its own; it exists
// only for the duration of one coordinator call.
type PnlUpdate struct {
	UpdateID string  // unique id for idempotency; optional for sync callers
	Wallet   string  // wallet address, stored as an opaque string
	PnlUSD   float64 // realized profit-and-loss in USD
}

// NewUpdate builds a PnlUpdate with a generated UpdateID.
func NewUpdate(wallet string, pnlUSD float64) PnlUpdate {
	return PnlUpdate{
		UpdateID: uuid.NewString(),
		Wallet:   wallet,
		PnlUSD:   pnlUSD,
	}
}
