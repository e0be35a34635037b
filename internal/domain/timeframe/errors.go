package timeframe

import "errors"

// Sentinel kinds for timeframe errors.
var (
	ErrUnknown = errors.New("unknown timeframe")
)
