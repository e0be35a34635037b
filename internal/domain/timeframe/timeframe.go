// Package timeframe defines the closed set of rolling windows PnL is
// ranked over and their 1:1 mapping to ordered-set store keys.
//
// The set is fixed at compile time; there is no way to register a new
// timeframe at runtime.
package timeframe

import "fmt"

// Timeframe is one of the fixed rolling ranking windows.
type Timeframe string

const (
	Hour1 Timeframe = "1h"
	Day1  Timeframe = "1d"
	Day7  Timeframe = "7d"
	Day30 Timeframe = "30d"
)

// keyPrefix namespaces every board key in the store.
const keyPrefix = "pnl:board:"

// all is the registry, in display order. Never mutated after init.
var all = []Timeframe{Hour1, Day1, Day7, Day30} //nolint:gochecknoglobals // immutable registry

// All returns every known timeframe in display order.
// The returned slice is a copy; callers may reorder it freely.
func All() []Timeframe {
	out := make([]Timeframe, len(all))
	copy(out, all)
	return out
}

// Keys returns the store key for every known timeframe.
func Keys() []string {
	keys := make([]string, len(all))
	for i, tf := range all {
		keys[i] = tf.Key()
	}
	return keys
}

// Key returns the ordered-set key backing t.
func (t Timeframe) Key() string {
	return keyPrefix + string(t)
}

func (t Timeframe) String() string {
	return string(t)
}

// Valid reports whether t is one of the known windows.
func (t Timeframe) Valid() bool {
	switch t {
	case Hour1, Day1, Day7, Day30:
		return true
	default:
		return false
	}
}

// Parse converts a raw identifier such as "1d" into a Timeframe.
func Parse(raw string) (Timeframe, error) {
	tf := Timeframe(raw)
	if !tf.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknown, raw)
	}
	return tf, nil
}
