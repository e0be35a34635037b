// Package address provides producer-side wallet address normalization.
//
// The ranking board stores addresses as opaque strings and performs no
// validation of its own; any checking or canonicalization happens here,
// before an update is enqueued. The normalizer is deliberately pluggable
// so stricter policies can be swapped in without touching the board.
package address

import "strings"

// Normalizer canonicalizes raw wallet addresses.
type Normalizer struct {
	lowercase bool
	maxLen    int
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLowercase controls case folding of addresses. Enabled by default so
// checksummed and lowercased submissions of the same wallet collapse into
// one board member.
func WithLowercase(enabled bool) Option {
	return func(n *Normalizer) {
		n.lowercase = enabled
	}
}

// WithMaxLength rejects addresses longer than limit. Zero disables the check.
func WithMaxLength(limit int) Option {
	return func(n *Normalizer) {
		if limit >= 0 {
			n.maxLen = limit
		}
	}
}

// defaultMaxLength is generous; it guards against garbage payloads, not
// against malformed-but-plausible addresses.
const defaultMaxLength = 128

// New constructs a Normalizer with default configuration.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		lowercase: true,
		maxLen:    defaultMaxLength,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the canonical form of raw and whether it is usable.
// Empty (after trimming) and oversized addresses are rejected.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", false
	}
	if n.maxLen > 0 && len(addr) > n.maxLen {
		return "", false
	}
	if n.lowercase {
		addr = strings.ToLower(addr)
	}
	return addr, true
}
