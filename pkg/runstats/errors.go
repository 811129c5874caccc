// Package runstats computes running statistics and linear regression in a
// single pass with constant memory.
//
// Statistics tracks count, extrema and the first four centered moments of a
// stream. Regression tracks two Statistics plus a co-moment. The exponential
// variants (ExponentialStatistics, ExponentialCovariance) forget old samples
// by a per-push or per-elapsed-time decay. Summaries of the same kind can be
// merged and rescaled, and every type exposes a flat state tuple for
// checkpointing.
//
// None of the types are safe for concurrent use. Accumulate per goroutine
// and combine with Merge.
package runstats

import "errors"

var (
	// ErrInvalidDecay is returned when a decay outside (0, 1) is supplied.
	ErrInvalidDecay = errors.New("runstats: decay must be in (0, 1)")

	// ErrInvalidDelay is returned for a negative or non-finite delay.
	ErrInvalidDelay = errors.New("runstats: delay must be positive")

	// ErrNotTimeBased is returned when a timer operation is used on a
	// position-based accumulator.
	ErrNotTimeBased = errors.New("runstats: accumulator is not time based")

	// ErrNotFrozen is returned by Unfreeze when Freeze was not called.
	ErrNotFrozen = errors.New("runstats: accumulator is not frozen")

	// ErrAlreadyFrozen is returned by Freeze on a frozen accumulator.
	ErrAlreadyFrozen = errors.New("runstats: accumulator is already frozen")

	// ErrStateLength is returned when a state tuple has the wrong length.
	ErrStateLength = errors.New("runstats: invalid state length")
)
