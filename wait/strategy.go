// Package wait implements the pluggable wait strategies of spec §4.4: the
// policy a consumer (or a blocking producer) uses when the sequence it
// needs is not yet available.
package wait

import (
	"context"
	"sync/atomic"

	"github.com/ringflow/ringcore"
)

// Strategy is the contract every wait strategy satisfies: return when
// target is available (current() has advanced to or past it) or when the
// shutdown flag is observed set, whichever happens first (spec §4.4/§5).
//
// WaitFor returns the observed current() value once target is reached, or
// ringcore.ErrShuttingDown if shutdown fired first.
type Strategy interface {
	WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error)
}

// checkShutdown is the one piece of control flow every strategy below
// shares: before (and between) spin iterations, notice a set shutdown
// flag and bail out immediately rather than waiting out the rest of the
// strategy's backoff schedule.
func checkShutdown(shutdown *atomic.Bool) error {
	if shutdown != nil && shutdown.Load() {
		return ringcore.ErrShuttingDown
	}
	return nil
}

// checkContext reports ctx's error, if any, unchanged (context.Canceled or
// context.DeadlineExceeded), so callers can tell a caller-cancelled wait
// apart from a shutdown-flag wait.
func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// reached reports whether c has advanced to or past target, using
// wrap-safe signed arithmetic (spec §3, invariant I7).
func reached(c, target uint64) bool {
	return ringcore.SeqDiff(c, target) >= 0
}
