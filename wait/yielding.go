package wait

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Yielding calls runtime.Gosched between checks for a fixed number of
// iterations, then falls back to a brief sleep between checks — moderate
// latency, moderate CPU use (spec §4.4). It has no pure busy-spin phase:
// every one of its first SpinCount iterations yields.
type Yielding struct {
	// SpinCount is the number of iterations that yield via runtime.Gosched
	// before sleeping starts. Zero uses a sensible default.
	SpinCount int
	// SleepFor is the duration slept between checks once the SpinCount
	// yielding iterations are used up. Zero uses a sensible default.
	SleepFor time.Duration
}

func (y Yielding) WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error) {
	spinCount := y.SpinCount
	if spinCount <= 0 {
		spinCount = 100
	}
	sleepFor := y.SleepFor
	if sleepFor <= 0 {
		sleepFor = 50 * time.Microsecond
	}

	spins := 0
	for {
		if c := current(); reached(c, target) {
			return c, nil
		}
		if err := checkShutdown(shutdown); err != nil {
			return 0, err
		}
		if err := checkContext(ctx); err != nil {
			return 0, err
		}

		switch {
		case spins < spinCount:
			runtime.Gosched()
		default:
			time.Sleep(sleepFor)
		}
		spins++
	}
}
