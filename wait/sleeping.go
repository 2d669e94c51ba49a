package wait

import (
	"context"
	"sync/atomic"
	"time"
)

// Sleeping spins briefly, then falls back to a fixed-duration sleep between
// checks — low urgency, suited to background consumers (spec §4.4).
type Sleeping struct {
	// SpinCount is the number of busy-spin iterations before sleeping.
	SpinCount int
	// SleepFor is the fixed duration slept between checks once spinning
	// stops. Zero uses a sensible default.
	SleepFor time.Duration
}

func (s Sleeping) WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error) {
	spinCount := s.SpinCount
	if spinCount <= 0 {
		spinCount = 50
	}
	sleepFor := s.SleepFor
	if sleepFor <= 0 {
		sleepFor = time.Millisecond
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
		if spins < spinCount {
			spins++
			continue
		}
		timer := time.NewTimer(sleepFor)
		select {
		case <-timer.C:
		case <-doneChan(ctx):
			timer.Stop()
		}
	}
}

// doneChan returns ctx.Done() or a nil channel (which blocks forever in a
// select) when ctx is nil.
func doneChan(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		return nil
	}
	return ctx.Done()
}
