package wait

import (
	"context"
	"sync/atomic"
)

// BusySpin spins in a tight loop, yielding the lowest possible latency at
// the cost of burning a full core while waiting (spec §4.4). Unlike
// Yielding, it never calls runtime.Gosched: handing the core back to the
// scheduler on every iteration is exactly the latency Yielding trades away,
// and doing it here would make BusySpin indistinguishable from Yielding's
// spin phase.
type BusySpin struct{}

func (BusySpin) WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error) {
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
	}
}
