package wait

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Signal is the condvar a Blocking strategy parks on. Whoever advances the
// cursor a Blocking waiter watches calls Broadcast after updating it so that
// parked waiters wake up and re-check; the ring cores in this module do not
// call Broadcast themselves, so without a caller that does, a parked waiter
// re-checks only when its ParkFor timeout elapses. Signaling a
// Signal that nothing is parked on is a harmless no-op (spec §4.4:
// "Signaling a blocking strategy is a no-op for non-blocking variants").
type Signal struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewSignal returns a ready-to-use Signal.
func NewSignal() *Signal {
	s := &Signal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Broadcast wakes every goroutine parked in Wait.
func (s *Signal) Broadcast() {
	if s == nil {
		return
	}
	s.cond.Broadcast()
}

// Blocking spins briefly, then parks on a condvar with a timeout,
// minimizing CPU use at the cost of wake-up latency (spec §4.4).
type Blocking struct {
	// Signal is the condvar to park on. A nil Signal degrades to polling
	// with ParkFor between checks.
	Signal *Signal
	// SpinCount is the number of busy-spin iterations before parking.
	SpinCount int
	// ParkFor bounds each park so the strategy re-checks current() and the
	// shutdown flag periodically even without a spurious wakeup. Zero uses
	// a sensible default.
	ParkFor time.Duration
}

func (b Blocking) WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error) {
	spinCount := b.SpinCount
	if spinCount <= 0 {
		spinCount = 50
	}
	parkFor := b.ParkFor
	if parkFor <= 0 {
		parkFor = 5 * time.Millisecond
	}

	for spins := 0; spins < spinCount; spins++ {
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

	if b.Signal == nil {
		return pollUntil(ctx, target, current, shutdown, parkFor)
	}

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
		parkWithTimeout(b.Signal, parkFor)
	}
}

// parkWithTimeout waits on the signal's condvar for up to d before
// returning unconditionally, so WaitFor always gets a chance to re-check
// current()/shutdown even with no broadcast.
func parkWithTimeout(s *Signal, d time.Duration) {
	woke := make(chan struct{})
	go func() {
		s.mu.Lock()
		s.cond.Wait()
		s.mu.Unlock()
		close(woke)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-woke:
	case <-timer.C:
		// Nudge the parked waiter so its goroutine doesn't leak; harmless
		// if nobody else is listening.
		s.Broadcast()
		<-woke
	}
}

func pollUntil(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool, interval time.Duration) (uint64, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
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
		select {
		case <-ticker.C:
		case <-doneChan(ctx):
		}
	}
}
