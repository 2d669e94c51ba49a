package completion

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/ringflow/ringcore/internal/obs"
)

// Guard is a scoped acquisition of a claimed read range: its Release
// commits the whole range exactly once, regardless of how the caller's
// control flow exits the scope (spec §4.2.3, "Early-exit guarantee"; §9,
// "prefer a guard-release pattern over explicit complete() calls").
//
// Typical use:
//
//	g, err := tracker.ClaimReadGuard(producerCursor, max, log)
//	if err != nil {
//	    return // nothing was claimed
//	}
//	defer g.Release()
//	for i := uint64(0); i < g.Count(); i++ {
//	    if shouldStopEarly(g.Start() + i) {
//	        return // Release still runs, still commits the full range
//	    }
//	}
type Guard struct {
	tracker *Tracker
	start   uint64
	count   uint64
	once    sync.Once
	log     obs.Logger
}

// ClaimReadGuard is TryClaimRead wrapped in a Guard. It returns the same
// error TryClaimRead would if nothing is available.
func (t *Tracker) ClaimReadGuard(producerCursor, max uint64, log obs.Logger) (*Guard, error) {
	start, n, err := t.TryClaimRead(producerCursor, max)
	if err != nil {
		return nil, err
	}
	g := &Guard{tracker: t, start: start, count: n, log: log}
	runtime.SetFinalizer(g, finalizeGuard)
	return g, nil
}

// Start returns the first sequence in the guarded range.
func (g *Guard) Start() uint64 { return g.start }

// Count returns the number of sequences in the guarded range.
func (g *Guard) Count() uint64 { return g.count }

// Release commits the entire guarded range exactly once (spec I5). It is
// safe to call multiple times and safe to defer: the first call does the
// work, subsequent calls are no-ops.
func (g *Guard) Release() {
	g.once.Do(func() {
		runtime.SetFinalizer(g, nil)
		if err := g.tracker.CompleteBatch(g.start, g.count); err != nil {
			g.log.Error("completion: guard release failed", zap.Error(err), zap.Uint64("start", g.start), zap.Uint64("count", g.count))
		}
	})
}

// finalizeGuard is a diagnostic safety net, not a substitute for an
// explicit Release: if a Guard is garbage-collected without ever having
// been released, that is a P4-violating bug in the caller, and it is
// logged so it is visible instead of silently stalling completedCursor
// forever.
func finalizeGuard(g *Guard) {
	committed := false
	g.once.Do(func() { committed = true })
	if committed {
		g.log.Error("completion: guard garbage-collected without Release; committing late",
			zap.Uint64("start", g.start), zap.Uint64("count", g.count))
		_ = g.tracker.CompleteBatch(g.start, g.count)
	}
}
