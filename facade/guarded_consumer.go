package facade

import (
	"github.com/ringflow/ringcore/completion"
	"github.com/ringflow/ringcore/ring"
)

// GuardedConsumer is the fan-out counterpart of Consumer: it drives the
// completion-tracker-backed claim/commit cycle of SPMC and MPMC via the
// guard pattern (spec §4.2.3 "Early-exit guarantee"), so a handler that
// returns early still commits its whole claimed range.
type GuardedConsumer[T any, PT ring.Slot[T]] struct {
	claimReadGuard func(max uint64) (*completion.Guard, error)
	slot           func(seq uint64) PT
}

// guardedRing is the shape SPMC and MPMC share on their consumer side.
type guardedRing[T any, PT ring.Slot[T]] interface {
	ClaimReadGuard(max uint64) (*completion.Guard, error)
	Slot(seq uint64) PT
}

// NewGuardedConsumer adapts an SPMC or MPMC ring into a GuardedConsumer.
func NewGuardedConsumer[T any, PT ring.Slot[T]](r guardedRing[T, PT]) *GuardedConsumer[T, PT] {
	return &GuardedConsumer[T, PT]{claimReadGuard: r.ClaimReadGuard, slot: r.Slot}
}

// mpmcGuardedRing is the consumer-side shape MPMC adds on top of
// guardedRing: a per-slot verification hook required by its batch-1 CAS
// resolution of the §4.2.4 open question (a consumer must not trust a
// sequence's contents until VerifySlot confirms the producer's write has
// landed).
type mpmcGuardedRing[T any, PT ring.Slot[T]] interface {
	guardedRing[T, PT]
	VerifySlot(seq uint64) bool
}

// NewGuardedMPMCConsumer adapts an MPMC ring into a GuardedConsumer that
// additionally spins briefly on VerifySlot before handing a slot to
// onEvent, covering the narrow window in which the tracker has allocated a
// sequence to this consumer before the owning producer's slot write has
// become visible.
func NewGuardedMPMCConsumer[T any, PT ring.Slot[T]](r mpmcGuardedRing[T, PT]) *GuardedConsumer[T, PT] {
	return &GuardedConsumer[T, PT]{
		claimReadGuard: r.ClaimReadGuard,
		slot: func(seq uint64) PT {
			for !r.VerifySlot(seq) {
				// The producer's CAS on producerCursor is visible but its
				// slot write has not landed yet; spin until it has.
			}
			return r.Slot(seq)
		},
	}
}

// DrainOnce claims up to max sequences, invokes onEvent for each, and
// releases the guard (committing the whole claimed range) no matter which
// path onEvent or the caller's control flow takes, via defer. It returns
// whatever error ClaimReadGuard or onEvent produced; onEvent's error does
// not prevent the guard's commit.
func (c *GuardedConsumer[T, PT]) DrainOnce(max uint64, onEvent OnEvent[T, PT]) error {
	g, err := c.claimReadGuard(max)
	if err != nil {
		return err
	}
	defer g.Release()

	for i := uint64(0); i < g.Count(); i++ {
		seq := g.Start() + i
		if err := onEvent(c.slot(seq), seq, i == g.Count()-1); err != nil {
			return err
		}
	}
	return nil
}
