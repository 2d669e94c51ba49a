package facade

import (
	"context"
	"sync/atomic"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/ring"
	"github.com/ringflow/ringcore/wait"
)

// OnEvent is the per-slot handler a Consumer loop invokes: event is the
// slot's contents, sequence its position, and endOfBatch true on the last
// element of the batch just drained (spec §4.6, "allowing consumers to
// amortize flushes").
type OnEvent[T any, PT ring.Slot[T]] func(event PT, sequence uint64, endOfBatch bool) error

// Consumer runs the batch-read/handle/commit loop of spec §4.6 over a
// cursor-style ring core. It is built from closures rather than a single
// structural interface because the cursor-style cores don't all agree on
// Commit's signature (SPSC validates its argument and can fail; MPSC and
// MessageRingBuffer cannot) — each NewXConsumer constructor below adapts its
// ring's actual methods into this common shape.
type Consumer[T any, PT ring.Slot[T]] struct {
	tryRead func(max uint64) (uint64, uint64, error)
	read    func(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, uint64, error)
	slot    func(seq uint64) PT
	commit  func(start, count uint64) error
}

// spscLike is the TryRead/Read/Slot shape shared by SPSC, MPSC, and
// MessageRingBuffer.
type spscLike[T any, PT ring.Slot[T]] interface {
	TryRead(max uint64) (start, count uint64, err error)
	Read(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool) (start, count uint64, err error)
	Slot(seq uint64) PT
}

// NewSPSCConsumer builds a Consumer over an SPSC ring, whose Commit is
// fallible. MessageRingBuffer's Commit reports no error, so it goes through
// NewNoErrCommitConsumer instead.
func NewSPSCConsumer[T any, PT ring.Slot[T]](r spscLike[T, PT], commit func(start, count uint64) error) *Consumer[T, PT] {
	return &Consumer[T, PT]{tryRead: r.TryRead, read: r.Read, slot: r.Slot, commit: commit}
}

// NewNoErrCommitConsumer builds a Consumer over a ring whose Commit cannot
// fail and so reports no error — MPSC and MessageRingBuffer both have this
// shape.
func NewNoErrCommitConsumer[T any, PT ring.Slot[T]](r spscLike[T, PT], commit func(start, count uint64)) *Consumer[T, PT] {
	return &Consumer[T, PT]{
		tryRead: r.TryRead,
		read:    r.Read,
		slot:    r.Slot,
		commit:  func(start, count uint64) error { commit(start, count); return nil },
	}
}

// DrainOnce reads up to max available sequences without blocking, invokes
// onEvent for each, and commits the whole batch once the loop finishes. It
// returns ringcore.ErrEmpty if nothing was available.
func (c *Consumer[T, PT]) DrainOnce(max uint64, onEvent OnEvent[T, PT]) error {
	start, count, err := c.tryRead(max)
	if err != nil {
		return err
	}
	return c.handleAndCommit(start, count, onEvent)
}

// Run blocks via strategy for at least one sequence, drains up to max per
// batch, and repeats until the shutdown flag fires, at which point it
// performs one final non-blocking drain and returns (spec §5: "a final
// non-waiting drain and exits").
func (c *Consumer[T, PT]) Run(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool, onEvent OnEvent[T, PT]) error {
	for {
		start, count, err := c.read(ctx, max, strategy, shutdown)
		if err == ringcore.ErrShuttingDown {
			return c.finalDrain(max, onEvent)
		}
		if err != nil {
			return err
		}
		if err := c.handleAndCommit(start, count, onEvent); err != nil {
			return err
		}
	}
}

// finalDrain performs the non-blocking drain spec §5 requires once shutdown
// has been observed, stopping at the first empty read.
func (c *Consumer[T, PT]) finalDrain(max uint64, onEvent OnEvent[T, PT]) error {
	for {
		start, count, err := c.tryRead(max)
		if err == ringcore.ErrEmpty {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.handleAndCommit(start, count, onEvent); err != nil {
			return err
		}
	}
}

func (c *Consumer[T, PT]) handleAndCommit(start, count uint64, onEvent OnEvent[T, PT]) error {
	for i := uint64(0); i < count; i++ {
		seq := start + i
		if err := onEvent(c.slot(seq), seq, i == count-1); err != nil {
			return err
		}
	}
	return c.commit(start, count)
}
