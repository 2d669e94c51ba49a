// Package facade implements the thin producer/consumer wrappers of spec
// §4.6: bind a ring handle to caller-supplied writer/handler callbacks so
// application code never touches claim/publish/commit directly.
package facade

import (
	"context"
	"sync/atomic"

	"github.com/ringflow/ringcore/ring"
	"github.com/ringflow/ringcore/wait"
)

// Producer binds one of the cursor-style ring cores (SPSC, MPSC, SPMC, and
// MessageRingBuffer all share this TryClaim/Claim/Slot/Publish shape) to a
// caller-supplied slot writer. MPMC is excluded: its batch-1 restriction and
// single-sequence Publish/Claim signatures don't fit this batch-oriented
// shape, so callers drive it directly (see DESIGN.md).
type Producer[T any, PT ring.Slot[T]] struct {
	tryClaim func(count uint64) (uint64, error)
	claim    func(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error)
	slot     func(seq uint64) PT
	publish  func(start, count uint64)
}

// producerRing is the shape every cursor-style ring core exposes on its
// producer side.
type producerRing[T any, PT ring.Slot[T]] interface {
	TryClaim(count uint64) (uint64, error)
	Claim(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error)
	Slot(seq uint64) PT
	Publish(start, count uint64)
}

// NewProducer adapts any producerRing-shaped core into a Producer.
func NewProducer[T any, PT ring.Slot[T]](r producerRing[T, PT]) *Producer[T, PT] {
	return &Producer[T, PT]{
		tryClaim: r.TryClaim,
		claim:    r.Claim,
		slot:     r.Slot,
		publish:  r.Publish,
	}
}

// Publish claims a single slot, invokes write on it, and publishes, failing
// without blocking if the ring is full (spec §4.6: "claims the necessary
// slots, invokes the caller-provided writer once per slot, and publishes").
func (p *Producer[T, PT]) Publish(write func(PT)) error {
	start, err := p.tryClaim(1)
	if err != nil {
		return err
	}
	write(p.slot(start))
	p.publish(start, 1)
	return nil
}

// PublishBatch claims n consecutive slots, invoking write(i, slot) once per
// slot in [0, n) before publishing the whole batch with one Publish call.
func (p *Producer[T, PT]) PublishBatch(n uint64, write func(i uint64, slot PT)) error {
	start, err := p.tryClaim(n)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		write(i, p.slot(start+i))
	}
	p.publish(start, n)
	return nil
}

// PublishBlocking is Publish's blocking counterpart: it parks on strategy
// until a slot is available or shutdown fires.
func (p *Producer[T, PT]) PublishBlocking(ctx context.Context, strategy wait.Strategy, shutdown *atomic.Bool, write func(PT)) error {
	start, err := p.claim(ctx, 1, strategy, shutdown)
	if err != nil {
		return err
	}
	write(p.slot(start))
	p.publish(start, 1)
	return nil
}

// PublishBatchBlocking is PublishBatch's blocking counterpart.
func (p *Producer[T, PT]) PublishBatchBlocking(ctx context.Context, n uint64, strategy wait.Strategy, shutdown *atomic.Bool, write func(i uint64, slot PT)) error {
	start, err := p.claim(ctx, n, strategy, shutdown)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		write(i, p.slot(start+i))
	}
	p.publish(start, n)
	return nil
}
