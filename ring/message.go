// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

package ring

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/wait"
)

// MessageRingBuffer is the SPSC specialization for ringcore.MessageSlot
// (spec §4.2.5). Beyond plain SPSC it stamps each claimed slot with its own
// sequence as part of the write, caches the consumer's cursor as a
// gatingSequence refreshed lazily on a failed claim, and supports a
// non-destructive Peek for retransmission scenarios.
type MessageRingBuffer struct {
	buffer []ringcore.MessageSlot
	mask   uint64
	cap    uint64

	producerCursor atomic.Uint64
	_              pad
	consumerCursor atomic.Uint64
	_              pad

	producerLocal uint64
	consumerLocal uint64

	// gatingSequence caches the minimum consumer cursor so the producer's
	// fast path can avoid re-reading consumerCursor on every claim; it
	// starts at ringcore.NotStarted (spec §9, open question 2) and is
	// refreshed whenever a claim appears to fail.
	gatingSequence atomic.Uint64

	log obs.Logger
}

// NewMessageRingBuffer constructs a MessageRingBuffer of the given
// power-of-two capacity.
func NewMessageRingBuffer(capacity uint64, log obs.Logger) (*MessageRingBuffer, error) {
	if err := validateCapacity(capacity); err != nil {
		log.Error("message ring: configuration error", zap.Error(err))
		return nil, err
	}
	r := &MessageRingBuffer{
		buffer: make([]ringcore.MessageSlot, capacity),
		mask:   capacity - 1,
		cap:    capacity,
		log:    log,
	}
	r.gatingSequence.Store(ringcore.NotStarted)
	return r, nil
}

func (r *MessageRingBuffer) Capacity() uint64 { return r.cap }

// refreshGating recomputes the cached gating sequence from the live
// consumer cursor, the lazy-refresh step spec §4.2.5 calls for when a claim
// would otherwise fail.
func (r *MessageRingBuffer) refreshGating() uint64 {
	g := r.consumerCursor.Load()
	r.gatingSequence.Store(g)
	return g
}

// TryClaim reserves count consecutive sequences, refreshing the cached
// gating sequence and re-checking once before failing with ErrFull.
func (r *MessageRingBuffer) TryClaim(count uint64) (start uint64, err error) {
	next := r.producerLocal + count
	gating := r.gatingSequence.Load()
	if gating == ringcore.NotStarted || next-gating > r.cap {
		gating = r.refreshGating()
		if next-gating > r.cap {
			return 0, ringcore.ErrFull
		}
	}
	return r.producerLocal, nil
}

// Claim blocks via strategy until space is available.
func (r *MessageRingBuffer) Claim(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	next := r.producerLocal + count
	target := uint64(0)
	if next > r.cap {
		target = next - r.cap
	}
	if _, err := strategy.WaitFor(ctx, target, r.consumerCursor.Load, shutdown); err != nil {
		return 0, err
	}
	r.refreshGating()
	return r.producerLocal, nil
}

// Slot returns a pointer to the slot at sequence seq.
func (r *MessageRingBuffer) Slot(seq uint64) *ringcore.MessageSlot {
	return &r.buffer[seq&r.mask]
}

// Publish stamps every claimed slot with its own sequence number (so
// consumers can validate slot freshness independent of producerCursor,
// spec §4.2.5) and then releases producerCursor.
func (r *MessageRingBuffer) Publish(start, count uint64) {
	for seq := start; seq < start+count; seq++ {
		r.buffer[seq&r.mask].SetSequence(seq)
	}
	r.producerLocal = start + count
	r.producerCursor.Store(r.producerLocal)
}

// TryRead acquires a readable range, additionally validating that each
// candidate slot's stamped sequence matches what is expected: a slot whose
// stored sequence disagrees with producerCursor's claim is treated as
// not-yet-published even though producerCursor says otherwise (spec
// §4.2.5).
func (r *MessageRingBuffer) TryRead(max uint64) (start, count uint64, err error) {
	published := r.producerCursor.Load()
	available := published - r.consumerLocal
	if available == 0 {
		return 0, 0, ringcore.ErrEmpty
	}
	if available > max {
		available = max
	}
	n := uint64(0)
	for n < available {
		seq := r.consumerLocal + n
		if r.buffer[seq&r.mask].Sequence() != seq {
			break
		}
		n++
	}
	if n == 0 {
		return 0, 0, ringcore.ErrEmpty
	}
	return r.consumerLocal, n, nil
}

// Read blocks via strategy until at least one sequence is readable.
func (r *MessageRingBuffer) Read(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool) (start, count uint64, err error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	if _, err := strategy.WaitFor(ctx, r.consumerLocal+1, r.producerCursor.Load, shutdown); err != nil {
		return 0, 0, err
	}
	return r.TryRead(max)
}

// Peek non-destructively inspects the slot at seq without advancing the
// consumer cursor, for retransmission scenarios (spec §4.2.5) where a
// sender needs to re-read an already-read-but-not-yet-overwritten slot.
func (r *MessageRingBuffer) Peek(seq uint64) (*ringcore.MessageSlot, bool) {
	if seq >= r.producerCursor.Load() {
		return nil, false
	}
	slot := &r.buffer[seq&r.mask]
	if slot.Sequence() != seq {
		return nil, false
	}
	return slot, true
}

// Commit releases [start, start+count) for producer reuse.
func (r *MessageRingBuffer) Commit(start, count uint64) {
	r.consumerLocal = start + count
	r.consumerCursor.Store(r.consumerLocal)
}
