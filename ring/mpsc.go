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
	"math/bits"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/wait"
)

// MPSC is a many-producer, single-consumer ring buffer (spec §4.2.2).
// Producers race on a shared claimCursor with CAS; because they may finish
// writing out of order, the consumer cannot treat claimCursor as the
// published boundary. Instead each slot carries a one-bit "round parity"
// flag, flipped (by being set to the expected parity for the current pass)
// each time that slot index is published; the consumer scans parity bits
// forward from its own cursor to find the highest contiguously published
// sequence.
type MPSC[T any, PT Slot[T]] struct {
	buffer []T
	parity []atomic.Uint32 // 0 or 1, one per slot index
	mask   uint64
	cap    uint64
	log2N  uint

	claimCursor    atomic.Uint64
	_              pad
	consumerCursor atomic.Uint64
	_              pad

	consumerLocal uint64

	log obs.Logger
}

// NewMPSC constructs an MPSC ring of the given power-of-two capacity.
func NewMPSC[T any, PT Slot[T]](capacity uint64, log obs.Logger) (*MPSC[T, PT], error) {
	if err := validateCapacity(capacity); err != nil {
		log.Error("mpsc: configuration error", zap.Error(err))
		return nil, err
	}
	return &MPSC[T, PT]{
		buffer: make([]T, capacity),
		parity: make([]atomic.Uint32, capacity),
		mask:   capacity - 1,
		cap:    capacity,
		log2N:  uint(bits.TrailingZeros64(capacity)),
		log:    log,
	}, nil
}

func (r *MPSC[T, PT]) Capacity() uint64 { return r.cap }

// expectedParity is the parity bit a slot at sequence seq must carry once
// published: the complement of the round parity (sequence >> log2(N) & 1),
// so that the first publish of a slot flips its zero initial value to 1 and
// every later pass flips it again.
func (r *MPSC[T, PT]) expectedParity(seq uint64) uint32 {
	return uint32(((seq >> r.log2N) & 1) ^ 1)
}

// TryClaim reserves count consecutive sequences via CAS on claimCursor,
// retrying on a lost race, failing with ErrFull if the reservation would
// outrun consumerCursor by a full ring capacity (spec I2).
func (r *MPSC[T, PT]) TryClaim(count uint64) (start uint64, err error) {
	for {
		current := r.claimCursor.Load()
		next := current + count
		if next-r.consumerCursor.Load() > r.cap {
			return 0, ringcore.ErrFull
		}
		if r.claimCursor.CompareAndSwap(current, next) {
			return current, nil
		}
	}
}

// Claim blocks via strategy until space is available, then claims as
// TryClaim would.
func (r *MPSC[T, PT]) Claim(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	for {
		current := r.claimCursor.Load()
		next := current + count
		if next-r.consumerCursor.Load() > r.cap {
			target := next - r.cap
			if _, err := strategy.WaitFor(ctx, target, r.consumerCursor.Load, shutdown); err != nil {
				return 0, err
			}
			continue
		}
		if r.claimCursor.CompareAndSwap(current, next) {
			return current, nil
		}
	}
}

// Slot returns a pointer to the slot at sequence seq.
func (r *MPSC[T, PT]) Slot(seq uint64) PT {
	return PT(&r.buffer[seq&r.mask])
}

// Publish marks [start, start+count) published by setting each slot's
// parity bit to the expected value for its pass over the ring, with
// release ordering so the consumer's acquire load observes the prior slot
// write.
func (r *MPSC[T, PT]) Publish(start, count uint64) {
	for seq := start; seq < start+count; seq++ {
		r.parity[seq&r.mask].Store(r.expectedParity(seq))
	}
}

// TryRead scans parity bits forward from the consumer's cursor, stopping
// at the first slot whose parity does not match the expected value for its
// pass, and never scanning past claimCursor. It fails with ErrEmpty if the
// very first slot is not yet published.
func (r *MPSC[T, PT]) TryRead(max uint64) (start, count uint64, err error) {
	limit := r.claimCursor.Load()
	seq := r.consumerLocal
	n := uint64(0)
	for seq+n < limit && n < max {
		if r.parity[(seq+n)&r.mask].Load() != r.expectedParity(seq+n) {
			break
		}
		n++
	}
	if n == 0 {
		return 0, 0, ringcore.ErrEmpty
	}
	return seq, n, nil
}

// Read blocks via strategy until at least one sequence is readable.
func (r *MPSC[T, PT]) Read(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool) (start, count uint64, err error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	target := r.consumerLocal
	check := func() uint64 {
		s, n, err := r.TryRead(max)
		if err != nil {
			return target // unchanged: not yet available
		}
		return s + n
	}
	if _, err := strategy.WaitFor(ctx, target+1, check, shutdown); err != nil {
		return 0, 0, err
	}
	return r.TryRead(max)
}

// Commit releases [start, start+count) for producer reuse with a release
// store to consumerCursor (spec §4.2.2: "Single consumer advances
// consumer_cursor with release").
func (r *MPSC[T, PT]) Commit(start, count uint64) {
	r.consumerLocal = start + count
	r.consumerCursor.Store(r.consumerLocal)
}
