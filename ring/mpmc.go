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
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ringflow/ringcore"
	"github.com/ringflow/ringcore/completion"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/wait"
)

// MPMC is a many-producer, many-consumer ring buffer (spec §4.2.4).
//
// Resolution of the §4.2.4/§9 open question: this implementation takes
// option (b) — producer batches are restricted to size 1 and claimed via
// CAS directly on producerCursor; each slot is stamped with its own
// sequence (via PT.SetSequence, a release store) by Publish, after the
// producer's write and after the claim's CAS has already advanced
// producerCursor. A reader verifies
// slot.Sequence() == expected before trusting the slot's contents, and
// treats a mismatch as not-yet-published rather than as an error — this
// is what makes it safe for a consumer to observe an advanced
// producerCursor before the corresponding slot write has landed (the
// KNOWN RISK spec §9 calls out against CAS-on-cursor without per-slot
// verification).
type MPMC[T any, PT Slot[T]] struct {
	buffer []T
	mask   uint64
	cap    uint64

	producerCursor atomic.Uint64
	_              pad

	tracker *completion.Tracker
	log     obs.Logger
}

// NewMPMC constructs an MPMC ring of the given power-of-two capacity.
func NewMPMC[T any, PT Slot[T]](capacity uint64, log obs.Logger) (*MPMC[T, PT], error) {
	if err := validateCapacity(capacity); err != nil {
		log.Error("mpmc: configuration error", zap.Error(err))
		return nil, err
	}
	r := &MPMC[T, PT]{
		buffer:  make([]T, capacity),
		mask:    capacity - 1,
		cap:     capacity,
		tracker: completion.NewTracker(),
		log:     log,
	}
	// Stamp every slot with a value no sequence ever takes, so that an
	// unpublished slot (including the one for sequence 0) fails VerifySlot.
	for i := range r.buffer {
		PT(&r.buffer[i]).SetSequence(^uint64(0))
	}
	return r, nil
}

func (r *MPMC[T, PT]) Capacity() uint64 { return r.cap }

// Tracker exposes the completion tracker backing this ring's consumer
// side.
func (r *MPMC[T, PT]) Tracker() *completion.Tracker { return r.tracker }

// TryClaim reserves exactly one sequence via CAS on producerCursor. count
// must be 1; larger batches are rejected because per-slot sequence
// stamping (this ring's MPMC resolution) only disambiguates a single
// in-flight write per slot at a time.
func (r *MPMC[T, PT]) TryClaim(count uint64) (start uint64, err error) {
	if count != 1 {
		return 0, fmt.Errorf("%w: MPMC claims are restricted to batch size 1", ringcore.ErrConfiguration)
	}
	for {
		current := r.producerCursor.Load()
		next := current + 1
		if next-r.tracker.CompletedCursor() > r.cap {
			return 0, ringcore.ErrFull
		}
		if err := r.tracker.CheckCapacity(next); err != nil {
			return 0, err
		}
		if r.producerCursor.CompareAndSwap(current, next) {
			return current, nil
		}
	}
}

// Claim blocks via strategy until TryClaim(1) would succeed.
func (r *MPMC[T, PT]) Claim(ctx context.Context, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	for {
		start, err := r.TryClaim(1)
		if err == nil {
			return start, nil
		}
		if err != ringcore.ErrFull {
			return 0, err
		}
		target := r.producerCursor.Load() + 1 - r.cap
		if _, werr := strategy.WaitFor(ctx, target, r.tracker.CompletedCursor, shutdown); werr != nil {
			return 0, werr
		}
	}
}

func (r *MPMC[T, PT]) Slot(seq uint64) PT {
	return PT(&r.buffer[seq&r.mask])
}

// Publish stamps the slot at seq with its own sequence number, then
// releases it: the producer must have already written the slot's payload
// before calling Publish, so SetSequence acts as the release-visible
// "this slot is done" marker a concurrent reader checks for.
func (r *MPMC[T, PT]) Publish(seq uint64) {
	r.Slot(seq).SetSequence(seq)
}

// TryClaimRead hands a consumer up to max sequences to attempt, via the
// completion tracker. Because producerCursor may be visible before the
// corresponding slot write lands, the caller must additionally check
// VerifySlot before trusting a given sequence's contents (spec §4.2.4).
func (r *MPMC[T, PT]) TryClaimRead(max uint64) (start, count uint64, err error) {
	return r.tracker.TryClaimRead(r.producerCursor.Load(), max)
}

// ClaimReadGuard is the guard-based equivalent of TryClaimRead.
func (r *MPMC[T, PT]) ClaimReadGuard(max uint64) (*completion.Guard, error) {
	return r.tracker.ClaimReadGuard(r.producerCursor.Load(), max, r.log)
}

// VerifySlot reports whether the slot at seq actually carries seq as its
// stamped sequence. A false result means the producer's CAS on
// producerCursor has been observed ahead of its slot write landing; the
// caller should treat the sequence as not-yet-published and retry rather
// than reading stale or torn data.
func (r *MPMC[T, PT]) VerifySlot(seq uint64) bool {
	return r.Slot(seq).Sequence() == seq
}

// Complete commits seq.
func (r *MPMC[T, PT]) Complete(seq uint64) error {
	return r.tracker.Complete(seq)
}

// CompleteBatch commits [start, start+count).
func (r *MPMC[T, PT]) CompleteBatch(start, count uint64) error {
	return r.tracker.CompleteBatch(start, count)
}
