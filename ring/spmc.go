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
	"github.com/ringflow/ringcore/completion"
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/wait"
)

// SPMC is a single-producer, many-consumer ring buffer (spec §4.2.3). The
// producer's claim is identical to SPSC's, but gates on the completion
// tracker's completedCursor rather than a raw consumer cursor, since reads
// may finish out of order across consumers.
type SPMC[T any, PT Slot[T]] struct {
	buffer []T
	mask   uint64
	cap    uint64

	producerCursor atomic.Uint64
	_              pad

	producerLocal uint64
	tracker       *completion.Tracker

	log obs.Logger
}

// NewSPMC constructs an SPMC ring of the given power-of-two capacity.
func NewSPMC[T any, PT Slot[T]](capacity uint64, log obs.Logger) (*SPMC[T, PT], error) {
	if err := validateCapacity(capacity); err != nil {
		log.Error("spmc: configuration error", zap.Error(err))
		return nil, err
	}
	return &SPMC[T, PT]{
		buffer:  make([]T, capacity),
		mask:    capacity - 1,
		cap:     capacity,
		tracker: completion.NewTracker(),
		log:     log,
	}, nil
}

func (r *SPMC[T, PT]) Capacity() uint64 { return r.cap }

// Tracker exposes the completion tracker backing this ring's consumer
// side, for callers that want the Guard-based read API directly.
func (r *SPMC[T, PT]) Tracker() *completion.Tracker { return r.tracker }

// TryClaim reserves count consecutive sequences for the single producer,
// gated on the completion tracker's completedCursor (spec §4.2.3).
func (r *SPMC[T, PT]) TryClaim(count uint64) (start uint64, err error) {
	next := r.producerLocal + count
	if next-r.tracker.CompletedCursor() > r.cap {
		return 0, ringcore.ErrFull
	}
	if err := r.tracker.CheckCapacity(next); err != nil {
		return 0, err
	}
	return r.producerLocal, nil
}

// Claim blocks via strategy until space is available.
func (r *SPMC[T, PT]) Claim(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	next := r.producerLocal + count
	target := uint64(0)
	if next > r.cap {
		target = next - r.cap
	}
	if _, err := strategy.WaitFor(ctx, target, r.tracker.CompletedCursor, shutdown); err != nil {
		return 0, err
	}
	return r.producerLocal, nil
}

func (r *SPMC[T, PT]) Slot(seq uint64) PT {
	return PT(&r.buffer[seq&r.mask])
}

// Publish makes [start, start+count) visible with a release store,
// followed by the acquire fence every reader's TryClaimRead implies by
// reading producerCursor before claiming.
func (r *SPMC[T, PT]) Publish(start, count uint64) {
	r.producerLocal = start + count
	r.producerCursor.Store(r.producerLocal)
}

// TryClaimRead hands a consumer up to max sequences to read, via the
// completion tracker (spec §4.2.3, "Read (consumers)").
func (r *SPMC[T, PT]) TryClaimRead(max uint64) (start, count uint64, err error) {
	return r.tracker.TryClaimRead(r.producerCursor.Load(), max)
}

// ClaimReadGuard is the guard-based equivalent of TryClaimRead, recommended
// by spec §9 to eliminate the "early exit without commit" bug class (P4).
func (r *SPMC[T, PT]) ClaimReadGuard(max uint64) (*completion.Guard, error) {
	return r.tracker.ClaimReadGuard(r.producerCursor.Load(), max, r.log)
}

// Complete commits seq, as a reader finishing out of order would.
func (r *SPMC[T, PT]) Complete(seq uint64) error {
	return r.tracker.Complete(seq)
}

// CompleteBatch commits [start, start+count).
func (r *SPMC[T, PT]) CompleteBatch(start, count uint64) error {
	return r.tracker.CompleteBatch(start, count)
}
