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
	"github.com/ringflow/ringcore/internal/obs"
	"github.com/ringflow/ringcore/wait"
)

// SPSC is a single-producer, single-consumer ring buffer (spec §4.2.1).
// Claim is wait-free: the producer owns a private local cursor that no
// other goroutine observes, so no CAS is needed. Publish is a single
// release store that is the linearization point for consumers.
//
// Exactly one goroutine may call the producer methods (TryClaim, Claim,
// Publish) and exactly one goroutine may call the consumer methods
// (TryRead, Read, Commit). Violating this, like the teacher's own
// RingBuffer, causes data races.
type SPSC[T any, PT Slot[T]] struct {
	buffer []T
	mask   uint64
	cap    uint64

	producerCursor atomic.Uint64
	_              pad
	consumerCursor atomic.Uint64
	_              pad

	producerLocal uint64 // owned solely by the producer goroutine
	consumerLocal uint64 // owned solely by the consumer goroutine

	log obs.Logger
}

// NewSPSC constructs an SPSC ring of the given power-of-two capacity.
func NewSPSC[T any, PT Slot[T]](capacity uint64, log obs.Logger) (*SPSC[T, PT], error) {
	if err := validateCapacity(capacity); err != nil {
		log.Error("spsc: configuration error", zap.Error(err))
		return nil, err
	}
	return &SPSC[T, PT]{
		buffer: make([]T, capacity),
		mask:   capacity - 1,
		cap:    capacity,
		log:    log,
	}, nil
}

func (r *SPSC[T, PT]) Capacity() uint64 { return r.cap }

// Len reports how many published sequences have not yet been committed.
func (r *SPSC[T, PT]) Len() uint64 {
	return r.producerCursor.Load() - r.consumerCursor.Load()
}

// TryClaim reserves count consecutive sequences for the producer without
// blocking. It fails with ErrFull if doing so would publish a sequence s
// such that s - consumerCursor >= capacity (spec I2).
func (r *SPSC[T, PT]) TryClaim(count uint64) (start uint64, err error) {
	next := r.producerLocal + count
	consumed := r.consumerCursor.Load() // relaxed: producer-only fast path
	if next-consumed > r.cap {
		return 0, ringcore.ErrFull
	}
	start = r.producerLocal
	return start, nil
}

// Claim reserves count consecutive sequences, blocking via strategy until
// space is available or the shutdown flag fires.
func (r *SPSC[T, PT]) Claim(ctx context.Context, count uint64, strategy wait.Strategy, shutdown *atomic.Bool) (uint64, error) {
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
	return r.producerLocal, nil
}

// Slot returns a pointer to the slot at sequence seq, for the caller to
// write into after a successful claim. The returned pointer must not be
// retained past the claim/publish scope (spec §9).
func (r *SPSC[T, PT]) Slot(seq uint64) PT {
	return PT(&r.buffer[seq&r.mask])
}

// Publish makes [start, start+count) visible to the consumer with a single
// release store — the linearization point of spec §4.2.1.
func (r *SPSC[T, PT]) Publish(start, count uint64) {
	r.producerLocal = start + count
	r.producerCursor.Store(r.producerLocal)
}

// TryRead acquires a readable range of up to max sequences without
// blocking. It fails with ErrEmpty if nothing new has been published.
func (r *SPSC[T, PT]) TryRead(max uint64) (start, count uint64, err error) {
	published := r.producerCursor.Load() // acquire
	available := published - r.consumerLocal
	if available == 0 {
		return 0, 0, ringcore.ErrEmpty
	}
	if available > max {
		available = max
	}
	return r.consumerLocal, available, nil
}

// Read blocks via strategy until at least one sequence is readable, then
// returns a range of up to max sequences.
func (r *SPSC[T, PT]) Read(ctx context.Context, max uint64, strategy wait.Strategy, shutdown *atomic.Bool) (start, count uint64, err error) {
	if strategy == nil {
		strategy = wait.BusySpin{}
	}
	published, err := strategy.WaitFor(ctx, r.consumerLocal+1, r.producerCursor.Load, shutdown)
	if err != nil {
		return 0, 0, err
	}
	available := published - r.consumerLocal
	if available > max {
		available = max
	}
	return r.consumerLocal, available, nil
}

// Commit releases [start, start+count) for producer reuse with a release
// store to the consumer cursor, the back-pressure boundary the producer's
// claim reads.
func (r *SPSC[T, PT]) Commit(start, count uint64) error {
	if start != r.consumerLocal {
		return fmt.Errorf("%w: commit start %d does not match outstanding read cursor %d", ringcore.ErrConfiguration, start, r.consumerLocal)
	}
	r.consumerLocal = start + count
	r.consumerCursor.Store(r.consumerLocal)
	return nil
}
