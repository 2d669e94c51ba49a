// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

// Package ring implements the four ring-buffer core topologies described in
// spec §4.2 — SPSC, MPSC, SPMC, MPMC — plus the MessageRingBuffer
// specialization of SPSC, sharing one cache-conscious substrate: a
// power-of-two array of slots addressed by sequence & (N-1), with
// independently cache-line-padded atomic cursors.
package ring

import (
	"fmt"

	"github.com/ringflow/ringcore"
)

// Slot constrains the generic parameter of every ring core in this
// package: T must be a struct whose pointer type implements
// ringcore.Slot, the uniform {Sequence, SetSequence, Reset} capability
// required by spec §4.1.
type Slot[T any] interface {
	*T
	ringcore.Slot
}

// validateCapacity enforces spec I1 and the Configuration error kind of
// spec §7: capacity must be a nonzero power of two.
func validateCapacity(capacity uint64) error {
	if !ringcore.IsPowerOfTwo(capacity) {
		return fmt.Errorf("%w: capacity %d must be a nonzero power of two", ringcore.ErrConfiguration, capacity)
	}
	return nil
}
