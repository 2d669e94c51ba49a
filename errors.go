// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

package ringcore

import "errors"

// Error kinds observable at the boundary of the ring substrate (spec §7).
// Transient kinds (ErrFull, ErrEmpty, ErrTimeout) are expected to be
// recovered locally by the caller via retry or a blocking wait strategy.
// Configuration kinds are fatal to the ring they were raised on.
var (
	// ErrFull is returned by a non-blocking claim when the ring has no
	// room for the requested count without overrunning the consumer (or
	// completed) cursor.
	ErrFull = errors.New("ringcore: ring full")

	// ErrEmpty is returned by a non-blocking read when there is nothing
	// published beyond the caller's cursor.
	ErrEmpty = errors.New("ringcore: ring empty")

	// ErrTimeout is returned by a bounded wait strategy when its deadline
	// elapses before the target sequence becomes available.
	ErrTimeout = errors.New("ringcore: wait timed out")

	// ErrShuttingDown is returned by a wait strategy when it observes the
	// shutdown flag set while still waiting.
	ErrShuttingDown = errors.New("ringcore: shutting down")

	// ErrInvalidMessage is returned when a payload write exceeds the
	// compile-time maximum for its slot type. A MessageSlot checksum that
	// fails to verify is reported by VerifyChecksum returning false, not by
	// this error.
	ErrInvalidMessage = errors.New("ringcore: invalid message")

	// ErrInvalidData is returned when a shared-memory header fails to
	// parse (bad magic, unsupported version, mismatched slot size) or a
	// wire-format datagram fails to parse.
	ErrInvalidData = errors.New("ringcore: invalid data")

	// ErrConfiguration is returned at construction time: non-power-of-two
	// or zero capacity, a consumer count exceeding capacity, or any other
	// argument combination that can never produce a usable ring. It is
	// also returned by operations given arguments they cannot accept: an
	// SPSC commit that does not start at the read cursor, completing a
	// sequence that was never claimed, an MPMC claim of more than one slot,
	// or a producer outrunning the completion table.
	ErrConfiguration = errors.New("ringcore: invalid configuration")
)
