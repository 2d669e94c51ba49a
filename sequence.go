// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

package ringcore

// Sequence is a monotonically increasing position in a ring. Wrap-around is
// nominal: comparisons use unsigned arithmetic so a difference stays correct
// even after the counter wraps past math.MaxUint64, as long as the two
// sequences being compared are within one ring capacity of each other (spec
// §3, invariant I7).
type Sequence = uint64

// NotStarted is the MessageRingBuffer cold-start sentinel: a gating sequence
// that has never been computed. It is never a publishable sequence; it only
// ever appears as the initial value of a lazily-refreshed cache (spec §9,
// open question 2).
const NotStarted Sequence = ^Sequence(0)

// SeqDiff returns a-b as a signed distance, correct under wrap-around as
// long as the true distance is within the range of int64 (spec §3: "always
// hold... unsigned arithmetic with wrap-safe differences when bounded by
// capacity").
func SeqDiff(a, b Sequence) int64 {
	return int64(a - b)
}

// SeqLess reports whether a precedes b, accounting for wrap-around.
func SeqLess(a, b Sequence) bool {
	return SeqDiff(a, b) < 0
}

// IsPowerOfTwo reports whether n is a nonzero power of two, the capacity
// constraint every ring in this module enforces at construction (spec I1).
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}
