// Package completion implements the completion tracker of spec §4.3: the
// subsystem that lets SPMC and MPMC consumers finalize reads out of order
// while still exposing a monotonically advancing completed cursor for
// producer back-pressure.
package completion

import (
	"fmt"
	"sync/atomic"

	"github.com/ringflow/ringcore"
)

// TableSize is the fixed size of the completion table (spec §4.3/§9): this
// imposes the hard constraint producerCursor - completedCursor <= TableSize
// on any ring using a Tracker.
const TableSize = 1 << 16

const tableMask = TableSize - 1

// Tracker decouples "claimed for reading" from "finished reading" so that
// SPMC/MPMC consumers may commit out of order (spec §4.3).
type Tracker struct {
	claimCursor    atomic.Uint64
	completedCursor atomic.Uint64
	completed      [TableSize]atomic.Bool
}

// NewTracker returns a ready-to-use Tracker with both cursors at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// ClaimCursor returns the next sequence that will be handed to a reader.
func (t *Tracker) ClaimCursor() uint64 { return t.claimCursor.Load() }

// CompletedCursor returns the back-pressure boundary: sequences at or
// below it may be overwritten by the producer.
func (t *Tracker) CompletedCursor() uint64 { return t.completedCursor.Load() }

// TryClaimRead atomically advances claimCursor by up to count, clamped to
// what producerCursor has made available, and hands the caller
// [start, start+n) to read. It returns ringcore.ErrEmpty if nothing is
// available (spec §4.3: "let available = producer_cursor - claim_cursor;
// if zero, return None").
func (t *Tracker) TryClaimRead(producerCursor, count uint64) (start, n uint64, err error) {
	for {
		current := t.claimCursor.Load()
		available := producerCursor - current
		if available == 0 {
			return 0, 0, ringcore.ErrEmpty
		}
		n = count
		if n > available {
			n = available
		}
		if t.claimCursor.CompareAndSwap(current, current+n) {
			return current, n, nil
		}
	}
}

// Complete marks seq as finished and attempts to advance completedCursor.
// It is safe to call from multiple reader goroutines and in any order
// relative to other sequences in flight (spec §4.3, "Out-of-order
// completion").
func (t *Tracker) Complete(seq uint64) error {
	if d := int64(t.claimCursor.Load() - seq); d <= 0 {
		return fmt.Errorf("%w: sequence %d was never claimed", ringcore.ErrConfiguration, seq)
	}
	t.completed[seq&tableMask].Store(true) // release
	t.advance()
	return nil
}

// CompleteBatch marks every sequence in [start, start+count) as finished
// and attempts to advance completedCursor once, after all flags are set.
func (t *Tracker) CompleteBatch(start, count uint64) error {
	claimed := t.claimCursor.Load()
	if int64(claimed-(start+count)) < 0 {
		return fmt.Errorf("%w: range [%d,%d) exceeds claimed range ending at %d", ringcore.ErrConfiguration, start, start+count, claimed)
	}
	for seq := start; seq < start+count; seq++ {
		t.completed[seq&tableMask].Store(true)
	}
	t.advance()
	return nil
}

// advance walks completedCursor forward over the contiguous prefix of set
// flags, clearing each flag as it passes so the slot is clean when its
// table index is reused (spec §4.3, "advance loop").
func (t *Tracker) advance() {
	for {
		current := t.completedCursor.Load()
		if current >= t.claimCursor.Load() {
			return
		}
		idx := current & tableMask
		if !t.completed[idx].Load() {
			return
		}
		if t.completedCursor.CompareAndSwap(current, current+1) {
			t.completed[idx].Store(false)
			continue
		}
		// Lost the race to another completer's advance; re-read and retry.
	}
}

// CheckCapacity reports ringcore.ErrConfiguration if producerCursor has
// outrun completedCursor by more than the table size, the configuration error
// named by spec §4.3 invariant C3. Ring cores built on a Tracker should
// call this before claiming a producer batch.
func (t *Tracker) CheckCapacity(producerCursor uint64) error {
	if producerCursor-t.completedCursor.Load() > TableSize {
		return fmt.Errorf("%w: in-flight batch exceeds completion table range of %d", ringcore.ErrConfiguration, TableSize)
	}
	return nil
}
