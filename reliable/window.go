package reliable

import "github.com/ringflow/ringcore"

// windowSlot holds one buffered, not-yet-delivered datagram payload (spec
// §4.5: "Slot i holds {sequence, valid, payload}").
type windowSlot struct {
	valid    bool
	sequence uint64
	payload  []byte
}

// RingWindow is the primary indexed structure of the reliable receive
// window (spec §4.5): a power-of-two array addressed by sequence mod
// window_size, delivering payloads strictly in order and detecting gaps for
// NAK generation.
type RingWindow struct {
	slots        []windowSlot
	mask         uint64
	nextExpected uint64
}

// NewRingWindow constructs a window of the given power-of-two size, starting
// at sequence 0.
func NewRingWindow(windowSize uint64) (*RingWindow, error) {
	if !ringcore.IsPowerOfTwo(windowSize) {
		return nil, ringcore.ErrConfiguration
	}
	return &RingWindow{
		slots: make([]windowSlot, windowSize),
		mask:  windowSize - 1,
	}, nil
}

// Size returns the window's slot count.
func (w *RingWindow) Size() uint64 { return w.mask + 1 }

// NextExpected returns the sequence the window is waiting to deliver next.
func (w *RingWindow) NextExpected() uint64 { return w.nextExpected }

// InWindow reports whether seq falls within [next_expected, next_expected +
// window_size), the range RingWindow can index directly.
func (w *RingWindow) InWindow(seq uint64) bool {
	return seq >= w.nextExpected && seq < w.nextExpected+w.Size()
}

// Insert buffers data at seq, returning true if it was accepted. Per spec
// §4.5: sequences before next_expected or beyond the window are dropped,
// as are duplicates and sequences whose slot is already occupied by an
// earlier undelivered message.
func (w *RingWindow) Insert(seq uint64, data []byte) bool {
	if !w.InWindow(seq) {
		return false
	}
	idx := seq & w.mask
	slot := &w.slots[idx]
	if slot.valid {
		return false // duplicate (same seq) or still-occupied by an earlier message
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	if len(payload) > MaxPacket {
		payload = payload[:MaxPacket]
	}
	*slot = windowSlot{valid: true, sequence: seq, payload: payload}
	return true
}

// DeliverInOrder repeatedly inspects the slot at next_expected, invoking cb
// with each contiguous in-order payload until the first gap, returning the
// count delivered (spec §4.5 "Delivery").
func (w *RingWindow) DeliverInOrder(cb func(seq uint64, payload []byte)) int {
	delivered := 0
	for {
		idx := w.nextExpected & w.mask
		slot := &w.slots[idx]
		if !slot.valid || slot.sequence != w.nextExpected {
			return delivered
		}
		cb(slot.sequence, slot.payload)
		*slot = windowSlot{}
		w.nextExpected++
		delivered++
	}
}

// MissingRanges scans [next_expected, next_expected+window_size) and
// coalesces runs of missing or invalid slots into contiguous inclusive
// ranges, the batch-NAK input of spec §4.5.
func (w *RingWindow) MissingRanges() [][2]uint64 {
	var ranges [][2]uint64
	var rangeStart uint64
	inRange := false
	size := w.Size()
	for i := uint64(0); i < size; i++ {
		seq := w.nextExpected + i
		idx := seq & w.mask
		slot := &w.slots[idx]
		missing := !slot.valid || slot.sequence != seq
		switch {
		case missing && !inRange:
			rangeStart = seq
			inRange = true
		case !missing && inRange:
			ranges = append(ranges, [2]uint64{rangeStart, seq - 1})
			inRange = false
		}
	}
	if inRange {
		ranges = append(ranges, [2]uint64{rangeStart, w.nextExpected + size - 1})
	}
	return ranges
}
