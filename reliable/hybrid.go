package reliable

import "sort"

// HybridWindow wraps a RingWindow with an ordered (sequence -> payload)
// overflow map so that datagrams arriving far ahead of next_expected are
// retained instead of dropped, without the primary indexed structure ever
// blocking on them (spec §4.5 "Hybrid window").
type HybridWindow struct {
	ring     *RingWindow
	overflow map[uint64][]byte
}

// NewHybridWindow constructs a HybridWindow over a RingWindow of the given
// power-of-two size.
func NewHybridWindow(windowSize uint64) (*HybridWindow, error) {
	ring, err := NewRingWindow(windowSize)
	if err != nil {
		return nil, err
	}
	return &HybridWindow{ring: ring, overflow: make(map[uint64][]byte)}, nil
}

// NextExpected returns the sequence the window is waiting to deliver next.
func (h *HybridWindow) NextExpected() uint64 { return h.ring.NextExpected() }

// Insert routes seq to the ring if it falls in the current indexable
// window, otherwise buffers it in the overflow map keyed by sequence (spec
// §4.5). A sequence already before next_expected is dropped in either case.
func (h *HybridWindow) Insert(seq uint64, data []byte) bool {
	if seq < h.ring.NextExpected() {
		return false
	}
	if h.ring.InWindow(seq) {
		return h.ring.Insert(seq, data)
	}
	if _, dup := h.overflow[seq]; dup {
		return false
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	h.overflow[seq] = payload
	return true
}

// DeliverInOrder drains the ring in order, and after each ring advance pulls
// the now-in-window entry for next_expected out of the overflow map into the
// ring before continuing to drain, per spec §4.5: "After each ring delivery
// step, remove the entry for next_expected from the map... and insert it
// into the ring, then continue delivering."
func (h *HybridWindow) DeliverInOrder(cb func(seq uint64, payload []byte)) int {
	delivered := 0
	for {
		n := h.ring.DeliverInOrder(cb)
		delivered += n
		next := h.ring.NextExpected()
		data, ok := h.overflow[next]
		if !ok {
			return delivered
		}
		delete(h.overflow, next)
		if !h.ring.Insert(next, data) {
			return delivered
		}
	}
}

// MissingRanges exposes the ring's gap detection; far-future overflow
// entries are, by construction, not gaps.
func (h *HybridWindow) MissingRanges() [][2]uint64 {
	return h.ring.MissingRanges()
}

// OverflowLen reports how many sequences are currently buffered beyond the
// indexable window, for diagnostics and tests.
func (h *HybridWindow) OverflowLen() int { return len(h.overflow) }

// overflowKeysSorted returns the overflow map's keys in ascending order, for
// deterministic test assertions.
func (h *HybridWindow) overflowKeysSorted() []uint64 {
	keys := make([]uint64, 0, len(h.overflow))
	for k := range h.overflow {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
