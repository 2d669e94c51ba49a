package reliable

import "github.com/ringflow/ringcore"

// ErrAgedOut is returned by SendWindow.Lookup when a requested sequence has
// already been evicted by newer sends (spec §4.5: "If the sequence has aged
// out of the window, it is unrecoverable").
var ErrAgedOut = ringcore.ErrInvalidData

// sendSlot holds one previously sent datagram, keyed by sequence, for replay
// on NAK.
type sendSlot struct {
	occupied bool
	sequence uint64
	datagram []byte
}

// SendWindow is the send-side counterpart of RingWindow (spec §4.5
// "Retransmission"): a ring-buffer of previously sent datagrams, indexed by
// sequence mod window_size, so a NAK for a recent sequence can be served by
// retransmitting the exact bytes originally sent.
type SendWindow struct {
	slots []sendSlot
	mask  uint64
}

// NewSendWindow constructs a send-side replay window of the given
// power-of-two size.
func NewSendWindow(windowSize uint64) (*SendWindow, error) {
	if !ringcore.IsPowerOfTwo(windowSize) {
		return nil, ringcore.ErrConfiguration
	}
	return &SendWindow{slots: make([]sendSlot, windowSize), mask: windowSize - 1}, nil
}

// Record stores datagram (the full wire-encoded bytes) under seq, evicting
// whatever previously occupied that index.
func (s *SendWindow) Record(seq uint64, datagram []byte) {
	buf := make([]byte, len(datagram))
	copy(buf, datagram)
	s.slots[seq&s.mask] = sendSlot{occupied: true, sequence: seq, datagram: buf}
}

// Lookup returns the previously recorded datagram for seq, or ErrAgedOut if
// the slot has since been overwritten by a later send (including the case
// where seq was never sent at all).
func (s *SendWindow) Lookup(seq uint64) ([]byte, error) {
	slot := s.slots[seq&s.mask]
	if !slot.occupied || slot.sequence != seq {
		return nil, ErrAgedOut
	}
	return slot.datagram, nil
}

// Retransmit looks up and resends every sequence in the inclusive range
// [start, end] via send, skipping (and counting) sequences that have aged
// out rather than failing the whole batch.
func (s *SendWindow) Retransmit(start, end uint64, send func(datagram []byte) error) (sent, agedOut int, err error) {
	for seq := start; seq <= end; seq++ {
		datagram, lookupErr := s.Lookup(seq)
		if lookupErr != nil {
			agedOut++
			if seq == end {
				break
			}
			continue
		}
		if err := send(datagram); err != nil {
			return sent, agedOut, err
		}
		sent++
		if seq == end {
			break
		}
	}
	return sent, agedOut, nil
}
