package reliable

import "github.com/ringflow/ringcore"

// Windower is the gap-detection half of RingWindow/HybridWindow that the NAK
// engine depends on, kept narrow so it can be satisfied by either.
type Windower interface {
	MissingRanges() [][2]uint64
}

// SendNAK emits one NAK datagram per contiguous missing range reported by
// w, via send, satisfying spec §4.5/P7 ("the union of emitted NAK ranges
// equals the set of missing sequences in the current window"). A
// single-sequence range is encoded as the 8-byte form, a wider range as the
// 16-byte form (spec §6).
func SendNAK(w Windower, sessionID uint32, timestamp uint64, send func(datagram []byte) error) error {
	for _, r := range w.MissingRanges() {
		var payload []byte
		if r[0] == r[1] {
			payload = EncodeNAKSingle(r[0])
		} else {
			payload = EncodeNAKRange(r[0], r[1])
		}
		h := Header{
			SessionID: sessionID,
			MsgType:   ringcore.MessageTypeNAK,
			Timestamp: timestamp,
		}
		if err := send(ToBytes(h, payload)); err != nil {
			return err
		}
	}
	return nil
}
