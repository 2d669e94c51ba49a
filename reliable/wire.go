// Package reliable implements the loss-tolerant UDP receive window of spec
// §4.5/§6: a fixed wire header, a primary indexed RingWindow with an ordered
// overflow map (HybridWindow), batch NAK coalescing, a send-side replay
// window for retransmission, and session keep-alive.
package reliable

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/ringflow/ringcore"
)

// HeaderSize is the fixed size, in bytes, of the wire header preceding every
// datagram's payload (spec §6).
const HeaderSize = 4 + 8 + 1 + 1 + 2 + 8 + 4

// MaxPacket bounds a single datagram's payload, keeping the reliable window
// consistent with typical UDP MTU budgets.
const MaxPacket = 1200

// Header is the fixed wire header of spec §6, carried at the front of every
// reliable-UDP datagram.
type Header struct {
	SessionID  uint32
	Sequence   uint64
	MsgType    ringcore.MessageType
	Flags      uint8
	PayloadLen uint16
	Timestamp  uint64
	Checksum   uint32
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ToBytes encodes h and payload into a single datagram, computing the CRC32
// checksum over the header (with the checksum field zeroed) followed by the
// payload, per spec §6.
func ToBytes(h Header, payload []byte) []byte {
	h.PayloadLen = uint16(len(payload))
	buf := make([]byte, HeaderSize+len(payload))
	encodeHeader(buf[:HeaderSize], h, 0)
	copy(buf[HeaderSize:], payload)
	h.Checksum = crc32.Checksum(buf, crcTable)
	binary.BigEndian.PutUint32(buf[HeaderSize-4:HeaderSize], h.Checksum)
	return buf
}

func encodeHeader(dst []byte, h Header, checksum uint32) {
	binary.BigEndian.PutUint32(dst[0:4], h.SessionID)
	binary.BigEndian.PutUint64(dst[4:12], h.Sequence)
	dst[12] = byte(h.MsgType)
	dst[13] = h.Flags
	binary.BigEndian.PutUint16(dst[14:16], h.PayloadLen)
	binary.BigEndian.PutUint64(dst[16:24], h.Timestamp)
	binary.BigEndian.PutUint32(dst[24:28], checksum)
}

// HeaderFromBytes parses and checksum-verifies a datagram, returning the
// header and a slice of b aliasing the payload bytes. A checksum mismatch or
// undersize datagram returns ringcore.ErrInvalidData and the datagram must
// be dropped silently (spec §6: "on mismatch the datagram is dropped
// silently").
func HeaderFromBytes(b []byte) (Header, []byte, error) {
	if len(b) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: datagram %d bytes shorter than header %d", ringcore.ErrInvalidData, len(b), HeaderSize)
	}
	h := Header{
		SessionID:  binary.BigEndian.Uint32(b[0:4]),
		Sequence:   binary.BigEndian.Uint64(b[4:12]),
		MsgType:    ringcore.MessageType(b[12]),
		Flags:      b[13],
		PayloadLen: binary.BigEndian.Uint16(b[14:16]),
		Timestamp:  binary.BigEndian.Uint64(b[16:24]),
		Checksum:   binary.BigEndian.Uint32(b[24:28]),
	}
	if int(h.PayloadLen) != len(b)-HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: payload_len %d disagrees with datagram size", ringcore.ErrInvalidData, h.PayloadLen)
	}

	verify := make([]byte, len(b))
	copy(verify, b)
	binary.BigEndian.PutUint32(verify[24:28], 0)
	if got := crc32.Checksum(verify, crcTable); got != h.Checksum {
		return Header{}, nil, fmt.Errorf("%w: checksum mismatch (got %#x want %#x)", ringcore.ErrInvalidData, got, h.Checksum)
	}
	return h, b[HeaderSize:], nil
}

// EncodeNAKSingle encodes a single missing sequence as an 8-byte NAK payload.
func EncodeNAKSingle(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// EncodeNAKRange encodes an inclusive [start, end] missing range as a
// 16-byte NAK payload (spec §6).
func EncodeNAKRange(start, end uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], start)
	binary.BigEndian.PutUint64(buf[8:16], end)
	return buf
}

// DecodeNAK parses a NAK payload of either 8 bytes (single sequence) or 16
// bytes (inclusive range), returning the range it names as [start, end].
func DecodeNAK(payload []byte) (start, end uint64, err error) {
	switch len(payload) {
	case 8:
		s := binary.BigEndian.Uint64(payload)
		return s, s, nil
	case 16:
		return binary.BigEndian.Uint64(payload[0:8]), binary.BigEndian.Uint64(payload[8:16]), nil
	default:
		return 0, 0, fmt.Errorf("%w: NAK payload must be 8 or 16 bytes, got %d", ringcore.ErrInvalidData, len(payload))
	}
}
