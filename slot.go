// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

package ringcore

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Slot is the uniform capability every ring core in this module requires of
// its element type (spec §4.1): read/write a sequence number and reset to a
// default value. Fixed8/16/32/64 and MessageSlot all implement it; the ring
// cores in the ring package are generic over Slot.
type Slot interface {
	// Sequence returns the value most recently stored by SetSequence.
	Sequence() uint64
	// SetSequence stamps the slot with s. Used by the variants whose
	// publication scheme checks the slot's own contents (MessageRingBuffer,
	// MPMC option (b)) rather than relying solely on a shared cursor.
	SetSequence(s uint64)
	// Reset restores the slot to its zero value, as if freshly allocated.
	Reset()
}

// Fixed8 is an 8-byte slot whose entire storage doubles as the sequence
// channel (spec §4.1: "Numeric slots... use their first 64-bit word as the
// sequence channel"). It carries no payload beyond that word, making it
// suitable for pure signal/counting channels.
type Fixed8 struct {
	word atomic.Uint64
}

// Sequence/SetSequence use Load/Store rather than a plain field access:
// MPMC's option (b) resolution (spec §9 KNOWN RISK) pairs SetSequence's
// release store against a concurrent reader's acquire load of the same
// field, which a bare uint64 field cannot establish under the memory model.
func (s *Fixed8) Sequence() uint64     { return s.word.Load() }
func (s *Fixed8) SetSequence(v uint64) { s.word.Store(v) }
func (s *Fixed8) Reset()               { s.word.Store(0) }

// Value returns the slot's 8-byte word.
func (s *Fixed8) Value() uint64 { return s.word.Load() }

// SetValue stores v in the slot's word. Because Fixed8 has no payload
// beyond its sequence word, SetValue and SetSequence alias the same field;
// ring cores call SetSequence, producers call SetValue.
func (s *Fixed8) SetValue(v uint64) { s.word.Store(v) }

// fixedPayload writes up to len(dst) bytes from src into dst, failing with
// ErrInvalidMessage if src is larger than the slot's payload capacity. It
// backs the SetData method on Fixed16/32/64.
func fixedPayload(dst []byte, src []byte) error {
	if len(src) > len(dst) {
		return fmt.Errorf("%w: payload %d bytes exceeds slot capacity %d", ErrInvalidMessage, len(src), len(dst))
	}
	clear(dst)
	copy(dst, src)
	return nil
}

// Fixed16 is a 16-byte slot: an 8-byte sequence word followed by 8 bytes of
// payload.
type Fixed16 struct {
	word atomic.Uint64
	data [8]byte
}

func (s *Fixed16) Sequence() uint64     { return s.word.Load() }
func (s *Fixed16) SetSequence(v uint64) { s.word.Store(v) }
func (s *Fixed16) Reset()               { s.word.Store(0); s.data = [8]byte{} }
func (s *Fixed16) Data() []byte         { return s.data[:] }
func (s *Fixed16) SetData(b []byte) error {
	return fixedPayload(s.data[:], b)
}

// Fixed32 is a 32-byte slot: an 8-byte sequence word followed by 24 bytes
// of payload.
type Fixed32 struct {
	word atomic.Uint64
	data [24]byte
}

func (s *Fixed32) Sequence() uint64     { return s.word.Load() }
func (s *Fixed32) SetSequence(v uint64) { s.word.Store(v) }
func (s *Fixed32) Reset()               { s.word.Store(0); s.data = [24]byte{} }
func (s *Fixed32) Data() []byte         { return s.data[:] }
func (s *Fixed32) SetData(b []byte) error {
	return fixedPayload(s.data[:], b)
}

// Fixed64 is a 64-byte slot: an 8-byte sequence word followed by 56 bytes
// of payload, sized to fill exactly one typical cache line.
type Fixed64 struct {
	word atomic.Uint64
	data [56]byte
}

func (s *Fixed64) Sequence() uint64     { return s.word.Load() }
func (s *Fixed64) SetSequence(v uint64) { s.word.Store(v) }
func (s *Fixed64) Reset()               { s.word.Store(0); s.data = [56]byte{} }
func (s *Fixed64) Data() []byte         { return s.data[:] }
func (s *Fixed64) SetData(b []byte) error {
	return fixedPayload(s.data[:], b)
}

// MessageType identifies the kind of a MessageSlot's payload, and doubles
// as the wire msg_type byte (spec §6) so the in-process slot and the
// on-the-wire reliable-UDP codec share one type space.
type MessageType uint8

const (
	MessageTypeData MessageType = iota
	MessageTypeHeartbeat
	MessageTypeNAK
	MessageTypeSessionStart
	MessageTypeSessionEnd
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeData:
		return "Data"
	case MessageTypeHeartbeat:
		return "Heartbeat"
	case MessageTypeNAK:
		return "NAK"
	case MessageTypeSessionStart:
		return "SessionStart"
	case MessageTypeSessionEnd:
		return "SessionEnd"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

const (
	// MessageSlotSize is the fixed size, in bytes, of a MessageSlot, so
	// slots in an array sit 128 bytes apart (spec §4.1). The struct itself
	// only has Go's 8-byte alignment: the start of a slot array is not
	// forced onto a 128-byte boundary, so adjacent slots can still share a
	// 128-byte cache line pair.
	MessageSlotSize = 128

	// messageHeaderSize is the size of MessageSlot's fixed header: 8
	// (sequence) + 8 (timestamp) + 4 (session id) + 4 (payload len) + 4
	// (checksum) + 1 (msg type) + 1 (flags) + 2 (reserved) = 32 bytes.
	messageHeaderSize = 32

	// MaxPayloadSize is the compile-time maximum payload a MessageSlot can
	// carry inline: MessageSlotSize - messageHeaderSize.
	MaxPayloadSize = MessageSlotSize - messageHeaderSize
)

// MessageSlot is the 128-byte "message slot": a fixed-size record carrying
// sequence, timestamp, session id, payload length, checksum, message type,
// flags, and an inline payload up to MaxPayloadSize bytes (spec §3/§4.1).
type MessageSlot struct {
	sequence   atomic.Uint64
	timestamp  uint64
	sessionID  uint32
	payloadLen uint32
	checksum   uint32
	msgType    MessageType
	flags      uint8
	_          [2]byte // reserved
	payload    [MaxPayloadSize]byte
}

// Sequence/SetSequence use Load/Store rather than a plain field access:
// MPMC's option (b) resolution (spec §9 KNOWN RISK) pairs SetSequence's
// release store against a concurrent reader's acquire load of the same
// field, which a bare uint64 field cannot establish under the memory model.
func (s *MessageSlot) Sequence() uint64     { return s.sequence.Load() }
func (s *MessageSlot) SetSequence(v uint64) { s.sequence.Store(v) }

// Reset restores the slot to its zero value. Slot contents are authoritative
// only between publication and completion (spec §3 Lifecycle); Reset does
// not need to be called between reuses, but is available for tests and for
// cold-start initialization.
func (s *MessageSlot) Reset() {
	s.sequence.Store(0)
	s.timestamp = 0
	s.sessionID = 0
	s.payloadLen = 0
	s.checksum = 0
	s.msgType = 0
	s.flags = 0
	s.payload = [MaxPayloadSize]byte{}
}

func (s *MessageSlot) Timestamp() uint64     { return s.timestamp }
func (s *MessageSlot) SessionID() uint32     { return s.sessionID }
func (s *MessageSlot) PayloadLen() uint32    { return s.payloadLen }
func (s *MessageSlot) Checksum() uint32      { return s.checksum }
func (s *MessageSlot) Type() MessageType     { return s.msgType }
func (s *MessageSlot) Flags() uint8          { return s.flags }
func (s *MessageSlot) SetFlags(f uint8)      { s.flags = f }
func (s *MessageSlot) SetType(t MessageType) { s.msgType = t }

// Payload returns the slot's payload bytes, sliced to PayloadLen. The
// returned slice aliases the slot's storage and must not be retained past
// the claim/read scope that produced it (spec §9, raw pointer arithmetic
// and lifetimes).
func (s *MessageSlot) Payload() []byte {
	return s.payload[:s.payloadLen]
}

// SetData writes b into the slot's payload, stamps the session id and
// timestamp, and computes the checksum over the stored bytes. It fails with
// ErrInvalidMessage before mutating the slot if b exceeds MaxPayloadSize
// (spec §4.1, "Policy on oversize payload").
func (s *MessageSlot) SetData(sessionID uint32, timestamp uint64, mt MessageType, b []byte) error {
	if len(b) > MaxPayloadSize {
		return fmt.Errorf("%w: payload %d bytes exceeds MessageSlot capacity %d", ErrInvalidMessage, len(b), MaxPayloadSize)
	}
	clear(s.payload[:])
	copy(s.payload[:], b)
	s.payloadLen = uint32(len(b))
	s.sessionID = sessionID
	s.timestamp = timestamp
	s.msgType = mt
	s.checksum = checksumPayload(s.payload[:s.payloadLen])
	return nil
}

// VerifyChecksum recomputes the checksum over the slot's stored payload
// bytes and reports whether it matches the stored value. Any single-byte
// alteration of the payload since SetData makes this return false with
// overwhelming probability (spec §4.1).
func (s *MessageSlot) VerifyChecksum() bool {
	return checksumPayload(s.payload[:s.payloadLen]) == s.checksum
}

// checksumPayload is the deterministic verifier required by spec §4.1/§9:
// identical bytes always produce the same value, and a single-byte change
// changes the value with overwhelming probability. xxHash64 is used here
// (truncated to 32 bits) as the non-hardware-CRC32 fallback the spec names
// explicitly in §9; the wire-level datagram checksum in the reliable
// package uses CRC32 instead, per spec §6's literal wire format table.
func checksumPayload(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}
