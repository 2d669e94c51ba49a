package shm

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// HeaderSize is the fixed size, in bytes, of the shared-memory ring's
// header: four 64-byte cache-line-padded fields (spec §6).
const HeaderSize = 256

const cacheLine = 64

// Magic identifies a valid ringcore shared-memory ring file: the ASCII
// bytes "FLUX_SHR" read as a big-endian u64 (spec §6).
const Magic uint64 = 0x464c55585f534852

// Version is the only on-disk layout version this package writes and
// accepts.
const Version uint32 = 1

// Field offsets within the header, one per cache line (spec §6).
const (
	offMagic    = 0
	offVersion  = 8
	offCapacity = 12
	offSlotSize = 16
	// offReserved0 fills the remainder of line 0.

	offProducerCursor = 1 * cacheLine
	// offReserved1 fills the remainder of line 1.

	offCachedConsumerCursor = 2 * cacheLine
	// offReserved2 fills the remainder of line 2.

	offConsumerCursor = 3 * cacheLine
	// offReserved3 fills the remainder of line 3.
)

// header is a typed view over the first HeaderSize bytes of a mapped file.
// Every accessor operates directly on the backing bytes so that two
// independent mappings of the same file (producer and consumer handles,
// per spec §4.2.6) observe each other's writes.
type header struct {
	bytes []byte
}

func newHeaderView(mapped []byte) header {
	return header{bytes: mapped[:HeaderSize:HeaderSize]}
}

func (h header) magic() uint64   { return binary.BigEndian.Uint64(h.bytes[offMagic:]) }
func (h header) version() uint32 { return binary.BigEndian.Uint32(h.bytes[offVersion:]) }
func (h header) capacity() uint32 { return binary.BigEndian.Uint32(h.bytes[offCapacity:]) }
func (h header) slotSize() uint32 { return binary.BigEndian.Uint32(h.bytes[offSlotSize:]) }

func (h header) writeStatic(capacity, slotSize uint32) {
	binary.BigEndian.PutUint64(h.bytes[offMagic:], Magic)
	binary.BigEndian.PutUint32(h.bytes[offVersion:], Version)
	binary.BigEndian.PutUint32(h.bytes[offCapacity:], capacity)
	binary.BigEndian.PutUint32(h.bytes[offSlotSize:], slotSize)
}

// atomicAt returns a *atomic.Uint64 view over the 8 bytes at offset off
// within the mapped header. mmap-go hands back a plain []byte, so placing
// an atomic cursor inside it requires this unsafe cast; the cast is sound
// because HeaderSize-aligned offsets here are all multiples of 8 and the
// backing mapping is page-aligned.
func (h header) atomicAt(off int) *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&h.bytes[off]))
}

func (h header) producerCursor() *atomic.Uint64        { return h.atomicAt(offProducerCursor) }
func (h header) cachedConsumerCursor() *atomic.Uint64   { return h.atomicAt(offCachedConsumerCursor) }
func (h header) consumerCursor() *atomic.Uint64         { return h.atomicAt(offConsumerCursor) }
