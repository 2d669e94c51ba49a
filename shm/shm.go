// Package shm implements the file-backed shared-memory SPSC ring of spec
// §4.2.6/§6: a single file whose first 256 bytes are a fixed, cache-line
// padded header (magic, version, capacity, slot size, and three atomic
// cursors), followed by capacity*slotSize bytes of slot storage. Producer
// and consumer processes open independent handles to the same file and
// exchange slots using the same release/acquire discipline as the
// in-memory SPSC ring.
package shm

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/ringflow/ringcore"
)

// Ring is an open handle onto a shared-memory ring's backing file. Create
// and Open both return a *Ring; which side is "the producer" and which is
// "the consumer" is a convention the caller enforces by only calling the
// matching half of the API, exactly as with the in-memory SPSC ring.
type Ring struct {
	file     *os.File
	mapping  mmap.MMap
	header   header
	capacity uint64
	slotSize uint64
	mask     uint64

	producerLocal uint64
	consumerLocal uint64
}

// Create creates a new shared-memory ring file at path with the given
// power-of-two capacity and per-slot byte size, writing a fresh header and
// zeroing all slots.
func Create(path string, capacity, slotSize uint64) (*Ring, error) {
	if !ringcore.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w: capacity %d must be a nonzero power of two", ringcore.ErrConfiguration, capacity)
	}
	if slotSize == 0 {
		return nil, fmt.Errorf("%w: slot size must be nonzero", ringcore.ErrConfiguration)
	}

	size := int64(HeaderSize) + int64(capacity*slotSize)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: truncate %s: %w", path, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	h := newHeaderView(m)
	h.writeStatic(uint32(capacity), uint32(slotSize))
	h.producerCursor().Store(0)
	h.cachedConsumerCursor().Store(0)
	h.consumerCursor().Store(0)

	return &Ring{
		file:     f,
		mapping:  m,
		header:   h,
		capacity: capacity,
		slotSize: slotSize,
		mask:     capacity - 1,
	}, nil
}

// Open opens an existing shared-memory ring file, validating its header.
// A magic or version mismatch fails with ringcore.ErrInvalidData without
// mapping the slot region beyond the header (spec §4.2.6: "mismatch causes
// open to fail with InvalidData").
func Open(path string) (*Ring, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	headerOnly, err := mmap.MapRegion(f, HeaderSize, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap header of %s: %w", path, err)
	}
	h := newHeaderView(headerOnly)
	magic, version := h.magic(), h.version()
	capacity, slotSize := uint64(h.capacity()), uint64(h.slotSize())
	headerOnly.Unmap()

	if magic != Magic {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic %#x in %s", ringcore.ErrInvalidData, magic, path)
	}
	if version != Version {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported version %d in %s (want %d)", ringcore.ErrInvalidData, version, path, Version)
	}
	if !ringcore.IsPowerOfTwo(capacity) || slotSize == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: corrupt capacity/slot size in %s", ringcore.ErrInvalidData, path)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	return &Ring{
		file:     f,
		mapping:  m,
		header:   newHeaderView(m),
		capacity: capacity,
		slotSize: slotSize,
		mask:     capacity - 1,
	}, nil
}

// Capacity returns the ring's slot count.
func (r *Ring) Capacity() uint64 { return r.capacity }

// SlotSize returns the configured per-slot byte size.
func (r *Ring) SlotSize() uint64 { return r.slotSize }

// slotBytes returns the raw slot bytes at sequence seq.
func (r *Ring) slotBytes(seq uint64) []byte {
	idx := seq & r.mask
	start := HeaderSize + idx*r.slotSize
	return r.mapping[start : start+r.slotSize]
}

// TryClaim reserves count consecutive sequences for the producer, using
// the cached consumer cursor the way the in-memory MessageRingBuffer uses
// gatingSequence, refreshing from the live consumerCursor on a failed
// check (spec §4.2.6 applies the in-memory SPSC discipline to the mapped
// cursors).
func (r *Ring) TryClaim(count uint64) (start uint64, err error) {
	next := r.producerLocal + count
	cached := r.header.cachedConsumerCursor().Load()
	if next-cached > r.capacity {
		live := r.header.consumerCursor().Load() // acquire
		r.header.cachedConsumerCursor().Store(live)
		if next-live > r.capacity {
			return 0, ringcore.ErrFull
		}
	}
	return r.producerLocal, nil
}

// SlotForWrite returns the raw byte slice the producer should write into
// for sequence seq, valid only between TryClaim and Publish.
func (r *Ring) SlotForWrite(seq uint64) []byte { return r.slotBytes(seq) }

// Publish makes [start, start+count) visible with a release store to the
// mapped producerCursor.
func (r *Ring) Publish(start, count uint64) {
	r.producerLocal = start + count
	r.header.producerCursor().Store(r.producerLocal)
}

// TryRead acquires a readable range of up to max sequences.
func (r *Ring) TryRead(max uint64) (start, count uint64, err error) {
	published := r.header.producerCursor().Load() // acquire
	available := published - r.consumerLocal
	if available == 0 {
		return 0, 0, ringcore.ErrEmpty
	}
	if available > max {
		available = max
	}
	return r.consumerLocal, available, nil
}

// SlotForRead returns the raw byte slice at sequence seq for the consumer
// to read, valid only between TryRead and Commit.
func (r *Ring) SlotForRead(seq uint64) []byte { return r.slotBytes(seq) }

// Commit releases [start, start+count) for producer reuse with a release
// store to the mapped consumerCursor.
func (r *Ring) Commit(start, count uint64) {
	r.consumerLocal = start + count
	r.header.consumerCursor().Store(r.consumerLocal)
}

// Sync flushes the mapping to the backing file (msync), the closest this
// Non-goal-excluded-from-persistence component gets to a durability
// guarantee: it bounds how stale a crashed reader's view of the file can
// be, it does not make the ring durable.
func (r *Ring) Sync() error {
	return r.mapping.Flush()
}

// Close unmaps the file and closes the handle.
func (r *Ring) Close() error {
	if err := r.mapping.Unmap(); err != nil {
		r.file.Close()
		return fmt.Errorf("shm: unmap: %w", err)
	}
	return r.file.Close()
}
