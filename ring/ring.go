// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// ring.go: fixed-capacity single-producer/single-consumer byte ring buffer
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package ring implements the fixed-capacity byte FIFO that sits between a
// free-running DMA producer and the SPITFP receive framer. It is not
// goroutine-safe by design: the producer side (SetEnd) and the consumer
// side (PeekAt/Advance) are both only ever called from the tick loop, one
// after the other, mirroring the single-threaded cooperative scheduling
// model of the rest of this repository.
package ring

// Buffer is a fixed-capacity circular byte buffer. The zero value is not
// usable; construct with New.
//
// start and end are indices in [0, cap); end points at the last valid
// byte (not one past it), and used = (end-start+1) mod cap, exactly as
// spec.md §4.2 and the original ringbuffer_recv. end = start-1 (mod cap)
// is the empty encoding: no separate "is empty" flag is kept. The same
// relative position also occurs when all cap bytes are unread, which this
// encoding cannot tell apart from empty (see Used).
type Buffer struct {
	data  []byte
	start int
	end   int
}

// New allocates a ring buffer of the given capacity. Capacity must be at
// least 2x the largest frame the link will ever carry (spitfp.New enforces
// this for the RX buffer it wraps).
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ring: invalid capacity")
	}

	return Wrap(make([]byte, capacity))
}

// Wrap builds a ring buffer over an existing backing array instead of
// allocating a new one. This is used when the backing array is owned by a
// DMA bridge (the RX DMA descriptor's destination address must be the
// buffer's own address), so the ring must not copy it.
func Wrap(backing []byte) *Buffer {
	if len(backing) == 0 {
		panic("ring: invalid capacity")
	}

	b := &Buffer{data: backing, end: len(backing) - 1}
	b.DrainAll()

	return b
}

// Cap returns the backing array capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Used returns the number of unread bytes currently in the buffer.
//
// The modulo is taken after adding 1, not before: this is what makes
// end = start-1 (mod cap) fold to exactly 0 rather than cap-1. A fully
// -wrapped buffer (cap bytes unread) is indistinguishable from an empty
// one under this encoding; that ambiguity is inherent to a single
// start/end pair and is the "best-effort" overrun detection spec.md §4.2
// and §7 item 5 describe — an overrun manifests as a framing or checksum
// error downstream, not as a wrong Used() count.
func (b *Buffer) Used() int {
	c := len(b.data)
	diff := ((b.end-b.start+1)%c + c) % c
	return diff
}

// PeekAt returns the unread byte at the given offset from start, without
// consuming it. It panics if offset is out of the unread range.
func (b *Buffer) PeekAt(offset int) byte {
	if offset < 0 || offset >= b.Used() {
		panic("ring: peek out of range")
	}

	return b.data[(b.start+offset)%len(b.data)]
}

// Advance consumes n bytes from the front of the unread region. It panics
// if n exceeds the number of unread bytes.
func (b *Buffer) Advance(n int) {
	if n < 0 || n > b.Used() {
		panic("ring: advance out of range")
	}

	c := len(b.data)
	b.start = (b.start + n) % c
}

// DrainAll discards every unread byte, used for protocol-error recovery.
// The consumer jumps to just past the current producer position, so bytes
// already published by SetEnd are not seen again after the next SetEnd.
func (b *Buffer) DrainAll() {
	b.start = (b.end + 1) % len(b.data)
}

// SetEnd publishes a new producer position, expressed as the raw index
// (in [0, cap)) of the most recently written byte. It is the only
// coupling point to the DMA bridge: callers derive idx from the RX DMA's
// remaining beat count once per tick (see spitfp.Link.updateRingProducer,
// which reads socsim's or soc/samd21's RXRemaining and performs the
// boundary fix-up (remaining == cap => idx = cap-1) that keeps this
// encoding consistent with an empty buffer.
func (b *Buffer) SetEnd(idx int) {
	if idx < 0 || idx >= len(b.data) {
		panic("ring: end index out of range")
	}

	b.end = idx
}

// Backing exposes the underlying array for direct DMA descriptor wiring
// (soc/samd21 needs the slice address to hand to a DMA destination
// register; socsim needs it to let a simulated producer write bytes).
func (b *Buffer) Backing() []byte {
	return b.data
}
