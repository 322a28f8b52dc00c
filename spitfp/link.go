// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// link.go: link state and the tick loop, spec.md §3 and §4.6
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import (
	"time"

	"github.com/Tinkerforge/brickletboot/ring"
	"golang.org/x/time/rate"
)

// Link holds the state of one SPITFP slave-side link instance, per
// spec.md §3. The zero value is not usable; construct with New.
type Link struct {
	config   Config
	bridge   DMABridge
	handlers Handlers

	recvRing *ring.Buffer

	// framer state, reset to stateStart at the end of every Tick
	// (invariant P1).
	state       framerState
	checksum    byte
	dataLength  byte
	dataSeqByte byte
	msgBuf      [PayloadMax]byte
	msgPos      int

	currentSequenceNumber byte
	lastSequenceNumberSeen byte

	sendBuf      [DataLengthMax]byte
	sendLen      int
	lastSendTime time.Time

	errLog rate.Sometimes

	stats Stats
}

// New constructs a Link bound to the given DMA bridge and upper-layer
// handlers. RXBuffer() must return a buffer at least
// 2*DataLengthMax bytes long (spec.md §6's RECV_RING_CAPACITY
// constraint).
func New(bridge DMABridge, handlers Handlers, config Config) *Link {
	if bridge == nil || handlers == nil {
		panic("spitfp: nil bridge or handlers")
	}

	backing := bridge.RXBuffer()
	if len(backing) < 2*DataLengthMax {
		panic("spitfp: RX buffer too small for RECV_RING_CAPACITY constraint")
	}

	l := &Link{
		config:                 config.withDefaults(),
		bridge:                 bridge,
		handlers:               handlers,
		recvRing:               ring.Wrap(backing),
		state:                  stateStart,
		currentSequenceNumber:  0,
		lastSequenceNumberSeen: 0,
		errLog:                 rate.Sometimes{Interval: time.Second},
	}

	return l
}

// CurrentSequenceNumber returns the sequence number the link will use (or
// just used) for its next outbound DATA packet. Exported for tests and
// diagnostics. It is 0 until the first DATA packet is sent and stays in
// [SequenceMin, SequenceMax] from then on (invariant P2 of spec.md §8).
func (l *Link) CurrentSequenceNumber() byte {
	return l.currentSequenceNumber
}

// LastSequenceNumberSeen returns the most recently accepted DATA packet's
// sequence number, per spec.md §3 invariant 3.
func (l *Link) LastSequenceNumberSeen() byte {
	return l.lastSequenceNumberSeen
}

// Tick runs one iteration of the link controller, in the exact order of
// spec.md §4.6:
//  1. (external reset/watchdog hooks are the caller's responsibility, not
//     this package's — see spec.md §1's scope note)
//  2. HandleSPIErrors
//  3. CheckSendTimeout
//  4. updateRingProducer
//  5. run the framer over every currently buffered byte, forcing
//     state back to stateStart at exit (invariant P1).
func (l *Link) Tick() {
	l.bridge.HandleSPIErrors()
	l.CheckSendTimeout()
	l.updateRingProducer()
	l.runFramer()
}

// updateRingProducer recomputes the ring buffer's producer index from the
// DMA bridge's remaining beat count, per spec.md §4.3:
// new_end = C - remaining - 1, with remaining == C mapping to C-1.
func (l *Link) updateRingProducer() {
	remaining := l.bridge.RXRemaining()
	capacity := l.recvRing.Cap()

	newEnd := capacity - remaining - 1
	if newEnd < 0 {
		newEnd = capacity - 1
	}

	l.recvRing.SetEnd(newEnd)
}

// logDesync reports a protocol error through the configured logger,
// throttled via errLog so a flapping link can't flood the log — the
// monitor-side analogue of the watchdog-adjacent rate concerns the
// teacher's bare-metal code handles in hardware instead.
func (l *Link) logDesync(err *protocolError) {
	l.errLog.Do(func() {
		l.config.Logger.Printf("spitfp: %v", err)
	})
}
