// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// socsim.go: in-memory model of the SPITFP DMA bridge
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package socsim models the RX circular DMA sink and TX idle/one-shot
// descriptor chain of spec.md §4.3 entirely in software, with no real
// hardware underneath. It implements spitfp.DMABridge the way soc/samd21
// implements it against real SAMD21 registers, and is used by spitfp's
// own tests, by the sim package's simulated wire, and by
// cmd/spitfp-monitor when no real Linux spidev device is attached.
//
// The RX model mirrors tamago's DMA descriptor bookkeeping style
// (soc/nxp/enet's bufferDescriptorRing): a monotonically increasing
// counter of bytes written stands in for the hardware beat counter, from
// which RXRemaining() is derived exactly as a real DMA channel's BTCNT
// register would read.
package socsim

import "github.com/Tinkerforge/brickletboot/spitfp"

// Bridge is a software model of one SPITFP link's DMA bridge.
type Bridge struct {
	rx        []byte
	rxWritten uint64

	txBuf    []byte
	txPos    int
	txActive bool

	errorFlag bool
	spiResets int
}

// NewBridge allocates a Bridge whose RX sink has the given capacity
// (spec.md §6's RECV_RING_CAPACITY).
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		panic("socsim: invalid capacity")
	}

	return &Bridge{rx: make([]byte, capacity)}
}

// RXBuffer implements spitfp.DMABridge.
func (b *Bridge) RXBuffer() []byte {
	return b.rx
}

// RXRemaining implements spitfp.DMABridge, modeling the RX DMA channel's
// remaining beat count as derived from a monotonic write counter: the
// boundary case of spec.md §4.3 (remaining == C right after a full lap)
// falls out naturally when rxWritten is an exact multiple of the
// capacity.
func (b *Bridge) RXRemaining() int {
	c := len(b.rx)
	return c - int(b.rxWritten%uint64(c))
}

// HardwareIdle implements spitfp.DMABridge.
func (b *Bridge) HardwareIdle() bool {
	return !b.txActive
}

// ArmSend implements spitfp.DMABridge. The simulated hardware has no
// separate interrupt-masked critical section to model (there's only one
// goroutine driving the simulation), but the field update is still done
// as a single atomic-looking assignment group to mirror the shape of
// soc/samd21's real critical section.
func (b *Bridge) ArmSend(buf []byte) {
	b.txBuf = append([]byte(nil), buf...)
	b.txPos = 0
	b.txActive = true
}

// HandleSPIErrors implements spitfp.DMABridge.
func (b *Bridge) HandleSPIErrors() {
	if b.errorFlag {
		b.errorFlag = false
		b.spiResets++
	}
}

// WriteFromMaster simulates the RX DMA continuously writing bytes clocked
// in from the SPI master into the circular sink, wrapping exactly as a
// hardware circular descriptor would (including silently overwriting
// unread bytes if the producer laps the consumer — spec.md §7 item 5's
// ring overrun).
func (b *Bridge) WriteFromMaster(data []byte) {
	c := len(b.rx)

	for _, by := range data {
		b.rx[int(b.rxWritten%uint64(c))] = by
		b.rxWritten++
	}
}

// ReadByte simulates the master clocking one byte out of the slave's
// MISO line: the currently armed one-shot buffer if present, otherwise
// the idle byte. Exhausting the one-shot buffer fires the simulated
// transfer-complete condition, handing control back to the idle loop —
// the software analogue of the TCMPL interrupt handler restoring
// idle_loop.next (spec.md §4.3).
func (b *Bridge) ReadByte() byte {
	if !b.txActive {
		return spitfp.IdleByte
	}

	by := b.txBuf[b.txPos]
	b.txPos++

	if b.txPos == len(b.txBuf) {
		b.txActive = false
		b.txBuf = nil
		b.txPos = 0
	}

	return by
}

// InjectSPIError simulates the SPI peripheral latching its ERROR flag, a
// test/diagnostic hook with no equivalent on real hardware (there, noise
// on the bus does it).
func (b *Bridge) InjectSPIError() {
	b.errorFlag = true
}

// SPIResets returns how many times HandleSPIErrors actually bounced the
// simulated peripheral.
func (b *Bridge) SPIResets() int {
	return b.spiResets
}
