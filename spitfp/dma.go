// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// dma.go: the hardware collaborator interface the link controller depends on
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

// DMABridge abstracts the SPI peripheral bring-up, the RX circular DMA
// sink, and the TX idle/one-shot descriptor chain described in spec.md
// §4.3. It is the one boundary this package never crosses on its own;
// concrete implementations live in soc/samd21 (real SAMD21 hardware, the
// original firmware's target) and socsim (an in-memory model used by
// tests, sim, and cmd/spitfp-monitor).
type DMABridge interface {
	// RXBuffer returns the backing array the RX DMA writes into. Its
	// length is the ring buffer capacity C. The link wraps this exact
	// slice (ring.Wrap), never copies it, since on real hardware this
	// address is the DMA descriptor's destination register.
	RXBuffer() []byte

	// RXRemaining returns the RX DMA channel's remaining beat count, the
	// raw hardware counter spitfp.Link converts into a new ring producer
	// index every tick (spec.md §4.3's "new_end = C - remaining - 1").
	RXRemaining() int

	// HardwareIdle reports whether the TX descriptor chain's idle loop is
	// currently self-linked (no one-shot packet is chained in). This is
	// one half of the send_possible predicate of spec.md §4.3; the other
	// half (send_len == 0) is link-local state.
	HardwareIdle() bool

	// ArmSend hands buf to the TX one-shot descriptor and atomically
	// re-links the idle loop into it, enabling the transfer-complete
	// interrupt. Implementations must make the four-field update
	// (address, count, idle_loop.next, TCMPL enable) atomic with respect
	// to the completion handler that clears it (spec.md §5's "critical
	// sections").
	ArmSend(buf []byte)

	// HandleSPIErrors disables and re-enables the SPI peripheral if the
	// hardware latched an ERROR flag, leaving DMA descriptor state
	// (including any pending one-shot) untouched.
	HandleSPIErrors()
}
