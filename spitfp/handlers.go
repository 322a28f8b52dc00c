// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// handlers.go: the upward contract to the TFP message dispatcher
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

// Handlers is the upward contract of spec.md §1 and §6: the two upcalls
// this package makes into the upper-layer TFP message dispatcher, which
// is explicitly out of scope for this module (bootloader-mode handlers,
// enumeration, identity, firmware writing all live above this line).
type Handlers interface {
	// HandleMessage is invoked once per newly accepted DATA packet,
	// synchronously, from within Tick. The implementation must either
	// call Link.SendAckAndMessage with a response of at most PayloadMax
	// bytes, or return without calling it, in which case the framer
	// synthesizes a bare ACK. It must not block and must not call
	// SendAckAndMessage more than once per invocation.
	HandleMessage(link *Link, payload []byte)

	// GetDeviceIdentity answers the upper layer's UID/device-id upcall.
	// SPITFP itself never calls this; it exists so a concrete Handlers
	// implementation has one place to answer identity queries dispatched
	// above this layer (see SPEC_FULL.md §4 item 6), matching how
	// tfp_common.c keeps GET_IDENTITY handling next to, but logically
	// separate from, the framing code.
	GetDeviceIdentity() (uid [8]byte, deviceID uint16)
}
