// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// send.go: send engine, spec.md §4.5
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import "time"

// SendPossible reports whether a new outbound DATA packet may be armed:
// the hardware handoff must be clear AND the logical one-packet window
// must be open (spec.md §4.3 — the first condition alone is not enough).
func (l *Link) SendPossible() bool {
	return l.sendPossibleLocked()
}

func (l *Link) sendPossibleLocked() bool {
	return l.bridge.HardwareIdle() && l.sendLen == 0
}

// SendAck unconditionally arms a 3-byte bare ACK announcing
// LastSequenceNumberSeen, per spec.md §4.5. Two consecutive calls with an
// unchanged LastSequenceNumberSeen produce byte-identical frames
// (invariant P7). A bare ACK carries no sequence number of its own and is
// never retransmitted by CheckSendTimeout, so unlike SendAckAndMessage it
// does not touch sendLen or gate SendPossible — spitfp_send_ack in the
// original firmware never touches buffer_send_length either, only
// spitfp_send_ack_and_message does.
func (l *Link) SendAck() {
	frame := frameAck(l.lastSequenceNumberSeen)
	l.bridge.ArmSend(frame)
	l.stats.AcksSent++
}

// SendAckAndMessage advances CurrentSequenceNumber, frames a DATA packet
// piggybacking the current ACK state, and arms it for transmission. It is
// only legal to call when SendPossible() holds; as in the original
// firmware (whose caller contract is "the handler either calls this or
// doesn't"), a misuse here is a caller bug and panics rather than being
// silently ignored.
func (l *Link) SendAckAndMessage(payload []byte) {
	if !l.sendPossibleLocked() {
		panic("spitfp: SendAckAndMessage called while send window is not free")
	}

	if len(payload) < PayloadMin || len(payload) > PayloadMax {
		panic("spitfp: payload length out of [PayloadMin, PayloadMax]")
	}

	l.currentSequenceNumber = nextSequence(l.currentSequenceNumber)

	frame := frameData(l.currentSequenceNumber, l.lastSequenceNumberSeen, payload)
	l.armData(frame)
	l.stats.PacketsSent++
}

// armData copies frame into sendBuf, records sendLen and lastSendTime,
// and hands it to the DMA bridge. Only ever called with a DATA frame:
// sendLen is the single-outstanding-packet window's bookkeeping, and only
// a DATA packet waits on a matching ACK to close it.
func (l *Link) armData(frame []byte) {
	copy(l.sendBuf[:], frame)
	l.sendLen = len(frame)
	l.lastSendTime = time.Now()

	l.bridge.ArmSend(l.sendBuf[:l.sendLen])
}

// CheckSendTimeout re-arms the outstanding outbound frame if one is
// pending and the hardware is idle, per spec.md §4.5 and §4.6 step 3. The
// nominal timeout is Config.RetransmitTimeout (0 by default): because the
// master polls continuously, re-shoving the same bytes immediately is
// correct, and the sequence number lets the master deduplicate.
func (l *Link) CheckSendTimeout() {
	if l.sendLen == 0 {
		return
	}

	if !l.bridge.HardwareIdle() {
		return
	}

	if time.Since(l.lastSendTime) < l.config.RetransmitTimeout {
		return
	}

	l.bridge.ArmSend(l.sendBuf[:l.sendLen])
	l.lastSendTime = time.Now()
	l.stats.Retransmits++
}
