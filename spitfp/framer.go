// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// framer.go: receive framer state machine, spec.md §4.4
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import "github.com/Tinkerforge/brickletboot/pearson"

// framerState is the Mealy machine state of spec.md §4.4.
type framerState int

const (
	stateStart framerState = iota
	stateAckSeq
	stateAckChecksum
	stateMsgSeq
	stateMsgData
	stateMsgChecksum
)

// runFramer drains every byte currently buffered in recvRing through the
// state machine, exactly as spec.md §4.6 step 5 and the original
// spitfp_tick's for loop describe.
//
// The byte window is snapshotted up front (mirroring the original, which
// captures `start` once and walks forward by raw index rather than
// re-querying the ring each iteration): removal from the ring only
// happens at explicit terminal transitions, via pendingRemove, which
// accumulates since the last removal and is *not* reset when a fully
// parsed DATA frame can't be delivered because the send window is busy
// (spec.md §7 item 4) — that frame is left in place, re-scanned (and its
// bytes finally removed together with whatever follows) once the window
// frees up.
func (l *Link) runFramer() {
	used := l.recvRing.Used()
	if used == 0 {
		l.state = stateStart
		return
	}

	window := make([]byte, used)
	for i := range window {
		window[i] = l.recvRing.PeekAt(i)
	}

	pendingRemove := 0

	for _, b := range window {
		pendingRemove++

		if err := l.stepFramer(b, &pendingRemove); err != nil {
			l.recvRing.DrainAll()
			l.state = stateStart
			l.stats.ProtocolDesyncs++
			l.logDesync(err)
			return
		}
	}

	l.state = stateStart
}

// stepFramer advances the state machine by exactly one byte. pendingRemove
// tracks bytes consumed since the last ring removal; stepFramer adjusts it
// and calls recvRing.Advance at terminal transitions.
func (l *Link) stepFramer(b byte, pendingRemove *int) *protocolError {
	switch l.state {
	case stateStart:
		l.checksum = 0
		l.msgPos = 0

		switch {
		case b == IdleByte:
			l.recvRing.Advance(1)
			*pendingRemove = *pendingRemove - 1
			return nil
		case b == ProtocolOverhead:
			l.state = stateAckSeq
		case validDataLength(b):
			l.state = stateMsgSeq
		default:
			return &protocolError{kind: errIllegalLength, got: b}
		}

		l.dataLength = b
		l.checksum = pearson.Update(l.checksum, b)

	case stateAckSeq:
		l.dataSeqByte = b
		l.checksum = pearson.Update(l.checksum, b)
		l.state = stateAckChecksum

	case stateAckChecksum:
		l.state = stateStart
		l.recvRing.Advance(*pendingRemove)
		*pendingRemove = 0

		if l.checksum != b {
			l.stats.ChecksumFailures++
			return &protocolError{kind: errChecksumMismatch, got: b}
		}

		l.observeAckNibble()

	case stateMsgSeq:
		l.dataSeqByte = b
		l.checksum = pearson.Update(l.checksum, b)
		l.state = stateMsgData
		l.msgPos = 0

	case stateMsgData:
		l.msgBuf[l.msgPos] = b
		l.msgPos++
		l.checksum = pearson.Update(l.checksum, b)

		if l.msgPos == int(l.dataLength)-ProtocolOverhead {
			l.state = stateMsgChecksum
		}

	case stateMsgChecksum:
		l.state = stateStart

		if l.checksum != b {
			l.recvRing.Advance(*pendingRemove)
			*pendingRemove = 0
			l.stats.ChecksumFailures++
			return &protocolError{kind: errChecksumMismatch, got: b}
		}

		l.observeAckNibble()

		if !l.sendPossibleLocked() {
			l.stats.SendDeferred++
			return nil
		}

		l.recvRing.Advance(*pendingRemove)
		*pendingRemove = 0

		seq, _ := splitSequenceByte(l.dataSeqByte)
		payload := append([]byte(nil), l.msgBuf[:l.msgPos]...)

		if seq != l.lastSequenceNumberSeen {
			l.lastSequenceNumberSeen = seq
			l.stats.MessagesHandled++
			l.handlers.HandleMessage(l, payload)

			// HandleMessage must, synchronously, either call
			// SendAckAndMessage or return without calling it; sendLen is
			// guaranteed 0 on entry (sendPossibleLocked() was just
			// checked above), so if it's still 0 the handler declined
			// and the framer owes the peer a bare ACK itself.
			if l.sendLen == 0 {
				l.SendAck()
			}
		} else {
			l.stats.DuplicatesSuppressed++
			l.SendAck()
		}
	}

	return nil
}

// observeAckNibble implements the "ACK-of-our-DATA" rule shared by both
// ACK_CKSUM and MSG_CKSUM terminal success: if the peer's last-seen nibble
// matches our current outbound sequence number, our window reopens.
func (l *Link) observeAckNibble() {
	_, lastSeenByMaster := splitSequenceByte(l.dataSeqByte)

	if lastSeenByMaster == l.currentSequenceNumber && l.sendLen > 0 {
		l.sendLen = 0
		l.stats.WindowOpened++
	}
}
