// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// packet.go: SPITFP wire format constants and pure frame builders
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package spitfp implements the SPITFP link engine: the byte-oriented
// receive framer, the single-outstanding-packet send engine, and the tick
// loop that ties them together with a DMA bridge and an upper TFP message
// dispatcher. See SPEC_FULL.md for the full module breakdown.
package spitfp

import "github.com/Tinkerforge/brickletboot/pearson"

// Protocol constants, compile-time configuration surface per spec.md §6.
const (
	// IdleByte is clocked continuously by the TX descriptor chain when
	// nothing is queued.
	IdleByte = 0x00

	// ProtocolOverhead is the length byte plus sequence byte plus
	// checksum byte that frame every ACK and DATA packet.
	ProtocolOverhead = 3

	// AckLength is the total length of an ACK packet.
	AckLength = ProtocolOverhead

	// PayloadMin and PayloadMax bound a TFP message's payload length.
	PayloadMin = 8
	PayloadMax = 80

	// DataLengthMin and DataLengthMax bound the `length` byte of a DATA
	// packet (payload length + ProtocolOverhead).
	DataLengthMin = PayloadMin + ProtocolOverhead
	DataLengthMax = PayloadMax + ProtocolOverhead

	// SequenceMin and SequenceMax bound a DATA packet's sequence number.
	// 0 is reserved for ACK packets and is never used as a DATA sequence.
	SequenceMin = 1
	SequenceMax = 15
)

// sequenceByte packs the current-packet sequence number (low nibble) and
// the last sequence number seen from the peer (high nibble) into a single
// byte, per spec.md §3. cur is 0 for a bare ACK.
func sequenceByte(cur, lastSeen byte) byte {
	return (cur & 0x0f) | (lastSeen << 4)
}

// splitSequenceByte is the inverse of sequenceByte.
func splitSequenceByte(b byte) (cur, lastSeen byte) {
	return b & 0x0f, (b >> 4) & 0x0f
}

// frameAck builds a complete 3-byte ACK packet announcing lastSeen as the
// most recently accepted DATA sequence number.
func frameAck(lastSeen byte) []byte {
	buf := make([]byte, AckLength)
	buf[0] = AckLength
	buf[1] = sequenceByte(0, lastSeen)
	buf[2] = pearson.Sum(buf[:2])
	return buf
}

// frameData builds a complete DATA packet carrying payload, tagged with
// sequence number seq and piggybacking lastSeen. len(payload) must already
// be within [PayloadMin, PayloadMax]; callers enforce that bound.
func frameData(seq, lastSeen byte, payload []byte) []byte {
	length := len(payload) + ProtocolOverhead
	buf := make([]byte, length)
	buf[0] = byte(length)
	buf[1] = sequenceByte(seq, lastSeen)
	copy(buf[2:], payload)
	buf[length-1] = pearson.Sum(buf[:length-1])
	return buf
}

// validDataLength reports whether a DATA packet's wire length byte
// decodes to a payload length within [PayloadMin, PayloadMax].
func validDataLength(length byte) bool {
	return length >= DataLengthMin && length <= DataLengthMax
}

// nextSequence advances a sequence number by one, wrapping [15 -> 1] and
// never revisiting 0 (spec.md §3).
func nextSequence(cur byte) byte {
	cur++
	if cur > SequenceMax {
		cur = SequenceMin
	}
	return cur
}
