// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// packet_test.go: wire format unit tests
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import "testing"

func TestSequenceByteRoundTrip(t *testing.T) {
	for cur := byte(0); cur <= 15; cur++ {
		for lastSeen := byte(0); lastSeen <= 15; lastSeen++ {
			b := sequenceByte(cur, lastSeen)
			gotCur, gotLastSeen := splitSequenceByte(b)

			if gotCur != cur || gotLastSeen != lastSeen {
				t.Fatalf("sequenceByte(%d, %d) round trip = (%d, %d)", cur, lastSeen, gotCur, gotLastSeen)
			}
		}
	}
}

func TestFrameAckShape(t *testing.T) {
	frame := frameAck(5)

	if len(frame) != AckLength {
		t.Fatalf("frameAck length = %d, want %d", len(frame), AckLength)
	}

	if frame[0] != AckLength {
		t.Fatalf("frameAck length byte = %d, want %d", frame[0], AckLength)
	}

	cur, lastSeen := splitSequenceByte(frame[1])
	if cur != 0 || lastSeen != 5 {
		t.Fatalf("frameAck sequence byte decodes to (%d, %d), want (0, 5)", cur, lastSeen)
	}
}

func TestFrameDataShape(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame := frameData(3, 7, payload)

	wantLen := len(payload) + ProtocolOverhead
	if len(frame) != wantLen {
		t.Fatalf("frameData length = %d, want %d", len(frame), wantLen)
	}

	if frame[0] != byte(wantLen) {
		t.Fatalf("frameData length byte = %d, want %d", frame[0], wantLen)
	}

	cur, lastSeen := splitSequenceByte(frame[1])
	if cur != 3 || lastSeen != 7 {
		t.Fatalf("frameData sequence byte decodes to (%d, %d), want (3, 7)", cur, lastSeen)
	}

	for i, b := range payload {
		if frame[2+i] != b {
			t.Fatalf("frameData payload[%d] = %d, want %d", i, frame[2+i], b)
		}
	}
}

func TestValidDataLength(t *testing.T) {
	cases := []struct {
		length byte
		want   bool
	}{
		{0, false},
		{3, false},
		{DataLengthMin - 1, false},
		{DataLengthMin, true},
		{DataLengthMax, true},
		{DataLengthMax + 1, false},
		{255, false},
	}

	for _, c := range cases {
		if got := validDataLength(c.length); got != c.want {
			t.Fatalf("validDataLength(%d) = %v, want %v", c.length, got, c.want)
		}
	}
}

func TestNextSequenceWrapsWithoutRevisitingZero(t *testing.T) {
	seen := map[byte]bool{}
	cur := byte(SequenceMin)

	for i := 0; i < 4*SequenceMax; i++ {
		if cur == 0 {
			t.Fatalf("nextSequence produced 0 at iteration %d", i)
		}
		if cur < SequenceMin || cur > SequenceMax {
			t.Fatalf("nextSequence produced out-of-range value %d", cur)
		}
		seen[cur] = true
		cur = nextSequence(cur)
	}

	if cur != SequenceMin {
		t.Fatalf("nextSequence(SequenceMax) = %d, want wrap to %d", cur, SequenceMin)
	}

	for s := byte(SequenceMin); s <= SequenceMax; s++ {
		if !seen[s] {
			t.Fatalf("sequence %d never visited across a full cycle", s)
		}
	}
}
