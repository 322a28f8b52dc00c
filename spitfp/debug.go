// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// debug.go: verbose packet trace dump, never on the hot path
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/Tinkerforge/brickletboot/pearson"
)

// decodedFrame is the struct DumpFrame spews; it exists only so a
// captured frame's fields line up one per line instead of spew walking a
// raw byte slice.
type decodedFrame struct {
	Length     byte
	Sequence   byte
	LastSeen   byte
	Checksum   byte
	ChecksumOK bool
	Payload    []byte
}

// DumpFrame renders a captured ACK or DATA frame for manual trace
// inspection. It is never called from Tick or any other hot path; callers
// (cmd/spitfp-monitor's 'd' key, ad-hoc debugging) invoke it explicitly.
func DumpFrame(frame []byte) string {
	if len(frame) == 0 {
		return spew.Sdump(frame)
	}

	length := frame[0]
	if length == IdleByte || int(length) > len(frame) {
		return spew.Sdump(frame)
	}

	seq, lastSeen := splitSequenceByte(frame[1])
	want := frame[length-1]
	got := pearson.Sum(frame[:length-1])

	d := decodedFrame{
		Length:     length,
		Sequence:   seq,
		LastSeen:   lastSeen,
		Checksum:   want,
		ChecksumOK: want == got,
	}

	if length > AckLength {
		d.Payload = append([]byte(nil), frame[2:length-1]...)
	}

	return spew.Sdump(d)
}
