// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// framer_test.go: receive framer unit tests
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import "testing"

type recordingHandlers struct {
	calls int
}

func (h *recordingHandlers) HandleMessage(*Link, []byte)              { h.calls++ }
func (recordingHandlers) GetDeviceIdentity() (uid [8]byte, id uint16) { return }

func TestFramerLeavesFrameInRingWhenWindowBusy(t *testing.T) {
	h := &recordingHandlers{}
	bridge := newFakeBridge()
	link := New(bridge, h, Config{})

	// Close the send window before the frame ever arrives.
	link.SendAckAndMessage(make([]byte, PayloadMin))

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame := frameData(1, 0, payload)
	bridge.deliver(frame)

	link.Tick()

	if h.calls != 0 {
		t.Fatalf("HandleMessage called while send window was busy")
	}

	if link.stats.SendDeferred == 0 {
		t.Fatalf("SendDeferred stat not incremented on a busy-window defer")
	}

	if link.state != stateStart {
		t.Fatalf("framer state = %v after Tick, want stateStart (invariant P1)", link.state)
	}

	// Free the logical send window (as a matching ACK from the peer
	// would) and let the next tick re-scan the bytes that were left
	// untouched in the ring and finally deliver them.
	bridge.drainTX(len(bridge.armed))
	link.sendLen = 0

	link.Tick()

	if h.calls != 1 {
		t.Fatalf("HandleMessage called %d times after window freed, want 1", h.calls)
	}

	if link.LastSequenceNumberSeen() != 1 {
		t.Fatalf("LastSequenceNumberSeen() = %d, want 1", link.LastSequenceNumberSeen())
	}
}

func TestFramerStateAlwaysStartAfterTick(t *testing.T) {
	h := &recordingHandlers{}
	bridge := newFakeBridge()
	link := New(bridge, h, Config{})

	// Deliver only a length byte and a sequence byte: the framer is left
	// mid-frame at the end of the window, but Tick still forces
	// state back to stateStart (invariant P1) so the next tick starts
	// clean rather than carrying stale mid-frame state across ticks via
	// anything other than the ring's own unread bytes.
	bridge.deliver([]byte{11, sequenceByte(1, 0)})

	link.Tick()

	if link.state != stateStart {
		t.Fatalf("framer state = %v after partial frame, want stateStart", link.state)
	}
}

func TestFramerRejectsIllegalLengthAndResyncs(t *testing.T) {
	h := &recordingHandlers{}
	bridge := newFakeBridge()
	link := New(bridge, h, Config{})

	bridge.deliver([]byte{5, 0, 0})
	link.Tick()

	if link.stats.ProtocolDesyncs != 1 {
		t.Fatalf("ProtocolDesyncs = %d, want 1", link.stats.ProtocolDesyncs)
	}

	if link.recvRing.Used() != 0 {
		t.Fatalf("ring not drained after a protocol desync, Used() = %d", link.recvRing.Used())
	}
}
