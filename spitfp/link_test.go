package spitfp_test

import (
	"testing"
	"time"

	"github.com/Tinkerforge/brickletboot/pearson"
	"github.com/Tinkerforge/brickletboot/socsim"
	"github.com/Tinkerforge/brickletboot/spitfp"
)

const testRingCapacity = 256

// fakeHandlers is a minimal Handlers implementation driven entirely by
// the test: autoReply, when non-nil, is sent back from HandleMessage the
// way a real upper-layer dispatcher would piggyback an ACK.
type fakeHandlers struct {
	received  [][]byte
	autoReply []byte
}

func (h *fakeHandlers) HandleMessage(link *spitfp.Link, payload []byte) {
	h.received = append(h.received, append([]byte(nil), payload...))

	if h.autoReply != nil {
		link.SendAckAndMessage(h.autoReply)
	}
}

func (h *fakeHandlers) GetDeviceIdentity() (uid [8]byte, deviceID uint16) {
	return [8]byte{}, 0
}

func buildAckFrame(lastSeen byte) []byte {
	buf := make([]byte, 3)
	buf[0] = 3
	buf[1] = lastSeen << 4
	buf[2] = pearson.Sum(buf[:2])
	return buf
}

func buildDataFrame(seq, lastSeen byte, payload []byte) []byte {
	length := len(payload) + 3
	buf := make([]byte, length)
	buf[0] = byte(length)
	buf[1] = (seq & 0x0f) | (lastSeen << 4)
	copy(buf[2:], payload)
	buf[length-1] = pearson.Sum(buf[:length-1])
	return buf
}

// readAllOutput drains every byte the bridge currently has queued to send
// (idle bytes included) up to n bytes, simulating the master polling.
func readAllOutput(b *socsim.Bridge, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b.ReadByte()
	}
	return out
}

func newTestLink(t *testing.T, h *fakeHandlers) (*spitfp.Link, *socsim.Bridge) {
	t.Helper()

	bridge := socsim.NewBridge(testRingCapacity)
	link := spitfp.New(bridge, h, spitfp.Config{})

	return link, bridge
}

func TestBareAck(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	// Drive last_sequence_number_seen to 5 via a normal DATA receive. The
	// handler declines to reply, so the framer synthesizes its own bare
	// ACK during this Tick; drain that one first so the explicit
	// SendAck() below is isolated.
	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22}
	bridge.WriteFromMaster(buildDataFrame(5, 0, payload))
	link.Tick()

	if link.LastSequenceNumberSeen() != 5 {
		t.Fatalf("LastSequenceNumberSeen() = %d, want 5", link.LastSequenceNumberSeen())
	}

	readAllOutput(bridge, 3)

	link.SendAck()

	got := readAllOutput(bridge, 3)
	want := buildAckFrame(5)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SendAck() frame = % x, want % x", got, want)
		}
	}
}

func TestFirstDataSend(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	if link.CurrentSequenceNumber() != 0 {
		t.Fatalf("initial CurrentSequenceNumber() = %d, want 0", link.CurrentSequenceNumber())
	}

	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22}

	if !link.SendPossible() {
		t.Fatalf("SendPossible() = false before first send")
	}

	link.SendAckAndMessage(payload)

	if link.CurrentSequenceNumber() != 1 {
		t.Fatalf("CurrentSequenceNumber() after first send = %d, want 1", link.CurrentSequenceNumber())
	}

	if link.SendPossible() {
		t.Fatalf("SendPossible() = true immediately after arming a send")
	}

	got := readAllOutput(bridge, 11)
	want := buildDataFrame(1, 0, payload)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("first DATA frame = % x, want % x", got, want)
		}
	}
}

func TestAckReopensWindow(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22}
	link.SendAckAndMessage(payload)

	if link.SendPossible() {
		t.Fatalf("expected window closed after send")
	}

	// The simulated master clocks the armed DATA frame all the way out,
	// returning the hardware to idle, before replying with its ACK.
	readAllOutput(bridge, 11)

	bridge.WriteFromMaster(buildAckFrame(1))
	link.Tick()

	// With the default zero RetransmitTimeout, that Tick re-armed the
	// still-unacknowledged frame before the framer reached the ACK; the
	// master clocks that copy out as well.
	readAllOutput(bridge, 11)

	if !link.SendPossible() {
		t.Fatalf("expected window reopened after matching ACK")
	}

	if len(h.received) != 0 {
		t.Fatalf("HandleMessage invoked by an ACK-only packet")
	}
}

func TestDuplicateDataInvokesHandlerOnce(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame := buildDataFrame(7, 0, payload)

	bridge.WriteFromMaster(frame)
	link.Tick()

	if len(h.received) != 1 {
		t.Fatalf("first delivery: HandleMessage called %d times, want 1", len(h.received))
	}

	if link.LastSequenceNumberSeen() != 7 {
		t.Fatalf("LastSequenceNumberSeen() = %d, want 7", link.LastSequenceNumberSeen())
	}

	// Clock out the bare ACK of the first delivery, so the bytes read
	// below are the duplicate's own re-ACK.
	readAllOutput(bridge, 3)

	bridge.WriteFromMaster(frame)
	link.Tick()

	if len(h.received) != 1 {
		t.Fatalf("duplicate delivery: HandleMessage called %d times, want still 1", len(h.received))
	}

	got := readAllOutput(bridge, 3)
	want := buildAckFrame(7)

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("duplicate re-ACK = % x, want % x", got, want)
		}
	}
}

func TestIllegalLengthDesyncsAndRecovers(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	bridge.WriteFromMaster([]byte{0x05, 0x00, 0x00, 0x00, 0x00})
	link.Tick()

	if len(h.received) != 0 {
		t.Fatalf("HandleMessage invoked on a desynced stream")
	}

	stats := link.Stats()
	if stats.ProtocolDesyncs != 1 {
		t.Fatalf("ProtocolDesyncs = %d, want 1", stats.ProtocolDesyncs)
	}

	// The link must still be usable after a desync: a clean frame on the
	// next tick is accepted normally.
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	bridge.WriteFromMaster(buildDataFrame(1, 0, payload))
	link.Tick()

	if len(h.received) != 1 {
		t.Fatalf("HandleMessage not invoked after recovery, got %d calls", len(h.received))
	}
}

func TestChecksumCorruptionIsRejected(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame := buildDataFrame(1, 0, payload)
	frame[len(frame)-1] ^= 0x01

	bridge.WriteFromMaster(frame)
	link.Tick()

	if len(h.received) != 0 {
		t.Fatalf("HandleMessage invoked despite checksum corruption")
	}

	if got := link.Stats().ChecksumFailures; got != 1 {
		t.Fatalf("ChecksumFailures = %d, want 1", got)
	}
}

func TestSendAckAndMessageRejectedWhenWindowBusy(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic calling SendAckAndMessage while window busy")
		}
	}()

	h := &fakeHandlers{}
	link, _ := newTestLink(t, h)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	link.SendAckAndMessage(payload)
	link.SendAckAndMessage(payload)
}

func TestRetransmitOnTimeout(t *testing.T) {
	h := &fakeHandlers{}
	bridge := socsim.NewBridge(testRingCapacity)
	link := spitfp.New(bridge, h, spitfp.Config{RetransmitTimeout: 0})

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	link.SendAckAndMessage(payload)

	first := readAllOutput(bridge, 11)

	time.Sleep(time.Millisecond)
	link.Tick()

	second := readAllOutput(bridge, 11)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("retransmitted frame differs: %x vs %x", first, second)
		}
	}

	if got := link.Stats().Retransmits; got != 1 {
		t.Fatalf("Retransmits = %d, want 1", got)
	}
}

func TestSPIErrorBounce(t *testing.T) {
	h := &fakeHandlers{}
	link, bridge := newTestLink(t, h)

	bridge.InjectSPIError()
	link.Tick()

	if bridge.SPIResets() != 1 {
		t.Fatalf("SPIResets() = %d, want 1", bridge.SPIResets())
	}
}
