// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// stats.go: per-link observability counters (SPEC_FULL.md §4 item 5)
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

// Stats holds monotonic counters describing link activity. It has no
// effect on wire behavior; it exists so metrics.LinkCollector and
// cmd/spitfp-monitor have something to read. Counters only ever
// increase; callers compute rates by differencing two snapshots.
type Stats struct {
	// PacketsSent counts DATA packets armed for transmission by
	// SendAckAndMessage; retransmissions are counted in Retransmits only.
	PacketsSent uint64
	// Retransmits counts packets re-armed by CheckSendTimeout.
	Retransmits uint64
	// AcksSent counts bare ACK packets armed for transmission.
	AcksSent uint64
	// WindowOpened counts how many times an ACK matching our current
	// sequence number reopened the send window.
	WindowOpened uint64
	// MessagesHandled counts DATA packets that were new (not
	// duplicates) and were dispatched to Handlers.HandleMessage.
	MessagesHandled uint64
	// DuplicatesSuppressed counts DATA packets whose sequence number
	// matched LastSequenceNumberSeen and were therefore re-ACKed without
	// a second HandleMessage call.
	DuplicatesSuppressed uint64
	// ChecksumFailures counts ACK_CKSUM/MSG_CKSUM mismatches.
	ChecksumFailures uint64
	// ProtocolDesyncs counts framer resyncs (ring drained): illegal length
	// bytes seen at START and checksum mismatches alike.
	ProtocolDesyncs uint64
	// SendDeferred counts MSG_CKSUM successes that could not advance the
	// ring because the send window was not free (spec.md §7 item 4).
	SendDeferred uint64
}

// Stats returns a snapshot of the link's counters.
func (l *Link) Stats() Stats {
	return l.stats
}
