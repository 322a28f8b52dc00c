// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// collector.go: Prometheus collector over spitfp.Link.Stats
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package metrics exposes spitfp.Link.Stats as Prometheus metrics via a
// pull-at-scrape-time prometheus.Collector, the same shape
// runZeroInc-sockstats/pkg/exporter uses for live TCPInfo rather than
// imperatively-incremented counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tinkerforge/brickletboot/spitfp"
)

type linkEntry struct {
	link   *spitfp.Link
	labels []string
}

// LinkCollector is a prometheus.Collector over an arbitrary set of
// spitfp.Link instances, each tagged with its own label values (e.g. a
// board or bricklet UID) against a shared label name set.
type LinkCollector struct {
	mu        sync.Mutex
	links     map[string]linkEntry
	labelKeys []string
}

// NewLinkCollector creates a collector whose metrics carry the given
// label names (in addition to the fixed "link" name label), with values
// supplied per link by Add.
func NewLinkCollector(labelKeys []string) *LinkCollector {
	return &LinkCollector{
		links:     make(map[string]linkEntry),
		labelKeys: labelKeys,
	}
}

// Add registers link under name, to be scraped as live metrics carrying
// labelValues in labelKeys order.
func (c *LinkCollector) Add(name string, link *spitfp.Link, labelValues []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.links[name] = linkEntry{link: link, labels: labelValues}
}

// Remove stops a previously-added link from being scraped.
func (c *LinkCollector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.links, name)
}

func labelNames(extra []string) []string {
	return append([]string{"link"}, extra...)
}

func descFor(name, help string, extra []string) *prometheus.Desc {
	return prometheus.NewDesc("spitfp_"+name, help, labelNames(extra), nil)
}

// Describe implements prometheus.Collector.
func (c *LinkCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs() {
		ch <- d
	}
}

func (c *LinkCollector) descs() []*prometheus.Desc {
	return []*prometheus.Desc{
		descFor("packets_sent_total", "DATA packets armed for transmission.", c.labelKeys),
		descFor("retransmits_total", "DATA packets re-armed after a send timeout.", c.labelKeys),
		descFor("acks_sent_total", "Bare ACK packets armed for transmission.", c.labelKeys),
		descFor("window_opened_total", "Times the single-outstanding-packet send window reopened.", c.labelKeys),
		descFor("messages_handled_total", "Distinct inbound DATA payloads delivered to the upper layer.", c.labelKeys),
		descFor("duplicates_suppressed_total", "Inbound DATA payloads recognized as retransmits and not redelivered.", c.labelKeys),
		descFor("checksum_failures_total", "Frames rejected for a Pearson-8 checksum mismatch.", c.labelKeys),
		descFor("protocol_desyncs_total", "Receive framer resyncs after an illegal length byte or corrupted frame.", c.labelKeys),
		descFor("send_deferred_total", "Completed inbound DATA frames that could not be delivered because the send window was busy.", c.labelKeys),
		descFor("current_sequence_number", "Sequence number the link will use (or just used) for its next outbound DATA packet.", c.labelKeys),
		descFor("last_sequence_number_seen", "Most recently accepted inbound DATA sequence number.", c.labelKeys),
	}
}

// Collect implements prometheus.Collector.
func (c *LinkCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	descs := c.descs()

	for name, entry := range c.links {
		labels := append([]string{name}, entry.labels...)
		stats := entry.link.Stats()

		counters := []uint64{
			stats.PacketsSent,
			stats.Retransmits,
			stats.AcksSent,
			stats.WindowOpened,
			stats.MessagesHandled,
			stats.DuplicatesSuppressed,
			stats.ChecksumFailures,
			stats.ProtocolDesyncs,
			stats.SendDeferred,
		}

		for i, v := range counters {
			ch <- prometheus.MustNewConstMetric(descs[i], prometheus.CounterValue, float64(v), labels...)
		}

		ch <- prometheus.MustNewConstMetric(descs[9], prometheus.GaugeValue, float64(entry.link.CurrentSequenceNumber()), labels...)
		ch <- prometheus.MustNewConstMetric(descs[10], prometheus.GaugeValue, float64(entry.link.LastSequenceNumberSeen()), labels...)
	}
}
