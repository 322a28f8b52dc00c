// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// cmd/spitfp-exporter: Prometheus exporter over one SPITFP link
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Command spitfp-exporter drives a SPITFP link against either a real
// Linux spidev device or the in-memory simulator, and serves its
// Link.Stats as Prometheus metrics, the way
// runZeroInc-sockstats/cmd/exporter_example1 drives a net.Conn and serves
// its TCPInfo.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tinkerforge/brickletboot/metrics"
	"github.com/Tinkerforge/brickletboot/socsim"
	"github.com/Tinkerforge/brickletboot/soc/linuxspi"
	"github.com/Tinkerforge/brickletboot/spitfp"
)

type identityHandlers struct {
	uid      [8]byte
	deviceID uint16
}

func (h identityHandlers) HandleMessage(link *spitfp.Link, payload []byte) {
	link.SendAckAndMessage(payload)
}

func (h identityHandlers) GetDeviceIdentity() (uid [8]byte, deviceID uint16) {
	return h.uid, h.deviceID
}

func main() {
	var (
		listen    = flag.String("listen", ":18080", "address to serve /metrics on")
		spidev    = flag.String("spidev", "", "path to a Linux spidev character device; empty uses the in-memory simulator")
		linkName  = flag.String("name", "spitfp0", "label value identifying this link in exported metrics")
		tickEvery = flag.Duration("tick", time.Millisecond, "how often to drive the link's Tick loop")
	)
	flag.Parse()

	hostname, err := os.Hostname()
	if err != nil {
		panic(err)
	}

	bridge, closeBridge, err := openBridge(*spidev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spitfp-exporter: %v\n", err)
		os.Exit(1)
	}
	defer closeBridge()

	link := spitfp.New(bridge, identityHandlers{}, spitfp.Config{})

	collector := metrics.NewLinkCollector([]string{"hostname"})
	collector.Add(*linkName, link, []string{hostname})

	prometheus.MustRegister(collector)

	go driveLink(link, bridge, *tickEvery)

	http.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(*listen, nil); err != nil {
		fmt.Fprintf(os.Stderr, "spitfp-exporter: %v\n", err)
		os.Exit(1)
	}
}

// spiPoller is the subset of soc/linuxspi.Bridge's behavior driveLink
// needs beyond spitfp.DMABridge: a real spidev device has to be polled
// for new bytes, where the simulator's RX sink is fed independently.
type spiPoller interface {
	Poll() error
}

func openBridge(spidev string) (bridge spitfp.DMABridge, closeFn func(), err error) {
	if spidev == "" {
		return socsim.NewBridge(2 * spitfp.DataLengthMax), func() {}, nil
	}

	b, err := linuxspi.Open(spidev, 4*spitfp.DataLengthMax)
	if err != nil {
		return nil, nil, err
	}

	return b, func() { b.Close() }, nil
}

func driveLink(link *spitfp.Link, bridge spitfp.DMABridge, every time.Duration) {
	poller, _ := bridge.(spiPoller)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		if poller != nil {
			if err := poller.Poll(); err != nil {
				continue
			}
		}

		link.Tick()
	}
}
