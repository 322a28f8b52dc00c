// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// cmd/spitfp-monitor: interactive terminal dashboard over one SPITFP link
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Command spitfp-monitor drives a SPITFP link against either a real
// Linux spidev device or the in-memory simulator and renders its live
// state to a colorized terminal dashboard, reading single keypresses from
// the controlling tty the way tinygo's own command-line tools do.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"
	"github.com/rs/xid"

	"github.com/Tinkerforge/brickletboot/soc/linuxspi"
	"github.com/Tinkerforge/brickletboot/socsim"
	"github.com/Tinkerforge/brickletboot/spitfp"
)

// echoHandlers answers every DATA packet by echoing its payload straight
// back, a minimal stand-in for the bootloader-mode dispatcher that spec.md
// §1 places above this package's scope.
type echoHandlers struct {
	out io.Writer
}

func (h echoHandlers) HandleMessage(link *spitfp.Link, payload []byte) {
	fmt.Fprintf(h.out, "\x1b[36mrecv\x1b[0m seq=%d len=%d\n", link.LastSequenceNumberSeen(), len(payload))
	link.SendAckAndMessage(payload)
}

func (h echoHandlers) GetDeviceIdentity() (uid [8]byte, deviceID uint16) {
	return uid, deviceID
}

func main() {
	var (
		spidev    = flag.String("spidev", "", "path to a Linux spidev character device; empty uses the in-memory simulator")
		tickEvery = flag.Duration("tick", time.Millisecond, "how often to drive the link's Tick loop")
	)
	flag.Parse()

	sessionID := xid.New()

	out := colorable.NewColorableStdout()
	fmt.Fprintf(out, "spitfp-monitor session \x1b[33m%s\x1b[0m\n", sessionID)

	bridge, closeBridge, err := openBridge(*spidev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spitfp-monitor: %v\n", err)
		os.Exit(1)
	}
	defer closeBridge()

	link := spitfp.New(bridge, echoHandlers{out: out}, spitfp.Config{})

	poller, _ := bridge.(poller)

	paused := false
	ticker := time.NewTicker(*tickEvery)
	defer ticker.Stop()

	dashboard := time.NewTicker(time.Second)
	defer dashboard.Stop()

	keys, closeKeys := readKeys(out)
	defer closeKeys()

	for {
		select {
		case k, ok := <-keys:
			if !ok {
				return
			}

			switch k {
			case 'q':
				return
			case 'p':
				paused = !paused
				fmt.Fprintf(out, "\x1b[35m%s\x1b[0m\n", pauseLabel(paused))
			case 'd':
				fmt.Fprintln(out, spitfp.DumpFrame(bridge.RXBuffer()))
			}

		case <-ticker.C:
			if paused {
				continue
			}

			if poller != nil {
				if err := poller.Poll(); err != nil {
					fmt.Fprintf(out, "\x1b[31mpoll error: %v\x1b[0m\n", err)
					continue
				}
			}

			link.Tick()

		case <-dashboard.C:
			printDashboard(out, link, bridge)
		}
	}
}

// poller is the subset of soc/linuxspi.Bridge's behavior the monitor
// loop needs beyond spitfp.DMABridge.
type poller interface {
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

func pauseLabel(paused bool) string {
	if paused {
		return "paused (p to resume, q to quit, d to dump RX ring)"
	}

	return "running"
}

func printDashboard(out io.Writer, link *spitfp.Link, bridge spitfp.DMABridge) {
	stats := link.Stats()
	occupied := bytesize.New(float64(len(bridge.RXBuffer())) - float64(bridge.RXRemaining()))

	fmt.Fprintf(out, "\x1b[32msent=%d acked=%d retrans=%d dup=%d cksum_fail=%d desync=%d ring=%s\x1b[0m\n",
		stats.PacketsSent, stats.WindowOpened, stats.Retransmits, stats.DuplicatesSuppressed,
		stats.ChecksumFailures, stats.ProtocolDesyncs, occupied)
}

// readKeys reads single keypresses from the controlling terminal without
// requiring Enter, closing the returned channel once the tty is gone.
func readKeys(out io.Writer) (<-chan rune, func()) {
	t, err := tty.Open()
	if err != nil {
		fmt.Fprintf(out, "\x1b[33mno controlling tty, keyboard control disabled: %v\x1b[0m\n", err)

		ch := make(chan rune)
		close(ch)

		return ch, func() {}
	}

	ch := make(chan rune)

	go func() {
		defer close(ch)

		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}

			ch <- r
		}
	}()

	return ch, func() { t.Close() }
}
