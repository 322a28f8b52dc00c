// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// sim.go: in-memory SPI wire simulation
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package sim models the physical full-duplex MISO/MOSI byte stream
// between an SPI master and a SPITFP slave as a net.Conn pair, letting
// cmd/spitfp-monitor and integration tests drive a real spitfp.Link
// and socsim.Bridge without any hardware underneath.
package sim

import (
	"net"

	"github.com/Tinkerforge/brickletboot/socsim"
)

// Pipe returns two connected net.Conn endpoints modeling the continuous
// byte-for-byte clocking of an SPI bus: whatever is written to one side
// is what the other side's Read eventually returns, in order.
func Pipe() (master, slave net.Conn) {
	return net.Pipe()
}

// MakePipe adapts Pipe to golang.org/x/net/nettest's MakePipe signature,
// letting the simulated wire be exercised by the standard library's
// net.Conn conformance suite.
func MakePipe() (c1, c2 net.Conn, stop func(), err error) {
	m, s := Pipe()

	return m, s, func() {
		m.Close()
		s.Close()
	}, nil
}

// DriveSlave continuously shuttles bytes between conn (the slave-facing
// end of a Pipe) and bridge, the way a real SPI peripheral's shift
// register exchanges exactly one byte per clock pulse regardless of
// whether either side has anything meaningful to say. It blocks until
// a Read or Write on conn returns an error (typically because conn was
// closed) and returns the first such error.
func DriveSlave(conn net.Conn, bridge *socsim.Bridge) error {
	errc := make(chan error, 2)

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				bridge.WriteFromMaster(buf[:n])
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	go func() {
		for {
			b := bridge.ReadByte()
			if _, err := conn.Write([]byte{b}); err != nil {
				errc <- err
				return
			}
		}
	}()

	return <-errc
}
