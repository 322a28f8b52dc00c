// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// config.go: compile-time configuration surface, spec.md §6
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

package spitfp

import (
	"log"
	"time"
)

// MaxRetransmitTimeout is the upper bound spec.md §6 and §9 allow for
// RetransmitTimeout; 0 and 20ms are both observed in the original
// firmware's two variants.
const MaxRetransmitTimeout = 20 * time.Millisecond

// Config mirrors the Timeout/Div defaulting pattern used throughout this
// repository's teacher (e.g. soc/nxp/i2c.I2C{Timeout, Div}, defaulted in
// Init). Every field is optional; the zero Config is valid and uses the
// documented defaults.
type Config struct {
	// RetransmitTimeout is how long check_send_timeout waits before
	// re-arming an unacknowledged outbound packet. Zero (the default)
	// relies entirely on the master's sequence-number-based
	// deduplication, matching one of the two firmware variants in
	// _examples/original_source; any value up to MaxRetransmitTimeout is
	// equally correct (see DESIGN.md's open-question note).
	RetransmitTimeout time.Duration

	// Logger receives protocol-error and desync diagnostics. Defaults to
	// log.Default(), matching soc/nxp/usb/device.go's use of the
	// standard log package rather than a structured third-party logger.
	Logger *log.Logger
}

func (c Config) withDefaults() Config {
	if c.RetransmitTimeout > MaxRetransmitTimeout {
		panic("spitfp: RetransmitTimeout exceeds MaxRetransmitTimeout")
	}

	if c.Logger == nil {
		c.Logger = log.Default()
	}

	return c
}
