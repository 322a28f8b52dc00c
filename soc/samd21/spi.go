// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// spi.go: SAMD21 SERCOM SPI slave + DMAC bridge for spitfp.DMABridge
// https://github.com/usbarmory/tamago
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// +build tamago,arm staticcheck

// Package samd21 implements a spitfp.DMABridge against a real Microchip
// SAMD21's SERCOM peripheral configured as an SPI slave, backed by the
// DMAC for both the RX circular sink and the TX idle/one-shot chain of
// spec.md §4.3.
//
// Register offsets below follow the SAM D21 Family Data Sheet's SERCOM
// SPI and DMAC memory maps; only the subset this bridge needs is named.
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/tamago.
package samd21

import (
	"sync"
	"unsafe"

	"github.com/Tinkerforge/brickletboot/internal/reg"
)

// SERCOM SPI registers, slave mode (Table 26-9, SAM D21 Family Data Sheet).
const (
	SERCOM_SPI_CTRLA = 0x00
	CTRLA_ENABLE     = 1
	CTRLA_SWRST      = 0

	SERCOM_SPI_CTRLB = 0x04
	CTRLB_RXEN       = 17

	SERCOM_SPI_INTFLAG = 0x14
	INTFLAG_ERROR      = 7
	INTFLAG_SSL        = 3
	INTFLAG_RXC        = 2
	INTFLAG_TXC        = 1
	INTFLAG_DRE        = 0

	SERCOM_SPI_STATUS = 0x18
	STATUS_BUFOVF     = 3

	SERCOM_SPI_DATA = 0x28
)

// DMAC channel registers (22.8, SAM D21 Family Data Sheet). BrickletBoot
// uses one channel for the RX circular sink and one for the TX chain;
// both are configured by board bring-up code, not by this package, which
// only reads/writes the subset it needs at runtime.
const (
	DMAC_CHCTRLA = 0x00
	CHCTRLA_ENABLE = 1

	DMAC_CHCTRLB = 0x04

	DMAC_CHINTFLAG = 0x0c
	CHINTFLAG_TERR = 1
	CHINTFLAG_TCMPL = 1

	// DMAC_CHBTCNT mirrors the active descriptor's BTCNT field (beats
	// remaining in the current block transfer), the hardware analogue of
	// spec.md §4.3's "remaining" value.
	DMAC_CHBTCNT = 0x1c
)

// DMAC transfer descriptor field offsets (22.8.4, SAM D21 Family Data
// Sheet). A descriptor is 16 bytes; board bring-up allocates and links
// one descriptor per channel in DMAC descriptor SRAM. In SRCINC=1
// addressing mode, SRCADDR holds the address one past the *last* byte of
// the block, not the first.
const (
	descBTCTRL  = 0x00
	descBTCNT   = 0x02
	descSRCADDR = 0x04
	descDSTADDR = 0x08
	descDESCADDR = 0x0c
)

// Config configures a Bridge instance, following this repository's
// Timeout/Div defaulting convention (see spitfp.Config, soc/nxp/i2c.I2C).
type Config struct {
	// SERCOMBase is the base address of the SERCOM instance wired as the
	// SPI slave.
	SERCOMBase uint32

	// DMACBase is the DMAC peripheral's base address.
	DMACBase uint32

	// RXChannel and TXChannel are the zero-based DMAC channel indices
	// bound to the RX circular sink and the TX idle/one-shot chain,
	// respectively. Board bring-up code is responsible for configuring
	// the two channels' descriptors before Init is called.
	RXChannel int
	TXChannel int

	// RXBuffer is the DMA-reachable memory the RX channel's descriptor
	// points its destination address at. Its length must be at least
	// 2*spitfp.DataLengthMax.
	RXBuffer []byte

	// TXDescriptor is the address, in DMAC descriptor SRAM, of the TX
	// channel's one-shot transfer descriptor. Board bring-up allocates it
	// with DSTADDR fixed at the SERCOM SPI DATA register; Init patches
	// its DESCADDR to chain back into TXIdleDescriptor, and ArmSend
	// patches SRCADDR/BTCNT for each new frame.
	TXDescriptor uint32

	// TXIdleDescriptor is the address of the self-linked idle-loop
	// descriptor that continuously clocks out spitfp.IdleByte while no
	// one-shot frame is armed. Board bring-up points its SRCADDR at a
	// fixed, never-moving idle-byte source; Init only links
	// TXDescriptor's completion back into it.
	TXIdleDescriptor uint32
}

// Bridge implements spitfp.DMABridge against one SERCOM SPI slave and its
// two bound DMAC channels.
type Bridge struct {
	sync.Mutex

	config Config

	sercom  uint32
	dmacRX  uint32
	dmacTX  uint32

	intflag uint32
	status  uint32
}

// Init configures register base addresses from cfg, chains the TX
// one-shot descriptor's completion back into the idle loop, and starts
// both DMAC channels running (RX continuously filling RXBuffer, TX
// continuously clocking out spitfp.IdleByte via the idle loop). Clock
// gating, pin muxing, and the descriptors' own SRCADDR/DSTADDR/BTCTRL
// fields are board support code's responsibility, mirroring how
// soc/nxp/i2c.I2C.Init only programs the controller it owns and expects
// clocks already ungated.
func (b *Bridge) Init(cfg Config) {
	b.Lock()
	defer b.Unlock()

	if cfg.SERCOMBase == 0 || cfg.DMACBase == 0 {
		panic("samd21: invalid SERCOM or DMAC base address")
	}

	if len(cfg.RXBuffer) == 0 {
		panic("samd21: RXBuffer must be provided by board bring-up")
	}

	if cfg.TXDescriptor == 0 || cfg.TXIdleDescriptor == 0 {
		panic("samd21: TXDescriptor and TXIdleDescriptor must be provided by board bring-up")
	}

	b.config = cfg
	b.sercom = cfg.SERCOMBase
	b.dmacRX = cfg.DMACBase + 0x10 + uint32(cfg.RXChannel)*0x20
	b.dmacTX = cfg.DMACBase + 0x10 + uint32(cfg.TXChannel)*0x20

	b.intflag = b.sercom + SERCOM_SPI_INTFLAG
	b.status = b.sercom + SERCOM_SPI_STATUS

	// Chain the one-shot descriptor's completion back to the idle loop,
	// per spec.md §4.3's two-descriptor TX chain (DESIGN.md supplement
	// #1): once ArmSend's frame finishes clocking out, the channel falls
	// back to re-sending IdleByte without software intervention.
	reg.Write(cfg.TXDescriptor+descDESCADDR, cfg.TXIdleDescriptor)

	reg.Set(b.dmacRX+DMAC_CHCTRLA, CHCTRLA_ENABLE)
	reg.Set(b.dmacTX+DMAC_CHCTRLA, CHCTRLA_ENABLE)
}

// RXBuffer implements spitfp.DMABridge.
func (b *Bridge) RXBuffer() []byte {
	return b.config.RXBuffer
}

// RXRemaining implements spitfp.DMABridge by reading the RX DMAC channel's
// current BTCNT, the beats remaining until the channel's descriptor wraps
// back to the top of RXBuffer.
func (b *Bridge) RXRemaining() int {
	return int(reg.Read(b.dmacRX + DMAC_CHBTCNT))
}

// HardwareIdle implements spitfp.DMABridge: true once the TX channel's
// one-shot descriptor has completed and control has fallen back to the
// idle-loop descriptor (spec.md §4.3).
func (b *Bridge) HardwareIdle() bool {
	return reg.Get(b.dmacTX+DMAC_CHCTRLA, CHCTRLA_ENABLE, 1) == 0
}

// ArmSend implements spitfp.DMABridge. Programming a DMAC channel's
// descriptor requires the channel briefly disabled: SRCADDR and BTCNT are
// patched for this specific frame (DSTADDR stays fixed at the SERCOM SPI
// DATA register, set up once by board bring-up), then the channel is
// retriggered, handing the new frame to the one-shot descriptor.
func (b *Bridge) ArmSend(buf []byte) {
	b.Lock()
	defer b.Unlock()

	reg.Clear(b.dmacTX+DMAC_CHCTRLA, CHCTRLA_ENABLE)

	// SRCINC addressing holds the address one past the last byte
	// transferred, per the DMAC's increment-mode semantics.
	srcEnd := uint32(uintptr(unsafe.Pointer(&buf[0]))) + uint32(len(buf))

	reg.Write(b.config.TXDescriptor+descSRCADDR, srcEnd)
	reg.Write(b.config.TXDescriptor+descBTCNT, uint32(len(buf)))

	reg.Set(b.dmacTX+DMAC_CHCTRLA, CHCTRLA_ENABLE)
}

// HandleSPIErrors implements spitfp.DMABridge: clears the SERCOM SPI
// peripheral's ERROR and buffer-overflow conditions, the software
// analogue of a watchdog bouncing a wedged controller (spec.md §4.6
// step 2 and §7 item 6).
func (b *Bridge) HandleSPIErrors() {
	b.Lock()
	defer b.Unlock()

	if reg.Get(b.intflag, INTFLAG_ERROR, 1) == 0 {
		return
	}

	reg.Set(b.intflag, INTFLAG_ERROR)

	if reg.Get(b.status, STATUS_BUFOVF, 1) != 0 {
		reg.Set(b.status, STATUS_BUFOVF)
	}
}
