// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// linuxspi.go: spitfp.DMABridge over a real Linux SPI character device
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package linuxspi implements spitfp.DMABridge against a real
// /dev/spidevN.M character device (or a slave-mode controller driver
// exposing the same ioctl interface), for attaching cmd/spitfp-monitor
// to actual SPI hardware instead of socsim's in-memory model.
//
// Each Poll clocks one full-duplex transfer via SPI_IOC_MESSAGE, folding
// the bytes read from the peer into the RX ring and whatever is currently
// armed into the bytes written out, the userspace-polling analogue of the
// interrupt/DMA-driven bridges in soc/samd21.
package linuxspi

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Tinkerforge/brickletboot/spitfp"
)

const (
	// ioctl request codes, Linux spidev.h: SPI_IOC_MESSAGE(1) expands to
	// _IOW(SPI_IOC_MAGIC, 0, struct spi_ioc_transfer[1]), i.e.
	// (_IOC_WRITE<<30) | (sizeof(spi_ioc_transfer)<<16) | ('k'<<8) | 0.
	_SPI_IOC_MAGIC        = 'k'
	spiIOCTransferMsgSize = 32 // sizeof(struct spi_ioc_transfer) on 64-bit Linux
	_SPI_IOC_MESSAGE_1    = (1 << 30) | (spiIOCTransferMsgSize << 16) | (_SPI_IOC_MAGIC << 8)
)

// spiIOCTransfer mirrors Linux's struct spi_ioc_transfer (linux/spi/spidev.h).
type spiIOCTransfer struct {
	txBuf uint64
	rxBuf uint64

	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNBits     uint8
	rxNBits     uint8
	wordDelay   uint8
	pad         uint8
}

// Bridge polls a Linux SPI character device, presenting it as a
// spitfp.DMABridge.
type Bridge struct {
	mu sync.Mutex

	fd *os.File

	rx        []byte
	rxWritten int

	txBuf    []byte
	txActive bool

	lastErr error
}

// Open opens path (typically /dev/spidevN.M) and allocates an RX ring of
// the given capacity (spec.md §6's RECV_RING_CAPACITY; must be at least
// 2*spitfp.DataLengthMax).
func Open(path string, rxCapacity int) (*Bridge, error) {
	if rxCapacity < 2*spitfp.DataLengthMax {
		return nil, fmt.Errorf("linuxspi: rxCapacity must be at least %d", 2*spitfp.DataLengthMax)
	}

	fd, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("linuxspi: open %s: %w", path, err)
	}

	return &Bridge{fd: fd, rx: make([]byte, rxCapacity)}, nil
}

// Close releases the underlying character device.
func (b *Bridge) Close() error {
	return b.fd.Close()
}

// Poll performs one full-duplex SPI_IOC_MESSAGE transfer: it clocks out
// whatever is currently armed (or zero bytes, idling) and folds whatever
// comes back into the RX ring, in chunks of spitfp.DataLengthMax so a
// single Poll call never blocks on more than one maximal frame's worth of
// bus time.
func (b *Bridge) Poll() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	chunk := spitfp.DataLengthMax

	tx := make([]byte, chunk)
	if b.txActive {
		copy(tx, b.txBuf)
	}

	rx := make([]byte, chunk)

	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(chunk),
		bitsPerWord: 8,
	}

	if err := b.ioctlMessage(&xfer); err != nil {
		b.lastErr = err
		return err
	}

	for _, by := range rx {
		b.rx[b.rxWritten%len(b.rx)] = by
		b.rxWritten++
	}

	if b.txActive {
		b.txActive = false
		b.txBuf = nil
	}

	return nil
}

func (b *Bridge) ioctlMessage(xfer *spiIOCTransfer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.fd.Fd(), uintptr(_SPI_IOC_MESSAGE_1), uintptr(unsafe.Pointer(xfer)))
	if errno != 0 {
		return errno
	}

	return nil
}

// RXBuffer implements spitfp.DMABridge.
func (b *Bridge) RXBuffer() []byte {
	return b.rx
}

// RXRemaining implements spitfp.DMABridge.
func (b *Bridge) RXRemaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.rx) - b.rxWritten%len(b.rx)
}

// HardwareIdle implements spitfp.DMABridge.
func (b *Bridge) HardwareIdle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return !b.txActive
}

// ArmSend implements spitfp.DMABridge: the buffer is clocked out on the
// next Poll call.
func (b *Bridge) ArmSend(buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.txBuf = append([]byte(nil), buf...)
	b.txActive = true
}

// HandleSPIErrors implements spitfp.DMABridge: surfaces the last ioctl
// failure (if any) by resetting it, since the underlying character device
// has no separate error-latch register for Tick to poll.
func (b *Bridge) HandleSPIErrors() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastErr = nil
}

// LastError returns the most recent transfer error observed by Poll, for
// diagnostics. HandleSPIErrors (and so every Tick) resets it to nil.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastErr
}
