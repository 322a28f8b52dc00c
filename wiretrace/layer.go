// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// layer.go: gopacket layer for captured SPITFP wire traces
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.

// Package wiretrace dissects a captured raw byte trace of the SPI bus
// into gopacket layers, one per SPITFP frame (idle run, ACK, or DATA),
// the way yerden-go-snf/snf adapts captured packets into gopacket
// sources; here the "capture" is a plain byte slice recorded off a real
// or simulated wire rather than a NIC ring.
package wiretrace

import (
	"errors"

	"github.com/google/gopacket"

	"github.com/Tinkerforge/brickletboot/pearson"
	"github.com/Tinkerforge/brickletboot/spitfp"
)

// LayerType identifies an SPITFP frame within gopacket's layer registry.
var LayerType = gopacket.RegisterLayerType(
	gopacket.LayerTypeID(vendorLayerTypeBase+1),
	gopacket.LayerTypeMetadata{Name: "SPITFP", Decoder: gopacket.DecodeFunc(decodeFrame)},
)

// vendorLayerTypeBase keeps this package's layer type number out of the
// ranges gopacket's own encoding/* subpackages register into.
const vendorLayerTypeBase = 8000

// Kind classifies a decoded frame.
type Kind int

const (
	KindIdle Kind = iota
	KindAck
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindAck:
		return "ack"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Frame is a decoded SPITFP frame, implementing gopacket.Layer and
// gopacket.DecodingLayer so it can be driven by
// gopacket.NewDecodingLayerParser as well as decoded standalone.
type Frame struct {
	gopacket.BaseLayer

	Kind             Kind
	Length           byte
	Sequence         byte
	LastSequenceSeen byte
	ChecksumValid    bool
}

// LayerType implements gopacket.Layer.
func (f *Frame) LayerType() gopacket.LayerType { return LayerType }

// CanDecode implements gopacket.DecodingLayer.
func (f *Frame) CanDecode() gopacket.LayerClass { return LayerType }

// NextLayerType implements gopacket.DecodingLayer: SPITFP frames carry no
// further gopacket-registered layer, their payload is opaque TFP bytes.
func (f *Frame) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

var (
	errShortIdle  = errors.New("wiretrace: idle run shorter than the requested span")
	errShortFrame = errors.New("wiretrace: truncated ACK/DATA frame")
	errBadLength  = errors.New("wiretrace: illegal length byte")
)

// DecodeFromBytes implements gopacket.DecodingLayer. data must begin
// exactly at a frame boundary (a length byte, or a run of idle bytes);
// Split should be used first to locate frame boundaries in a raw trace.
func (f *Frame) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 {
		return errShortFrame
	}

	length := data[0]

	switch {
	case length == spitfp.IdleByte:
		if err := decodeIdleRun(f, data); err != nil {
			return err
		}
	case length == spitfp.AckLength:
		if err := decodeFixed(f, data, KindAck); err != nil {
			return err
		}
	case length >= spitfp.DataLengthMin && length <= spitfp.DataLengthMax:
		if err := decodeFixed(f, data, KindData); err != nil {
			return err
		}
	default:
		return errBadLength
	}

	return nil
}

func decodeIdleRun(f *Frame, data []byte) error {
	n := 0
	for n < len(data) && data[n] == spitfp.IdleByte {
		n++
	}

	f.Kind = KindIdle
	f.Length = 0
	f.Sequence = 0
	f.LastSequenceSeen = 0
	f.ChecksumValid = true
	f.BaseLayer = gopacket.BaseLayer{Contents: data[:n], Payload: data[n:]}

	return nil
}

func decodeFixed(f *Frame, data []byte, kind Kind) error {
	length := int(data[0])
	if len(data) < length {
		return errShortFrame
	}

	seq := data[1] & 0x0f
	lastSeen := (data[1] >> 4) & 0x0f
	want := data[length-1]
	got := pearson.Sum(data[:length-1])

	f.Kind = kind
	f.Length = byte(length)
	f.Sequence = seq
	f.LastSequenceSeen = lastSeen
	f.ChecksumValid = want == got
	f.BaseLayer = gopacket.BaseLayer{Contents: data[:length], Payload: data[length:]}

	return nil
}

// Payload returns the TFP message payload for a DATA frame, or nil for
// anything else.
func (f *Frame) Payload() []byte {
	if f.Kind != KindData {
		return nil
	}

	if len(f.Contents) < int(spitfp.ProtocolOverhead) {
		return nil
	}

	return f.Contents[2 : len(f.Contents)-1]
}

// decodeFrame is the gopacket.DecodeFunc registered for LayerType,
// letting callers use gopacket.NewPacket against a single captured frame.
func decodeFrame(data []byte, p gopacket.PacketBuilder) error {
	f := &Frame{}

	if err := f.DecodeFromBytes(data, p); err != nil {
		return err
	}

	p.AddLayer(f)

	return nil
}
