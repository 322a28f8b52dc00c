// brickletboot
// Copyright (C) 2010 Olaf Lüke <olaf@tinkerforge.com>
//
// pearson.go: Pearson-8 checksum used to frame SPITFP packets
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2 of the License, or (at your option) any later version.
//
// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Lesser General Public License for more details.

// Package pearson implements the Pearson-8 hash used as SPITFP's frame
// checksum: a byte-wise fold over a fixed 256-entry permutation table.
// It carries no state between calls and is not a cryptographic primitive,
// only a corruption-detection one.
package pearson

// Table is the fixed permutation used by Update. It is a permutation of
// [0..255], identical on both ends of the link.
var Table = [256]byte{
	0xa2, 0x53, 0xf1, 0x5a, 0x18, 0x91, 0xf2, 0xdf, 0xe1, 0x06, 0x1d, 0xc8, 0x09, 0x0d, 0xbc, 0xfc,
	0x02, 0x9f, 0xa7, 0xc7, 0xc2, 0xb3, 0x3e, 0xff, 0x77, 0x72, 0x6c, 0x0a, 0x10, 0x8e, 0x70, 0x52,
	0x8d, 0x6b, 0x96, 0x0f, 0x79, 0xcc, 0xde, 0xb6, 0xe8, 0x5d, 0x39, 0x3c, 0x98, 0x32, 0xcb, 0x2f,
	0xa0, 0xcd, 0xc4, 0x5c, 0x88, 0x8c, 0x3f, 0x1f, 0x01, 0xba, 0x6a, 0x4f, 0x4c, 0xbe, 0x89, 0x97,
	0x30, 0x9c, 0x1a, 0xef, 0x7a, 0xd6, 0xce, 0x78, 0x68, 0xd1, 0x94, 0x6d, 0x42, 0xfb, 0x9a, 0x80,
	0x65, 0x2a, 0xfe, 0x29, 0x81, 0xbd, 0xf0, 0x90, 0x50, 0xae, 0xe9, 0xab, 0x14, 0x2e, 0x92, 0xc5,
	0x4e, 0x84, 0x25, 0xac, 0xbf, 0xf9, 0xf8, 0x20, 0xd0, 0x6f, 0x7c, 0xa9, 0xe7, 0x73, 0x49, 0x3a,
	0x71, 0x11, 0xfd, 0x8b, 0x13, 0x75, 0x26, 0xd3, 0xd9, 0xaa, 0x35, 0xfa, 0x05, 0xd4, 0x07, 0xf4,
	0x8a, 0x3b, 0xb1, 0xea, 0xb8, 0x1c, 0x34, 0x31, 0x45, 0xda, 0x40, 0x0b, 0x4a, 0x0e, 0xe5, 0x64,
	0x04, 0x6e, 0xe6, 0x66, 0xa6, 0xcf, 0xec, 0x27, 0x74, 0xc6, 0xb2, 0xa3, 0x15, 0x56, 0x37, 0x2b,
	0x19, 0x33, 0xe0, 0xee, 0xc3, 0x4d, 0x46, 0x41, 0xf3, 0xb9, 0x67, 0x62, 0x7e, 0x47, 0x57, 0xa5,
	0x69, 0xdd, 0x9e, 0x38, 0x12, 0xb5, 0x24, 0x7d, 0x82, 0xdc, 0x28, 0x0c, 0xc0, 0xed, 0x44, 0x54,
	0x76, 0xa8, 0x23, 0xbb, 0x60, 0xaf, 0x3d, 0x43, 0x7f, 0x17, 0xb4, 0xb0, 0xd8, 0x4b, 0x36, 0x5b,
	0x63, 0xc1, 0xca, 0x55, 0x08, 0x22, 0xd5, 0xd2, 0xe4, 0x16, 0x58, 0xad, 0x61, 0x03, 0x85, 0x83,
	0xa4, 0x2c, 0xe2, 0xc9, 0x9b, 0xa1, 0x5e, 0x00, 0xdb, 0x86, 0x93, 0x95, 0xf6, 0xeb, 0x51, 0x2d,
	0xf5, 0x21, 0xe3, 0x1b, 0x1e, 0x5f, 0x59, 0x9d, 0x8f, 0x99, 0xd7, 0x87, 0xb7, 0x48, 0x7b, 0xf7,
}

// Update folds a single byte into an existing hash.
func Update(hash, b byte) byte {
	return Table[hash^b]
}

// Fold reduces a byte slice to its Pearson-8 hash, starting from seed.
func Fold(seed byte, data []byte) byte {
	h := seed
	for _, b := range data {
		h = Update(h, b)
	}
	return h
}

// Sum is Fold with the standard SPITFP seed of 0.
func Sum(data []byte) byte {
	return Fold(0, data)
}
