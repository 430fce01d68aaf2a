// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package bit

// Load reads n bits (at most 64) starting at a given bit offset out of an array
// of bytes arranged in little endian format.  For example, consider the array
// [0x90,0x7] which is [0b10010000,0b00000111].  Then, the bit offsets can be
// viewed as follows:
//
// +---+---+---+---+---+---+---+---+ +---+---+---+---+---+---+---+---+
// | 1 | 0 | 0 | 1 | 0 | 0 | 0 | 0 | | 0 | 0 | 0 | 0 | 0 | 1 | 1 | 1 |
// +---+---+---+---+---+---+---+---+ +---+---+---+---+---+---+---+---+
// | 07| 06| 05| 04| 03| 02| 01| 00| | 15| 14| 13| 12| 11| 10| 09| 08|
//
// Now, loading 8 bits starting at offset 3 returns 0b11110010 (i.e. bits 3..10
// with bit 3 being the least significant).
func Load(src []byte, offset uint, nbits uint) uint64 {
	var value uint64
	//
	for i := uint(0); i < nbits; {
		var (
			index = (offset + i) / 8
			shift = (offset + i) % 8
			chunk = min(8-shift, nbits-i)
			ith   = uint64(src[index]>>shift) & Mask(chunk)
		)
		//
		value |= ith << i
		i += chunk
	}
	//
	return value
}

// Store writes the n least significant bits of a given value into an array of
// bytes at a given bit offset, assuming a little endian layout of bytes.  Bits
// outside the written range are left untouched.
func Store(dst []byte, offset uint, nbits uint, value uint64) {
	for i := uint(0); i < nbits; {
		var (
			index = (offset + i) / 8
			shift = (offset + i) % 8
			chunk = min(8-shift, nbits-i)
			mask  = byte(Mask(chunk)) << shift
			ith   = byte(value>>i) << shift
		)
		//
		dst[index] = (dst[index] & ^mask) | (ith & mask)
		i += chunk
	}
}

// Read reads the bit at a given bit offset out of an array of bytes arranged in
// little endian format.
func Read(src []byte, bitoffset uint) bool {
	var (
		byte = bitoffset / 8
		bit  = bitoffset % 8
		mask = uint8(1) << bit
	)
	//
	return src[byte]&mask != 0
}

// Write writes a bit to a given bit offset in an array of bytes arranged in
// little endian format.
func Write(val bool, src []byte, bitoffset uint) {
	var (
		byte = bitoffset / 8
		bit  = bitoffset % 8
		mask = uint8(1) << bit
	)
	//
	if val {
		// set bit
		src[byte] = src[byte] | mask
	} else {
		// Clear bit
		src[byte] = src[byte] & ^mask
	}
}
