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

import "github.com/bits-and-blooms/bitset"

// Writer provides a mechanism for writing bits into a growable array of bytes,
// where the least significant bits are written first.  Writing can begin at an
// arbitrary bit offset, in which case any bits before that offset are preserved.
type Writer struct {
	bitoffset uint
	bytes     []byte
}

// NewWriter constructs a new bit writer which appends to the given array of
// bytes, starting from the given bit offset.
func NewWriter(bytes []byte, bitoffset uint) *Writer {
	w := &Writer{bitoffset, bytes}
	w.reserve(0)
	//
	return w
}

// Offset returns the current bit offset of this writer.
func (p *Writer) Offset() uint {
	return p.bitoffset
}

// Bytes returns the underlying array of bytes, truncated to the smallest number
// of bytes which hold every bit written so far.
func (p *Writer) Bytes() []byte {
	return p.bytes[:BytesRequiredFor(p.bitoffset)]
}

// Write writes the n least significant bits (at most 64) of a given value.
func (p *Writer) Write(value uint64, nbits uint) {
	p.reserve(nbits)
	Store(p.bytes, p.bitoffset, nbits, value)
	p.bitoffset += nbits
}

// WriteBitSet writes the first n bits of a given bitset, where the bit at
// index 0 is written first.
func (p *Writer) WriteBitSet(bits *bitset.BitSet, nbits uint) {
	p.reserve(nbits)
	//
	for i := range nbits {
		Write(bits.Test(i), p.bytes, p.bitoffset+i)
	}
	//
	p.bitoffset += nbits
}

// WriteVarint writes a value using the variable length encoding described in
// VARINT_BITS.
func (p *Writer) WriteVarint(value uint32) {
	if value <= VARINT_MAX {
		p.Write(uint64(value), VARINT_BITS)
		return
	}
	//
	nbytes := BytesRequiredFor(Width(uint64(value)))
	p.Write(uint64(VARINT_MAX)+uint64(nbytes), VARINT_BITS)
	p.Write(uint64(value), nbytes*8)
}

// AlignTo pads the stream with zero bits up to the next multiple of n bytes
// (measured from the start of the underlying array).
func (p *Writer) AlignTo(nbytes uint) {
	var (
		boundary = nbytes * 8
		residue  = p.bitoffset % boundary
	)
	//
	if residue != 0 {
		p.Write(0, boundary-residue)
	}
}

// Ensure the underlying array can hold n more bits.
func (p *Writer) reserve(nbits uint) {
	required := BytesRequiredFor(p.bitoffset + nbits)
	//
	for uint(len(p.bytes)) < required {
		p.bytes = append(p.bytes, 0)
	}
}
