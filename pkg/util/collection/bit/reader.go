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

import "errors"

// ErrOverrun is returned when a read would extend beyond the end of the
// underlying array of bytes.
var ErrOverrun = errors.New("read beyond end of bit stream")

// Reader provides a mechanism for reading bits from a given array of bytes,
// where the least significant bits are read first.  For example, consider
// sequence of bytes [0x9f,0x05] can be views as the following bit sequence:
//
// | 0 | 1 | 2 | 3 | 4 | 5 | 6 | 7 || 8 | 9 | A | B | C | D | E | F |
// +===+===+===+===+===+===+===+===++===+===+===+===+===+===+===+===+
// | 1 | 1 | 1 | 1 | 1 | 0 | 0 | 1 || 1 | 0 | 1 | 0 | 0 | 0 | 0 | 0 |
// |   |   |   |   |
// | 1 | 1 | 1 | 1 | 1 | 0 | 0 |
//
// The above illustrates the outcome from reading 7 bits.  In such
// case, the value 0b0011111 is returned.  Every read is bounds checked against
// the underlying array, such that a malformed stream results in ErrOverrun
// rather than a panic.
type Reader struct {
	bitoffset uint
	bytes     []byte
}

// NewReader constructs a new bit reader starting at a given bit offset.
func NewReader(bytes []byte, bitoffset uint) Reader {
	return Reader{bitoffset, bytes}
}

// Offset returns the current bit offset of this reader.
func (p *Reader) Offset() uint {
	return p.bitoffset
}

// Size returns the total number of bits in the underlying array.
func (p *Reader) Size() uint {
	return uint(len(p.bytes)) * 8
}

// Remaining returns the number of bits left to read.
func (p *Reader) Remaining() uint {
	var total = uint(len(p.bytes)) * 8
	//
	if p.bitoffset >= total {
		return 0
	}
	//
	return total - p.bitoffset
}

// Read reads n bits (at most 64) from the underlying array.
func (p *Reader) Read(nbits uint) (uint64, error) {
	if nbits > 64 || p.Remaining() < nbits {
		return 0, ErrOverrun
	}
	//
	value := Load(p.bytes, p.bitoffset, nbits)
	p.bitoffset += nbits
	//
	return value, nil
}

// ReadVarint reads a variable length integer, as described in VARINT_BITS.
func (p *Reader) ReadVarint() (uint32, error) {
	prefix, err := p.Read(VARINT_BITS)
	//
	if err != nil {
		return 0, err
	} else if prefix <= VARINT_MAX {
		return uint32(prefix), nil
	}
	// Determine number of bytes to follow
	nbytes := uint(prefix - VARINT_MAX)
	// Sanity check
	if nbytes > VARINT_MAX_BYTES {
		return 0, ErrOverrun
	}
	//
	value, err := p.Read(nbytes * 8)
	//
	return uint32(value), err
}

// Skip moves the reader forward by n bits, returning a region covering the
// bits skipped over.  The region shares the underlying array with this reader.
func (p *Reader) Skip(nbits uint) (Region, error) {
	if p.Remaining() < nbits {
		return Region{}, ErrOverrun
	}
	//
	region := NewRegion(p.bytes, p.bitoffset, nbits)
	p.bitoffset += nbits
	//
	return region, nil
}
