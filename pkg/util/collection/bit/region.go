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

import (
	"iter"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// Region provides a read-only view of a contiguous sequence of bits within an
// array of bytes.  Regions never copy the underlying bytes, and it is assumed
// the given region lies within the array.
type Region struct {
	bytes  []byte
	offset uint
	nbits  uint
}

// NewRegion constructs a view over n bits of a given array of bytes starting
// at a given bit offset.
func NewRegion(bytes []byte, offset uint, nbits uint) Region {
	return Region{bytes, offset, nbits}
}

// Len returns the number of bits in this region.
func (p Region) Len() uint {
	return p.nbits
}

// Load reads n bits (at most 64) from a given offset within this region.
func (p Region) Load(offset uint, nbits uint) uint64 {
	if offset+nbits > p.nbits {
		panic("region load out-of-bounds")
	}
	//
	return Load(p.bytes, p.offset+offset, nbits)
}

// Sub returns the subregion of n bits starting at the given offset.
func (p Region) Sub(offset uint, nbits uint) Region {
	if offset+nbits > p.nbits {
		panic("subregion out-of-bounds")
	}
	//
	return Region{p.bytes, p.offset + offset, nbits}
}

// Test checks whether the ith bit of this region is set.  Bits beyond the end
// of the region are considered unset.
func (p Region) Test(i uint) bool {
	if i >= p.nbits {
		return false
	}
	//
	return Read(p.bytes, p.offset+i)
}

// Count returns the number of bits in this region which are set.
func (p Region) Count() uint {
	return p.Rank(p.nbits)
}

// Rank returns the number of set bits strictly below a given index.
func (p Region) Rank(index uint) uint {
	var count uint
	//
	index = min(index, p.nbits)
	//
	for i := uint(0); i < index; i += 64 {
		n := min(64, index-i)
		count += uint(bits.OnesCount64(p.Load(i, n)))
	}
	//
	return count
}

// All returns an iterator over the indices of all set bits, in increasing order.
func (p Region) All() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for i := range p.nbits {
			if Read(p.bytes, p.offset+i) && !yield(i) {
				return
			}
		}
	}
}

// BitSet copies this region into a freshly allocated bitset.
func (p Region) BitSet() *bitset.BitSet {
	var set = bitset.New(p.nbits)
	//
	for i := range p.All() {
		set.Set(i)
	}
	//
	return set
}
