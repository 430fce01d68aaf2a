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
package codeinfo

import (
	"math"

	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

// CodeInfo provides a read-only view of encoded code info.  Decoding validates
// every cross-table reference up front, such that queries never index beyond
// the end of a table.  The view does not copy the underlying bytes, which must
// therefore remain unchanged for the lifetime of the view.  Once decoded, a
// CodeInfo may be freely shared between goroutines.
type CodeInfo struct {
	// Machine code (when decoded from a code blob).
	code []byte
	// Encoded code info.
	data   []byte
	header Header
	// Tables
	stackMaps          Table[StackMapLayout]
	inlineInfos        Table[InlineInfoLayout]
	rootsRegMasks      Table[RegisterMaskLayout]
	rootsStackMasks    BitmapTable[StackMaskLayout]
	methodIds          Table[MethodIdLayout]
	vregMasks          BitmapTable[VRegMaskLayout]
	vregMaps           Table[VRegMapLayout]
	vregCatalogue      Table[VRegCatalogueLayout]
	implicitNullChecks Table[ImplicitNullCheckLayout]
	constants          Table[ConstantSlotLayout]
}

type decodableTable interface {
	Len() uint
	Decode(r *bit.Reader) error
}

// Decode constructs a view of the code info encoded in the given bytes.  An
// error wrapping ErrCorruptFormat is returned if the bytes do not hold valid
// code info.
func Decode(data []byte) (*CodeInfo, error) {
	var (
		info   = &CodeInfo{data: data}
		reader = bit.NewReader(data, 0)
	)
	//
	if err := info.header.Decode(&reader); err != nil {
		return nil, err
	}
	//
	for id, table := range info.tables() {
		if !info.header.HasTable(TableId(id)) {
			continue
		} else if err := table.Decode(&reader); err != nil {
			return nil, err
		} else if table.Len() == 0 {
			return nil, corruptf("table %s is present but empty", TableId(id))
		}
	}
	//
	if err := info.validate(); err != nil {
		return nil, err
	}
	//
	return info, nil
}

// DecodeCode constructs a view of the code info held in a compiled code blob.
// The blob begins with a code prefix, which locates both the machine code and
// the code info.
func DecodeCode(blob []byte) (*CodeInfo, error) {
	var prefix CodePrefix
	//
	if err := prefix.UnmarshalBinary(blob); err != nil {
		return nil, corruptf("%v", err)
	} else if prefix.Magic != CODE_PREFIX_MAGIC {
		return nil, corruptf("invalid magic number %#x", prefix.Magic)
	}
	//
	var (
		codeEnd = uint64(CODE_PREFIX_SIZE) + uint64(prefix.CodeSize)
		infoEnd = uint64(prefix.CodeInfoOffset) + uint64(prefix.CodeInfoSize)
	)
	//
	if codeEnd > uint64(prefix.CodeInfoOffset) || infoEnd > uint64(len(blob)) {
		return nil, corruptf("code prefix (code size %d, info at %d of size %d) exceeds blob of %d bytes",
			prefix.CodeSize, prefix.CodeInfoOffset, prefix.CodeInfoSize, len(blob))
	}
	//
	info, err := Decode(blob[prefix.CodeInfoOffset:infoEnd])
	if err != nil {
		return nil, err
	}
	//
	info.code = blob[CODE_PREFIX_SIZE:codeEnd]
	//
	return info, nil
}

// Header returns the method-wide information of this code info.
func (p *CodeInfo) Header() Header {
	return p.header
}

// Arch returns the architecture of the code described by this code info.
func (p *CodeInfo) Arch() Arch {
	return p.header.Arch
}

// FrameSize returns the number of stack slots in the frame of the method.
func (p *CodeInfo) FrameSize() uint32 {
	return p.header.FrameSize
}

// VRegsCount returns the number of virtual registers of the method.
func (p *CodeInfo) VRegsCount() uint32 {
	return p.header.VRegsCount
}

// Code returns the machine code of the method, or nil if this code info was
// not decoded from a code blob.
func (p *CodeInfo) Code() []byte {
	return p.code
}

// CodeSize returns the size (in bytes) of the machine code of the method.
func (p *CodeInfo) CodeSize() uint {
	return uint(len(p.code))
}

// Bytes returns the encoded code info underlying this view.
func (p *CodeInfo) Bytes() []byte {
	return p.data
}

// TableLen returns the number of rows in a given table.
func (p *CodeInfo) TableLen(id TableId) uint {
	return p.tables()[id].Len()
}

// Return all tables in their encoding order
func (p *CodeInfo) tables() [NUM_TABLES]decodableTable {
	return [NUM_TABLES]decodableTable{
		&p.stackMaps, &p.inlineInfos, &p.rootsRegMasks, &p.rootsStackMasks, &p.methodIds,
		&p.vregMasks, &p.vregMaps, &p.vregCatalogue, &p.implicitNullChecks, &p.constants,
	}
}

// ============================================================================
// Validation
// ============================================================================

func (p *CodeInfo) validate() error {
	if err := p.validateStackMaps(); err != nil {
		return err
	} else if err := p.validateInlineInfos(); err != nil {
		return err
	} else if err := p.validateVRegs(); err != nil {
		return err
	} else if err := p.validateWords(); err != nil {
		return err
	}
	//
	return p.validateImplicitNullChecks()
}

func (p *CodeInfo) validateStackMaps() error {
	var (
		align  = uint64(p.header.Arch.InstructionAlignment())
		lastPc uint64
	)
	//
	for row := range p.stackMaps.Len() {
		var (
			properties = p.stackMaps.Get(row, stackMapProperties)
			npc        = p.stackMaps.Get(row, stackMapNativePc)
			bpc        = p.stackMaps.Get(row, stackMapBytecodePc)
			vregMask   = p.stackMaps.Get(row, stackMapVRegMaskIndex)
			vregMap    = p.stackMaps.Get(row, stackMapVRegMapIndex)
		)
		//
		switch {
		case properties > (stackMapIsOsr | stackMapHasRegisterMap):
			return corruptf("stack map %d has invalid properties %#x", row, properties)
		case npc > math.MaxUint32/align || bpc > math.MaxUint32:
			return corruptf("stack map %d has invalid pc (native %#x, bytecode %#x)", row, npc, bpc)
		case npc < lastPc:
			return corruptf("stack map %d has decreasing native pc", row)
		}
		//
		lastPc = npc
		//
		if err := checkIndex(row, "register mask", p.stackMaps.Get(row, stackMapRootsRegMaskIndex),
			p.rootsRegMasks.Len()); err != nil {
			return err
		} else if err := checkIndex(row, "stack mask", p.stackMaps.Get(row, stackMapRootsStackMaskIndex),
			p.rootsStackMasks.Len()); err != nil {
			return err
		} else if err := checkIndex(row, "inline info", p.stackMaps.Get(row, stackMapInlineInfoIndex),
			p.inlineInfos.Len()); err != nil {
			return err
		} else if err := checkIndex(row, "vreg mask", vregMask, p.vregMasks.Len()); err != nil {
			return err
		}
		// Check vreg map range
		var count uint64
		//
		if vregMask != NO_VALUE {
			count = uint64(p.vregMasks.Get(uint(vregMask)).Count())
		}
		//
		if count == 0 && vregMap != NO_VALUE {
			return corruptf("stack map %d has vreg map without vreg mask", row)
		} else if count != 0 && (vregMap == NO_VALUE || vregMap+count > uint64(p.vregMaps.Len())) {
			return corruptf("stack map %d has invalid vreg map range", row)
		}
	}
	//
	return nil
}

func (p *CodeInfo) validateInlineInfos() error {
	var n = p.inlineInfos.Len()
	// Ensures every chain terminates
	if n > 0 && p.inlineInfos.Get(n-1, inlineInfoIsLast) != 1 {
		return corruptf("unterminated inline info chain")
	}
	//
	for row := range n {
		var (
			isLast        = p.inlineInfos.Get(row, inlineInfoIsLast)
			bpc           = p.inlineInfos.Get(row, inlineInfoBytecodePc)
			methodIdIndex = p.inlineInfos.Get(row, inlineInfoMethodIdIndex)
			method        = p.inlineInfos.Get(row, inlineInfoMethod)
			vregsCount    = p.inlineInfos.Get(row, inlineInfoVRegsCount)
		)
		//
		switch {
		case isLast > 1:
			return corruptf("inline info %d has invalid is_last flag", row)
		case bpc > math.MaxUint32 || vregsCount > math.MaxUint32:
			return corruptf("inline info %d has invalid field", row)
		case (methodIdIndex == NO_VALUE) == (method == NO_VALUE):
			return corruptf("inline info %d must have exactly one of method or method id", row)
		}
		//
		if err := checkIndex(row, "method id", methodIdIndex, p.methodIds.Len()); err != nil {
			return err
		}
	}
	// Check vreg counts are cumulative along each chain
	for row := range p.stackMaps.Len() {
		var (
			count = uint64(p.header.VRegsCount)
			index = p.stackMaps.Get(row, stackMapInlineInfoIndex)
		)
		//
		for ; index != NO_VALUE; index++ {
			next := p.inlineInfos.Get(uint(index), inlineInfoVRegsCount)
			//
			if next < count {
				return corruptf("inline info %d has decreasing vregs count", index)
			}
			//
			count = next
			//
			if p.inlineInfos.Get(uint(index), inlineInfoIsLast) == 1 {
				break
			}
		}
	}
	//
	return nil
}

func (p *CodeInfo) validateVRegs() error {
	for row := range p.vregMaps.Len() {
		err := checkIndex(row, "catalogue entry", p.vregMaps.Get(row, 0), p.vregCatalogue.Len())
		if err != nil {
			return err
		}
	}
	//
	for row := range p.vregCatalogue.Len() {
		var (
			info  = p.vregCatalogue.Get(row, vregCatalogueInfo)
			value = p.vregCatalogue.Get(row, vregCatalogueValue)
			vreg  = unpackVRegInfo(info, value)
		)
		//
		if info>>(accumulatorBit+1) != 0 || value > math.MaxUint32 {
			return corruptf("catalogue entry %d is invalid", row)
		} else if vreg.Location >= NUM_LOCATIONS {
			return corruptf("catalogue entry %d has unknown location", row)
		}
		//
		if vreg.IsConstant() {
			lo, hi := vreg.ConstantIndices()
			//
			if lo >= p.constants.Len() || hi >= p.constants.Len() {
				return corruptf("catalogue entry %d has invalid constant (%d,%d)", row, lo, hi)
			}
		}
	}
	//
	return nil
}

// Check all columns holding 32-bit words actually fit.
func (p *CodeInfo) validateWords() error {
	for row := range p.rootsRegMasks.Len() {
		if p.rootsRegMasks.Get(row, 0) > math.MaxUint32 {
			return corruptf("register mask %d is invalid", row)
		}
	}
	//
	for row := range p.methodIds.Len() {
		if p.methodIds.Get(row, 0) > math.MaxUint32 {
			return corruptf("method id %d is invalid", row)
		}
	}
	//
	for row := range p.constants.Len() {
		if p.constants.Get(row, 0) > math.MaxUint32 {
			return corruptf("constant %d is invalid", row)
		}
	}
	//
	return nil
}

func (p *CodeInfo) validateImplicitNullChecks() error {
	for row := range p.implicitNullChecks.Len() {
		var (
			pc     = p.implicitNullChecks.Get(row, implicitNullCheckInstNativePc)
			offset = p.implicitNullChecks.Get(row, implicitNullCheckOffset)
		)
		//
		if pc > math.MaxUint32 || offset > pc {
			return corruptf("implicit null check %d is invalid", row)
		}
	}
	//
	return nil
}

func checkIndex(row uint, name string, index uint64, n uint) error {
	if index != NO_VALUE && index >= uint64(n) {
		return corruptf("row %d refers to %s %d of %d", row, name, index, n)
	}
	//
	return nil
}
