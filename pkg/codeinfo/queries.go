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
	"fmt"
	"iter"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

// StackMap describes the state of compiled code at a single native pc.  Any
// index which is absent holds NO_VALUE.
type StackMap struct {
	// Row of this stack map within its table.
	Row uint
	// Native pc (unpacked) of this stack map.
	NativePc uint32
	// Bytecode pc of this stack map.
	BytecodePc uint32
	// Indicates this is an entry point for on-stack replacement.
	IsOsr bool
	// Indicates the virtual registers are recorded at this stack map.
	HasRegisterMap bool
	// Row within the register mask table.
	RootsRegMaskIndex uint64
	// Row within the stack mask table.
	RootsStackMaskIndex uint64
	// Row within the inline info table of the outermost inlined frame.
	InlineInfoIndex uint64
	// Row within the vreg mask table.
	VRegMaskIndex uint64
	// Row within the vreg map table of the first emitted register.
	VRegMapIndex uint64
}

// HasInlineInfo checks whether this stack map has any inlined frames.
func (p StackMap) HasInlineInfo() bool {
	return p.InlineInfoIndex != NO_VALUE
}

func (p StackMap) String() string {
	return fmt.Sprintf("#%d npc=%#x bpc=%#x osr=%t", p.Row, p.NativePc, p.BytecodePc, p.IsOsr)
}

// InlineInfo describes a single inlined frame of a stack map.  The method is
// given either directly by a pointer or indirectly by a method id.
type InlineInfo struct {
	// Row of this inline info within its table.
	Row uint
	// Indicates this is the innermost inlined frame.
	IsLast bool
	// Bytecode pc within the inlined method.
	BytecodePc uint32
	// Method pointer, or NO_VALUE.
	Method uint64
	// Method id, meaningful only when there is no method pointer.
	MethodId uint32
	// Number of virtual registers of all frames up to and including this one.
	VRegsCount uint32
}

// HasMethodPointer checks whether the method is given directly.
func (p InlineInfo) HasMethodPointer() bool {
	return p.Method != NO_VALUE
}

func (p InlineInfo) String() string {
	if p.HasMethodPointer() {
		return fmt.Sprintf("method=%#x bpc=%#x vregs=%d", p.Method, p.BytecodePc, p.VRegsCount)
	}
	//
	return fmt.Sprintf("method_id=%d bpc=%#x vregs=%d", p.MethodId, p.BytecodePc, p.VRegsCount)
}

// ImplicitNullCheck identifies a memory access which doubles as a null check.
// A fault anywhere in [InstNativePc-Offset, InstNativePc) is a null pointer
// exception.
type ImplicitNullCheck struct {
	InstNativePc uint32
	Offset       uint32
}

// Contains checks whether a fault at a given native pc is covered by this null
// check.
func (p ImplicitNullCheck) Contains(pc uint32) bool {
	return pc >= p.InstNativePc-p.Offset && pc < p.InstNativePc
}

// ============================================================================
// Stack Maps
// ============================================================================

// StackMapCount returns the number of stack maps.
func (p *CodeInfo) StackMapCount() uint {
	return p.stackMaps.Len()
}

// GetStackMap returns the stack map at a given row.
func (p *CodeInfo) GetStackMap(row uint) StackMap {
	if row >= p.stackMaps.Len() {
		panic(fmt.Sprintf("stack map %d out-of-bounds", row))
	}
	//
	properties := p.stackMaps.Get(row, stackMapProperties)
	//
	return StackMap{
		Row:                 row,
		NativePc:            p.header.Arch.UnpackPc(uint32(p.stackMaps.Get(row, stackMapNativePc))),
		BytecodePc:          uint32(p.stackMaps.Get(row, stackMapBytecodePc)),
		IsOsr:               properties&stackMapIsOsr != 0,
		HasRegisterMap:      properties&stackMapHasRegisterMap != 0,
		RootsRegMaskIndex:   p.stackMaps.Get(row, stackMapRootsRegMaskIndex),
		RootsStackMaskIndex: p.stackMaps.Get(row, stackMapRootsStackMaskIndex),
		InlineInfoIndex:     p.stackMaps.Get(row, stackMapInlineInfoIndex),
		VRegMaskIndex:       p.stackMaps.Get(row, stackMapVRegMaskIndex),
		VRegMapIndex:        p.stackMaps.Get(row, stackMapVRegMapIndex),
	}
}

// StackMaps returns an iterator over all stack maps, in order of native pc.
func (p *CodeInfo) StackMaps() iter.Seq[StackMap] {
	return func(yield func(StackMap) bool) {
		for row := range p.stackMaps.Len() {
			if !yield(p.GetStackMap(row)) {
				return
			}
		}
	}
}

// FindStackMapForNativePc finds the stack map at a given native pc (if any).
// When several stack maps share the same native pc, the first is returned.
func (p *CodeInfo) FindStackMapForNativePc(pc uint32) (StackMap, bool) {
	var align = p.header.Arch.InstructionAlignment()
	//
	if pc%align != 0 {
		return StackMap{}, false
	}
	//
	var (
		packed = uint64(pc / align)
		n      = p.stackMaps.Len()
		row    = uint(sort.Search(int(n), func(i int) bool {
			return p.stackMaps.Get(uint(i), stackMapNativePc) >= packed
		}))
	)
	//
	if row < n && p.stackMaps.Get(row, stackMapNativePc) == packed {
		return p.GetStackMap(row), true
	}
	//
	return StackMap{}, false
}

// FindOsrStackMap finds the on-stack replacement entry for a given bytecode
// pc (if any).
func (p *CodeInfo) FindOsrStackMap(bpc uint32) (StackMap, bool) {
	for sm := range p.StackMaps() {
		if sm.IsOsr && sm.BytecodePc == bpc {
			return sm, true
		}
	}
	//
	return StackMap{}, false
}

// ============================================================================
// Inline Infos
// ============================================================================

// InlineDepth returns the number of inlined frames of a given stack map.
func (p *CodeInfo) InlineDepth(sm StackMap) uint {
	var depth uint
	//
	for range p.InlineInfos(sm) {
		depth++
	}
	//
	return depth
}

// GetInlineInfo returns the inlined frame at a given depth of a given stack
// map, where depth 0 is the outermost inlined frame.
func (p *CodeInfo) GetInlineInfo(sm StackMap, depth uint) InlineInfo {
	var index = sm.InlineInfoIndex
	//
	if index == NO_VALUE {
		panic(fmt.Sprintf("stack map %d has no inlined frames", sm.Row))
	}
	// Check all enclosing frames continue the chain
	for i := range depth {
		if p.inlineInfos.Get(uint(index+uint64(i)), inlineInfoIsLast) == 1 {
			panic(fmt.Sprintf("stack map %d has no inlined frame at depth %d", sm.Row, depth))
		}
	}
	//
	return p.getInlineInfo(uint(index) + depth)
}

// InlineInfos returns an iterator over the inlined frames of a given stack map,
// from outermost to innermost.
func (p *CodeInfo) InlineInfos(sm StackMap) iter.Seq[InlineInfo] {
	return func(yield func(InlineInfo) bool) {
		if sm.InlineInfoIndex == NO_VALUE {
			return
		}
		//
		for row := uint(sm.InlineInfoIndex); ; row++ {
			info := p.getInlineInfo(row)
			//
			if !yield(info) || info.IsLast {
				return
			}
		}
	}
}

func (p *CodeInfo) getInlineInfo(row uint) InlineInfo {
	var (
		methodIdIndex = p.inlineInfos.Get(row, inlineInfoMethodIdIndex)
		methodId      uint32
	)
	//
	if methodIdIndex != NO_VALUE {
		methodId = uint32(p.methodIds.Get(uint(methodIdIndex), 0))
	}
	//
	return InlineInfo{
		Row:        row,
		IsLast:     p.inlineInfos.Get(row, inlineInfoIsLast) == 1,
		BytecodePc: uint32(p.inlineInfos.Get(row, inlineInfoBytecodePc)),
		Method:     p.inlineInfos.Get(row, inlineInfoMethod),
		MethodId:   methodId,
		VRegsCount: uint32(p.inlineInfos.Get(row, inlineInfoVRegsCount)),
	}
}

// ============================================================================
// Virtual Registers
// ============================================================================

// GetConstant returns the value of a virtual register holding a constant.
func (p *CodeInfo) GetConstant(vreg VRegInfo) uint64 {
	if !vreg.IsConstant() {
		panic(fmt.Sprintf("vreg %s is not a constant", vreg))
	}
	//
	lo, hi := vreg.ConstantIndices()
	//
	return p.constants.Get(lo, 0) | p.constants.Get(hi, 0)<<32
}

// GetVRegMask returns the mask identifying which virtual registers were
// emitted at a given stack map.  This is empty if none were.
func (p *CodeInfo) GetVRegMask(sm StackMap) bit.Region {
	if sm.VRegMaskIndex == NO_VALUE {
		return bit.Region{}
	}
	//
	return p.vregMasks.Get(uint(sm.VRegMaskIndex))
}

// GetVRegList reconstructs the state of a contiguous range of virtual
// registers at a given stack map.  Since registers are only emitted when they
// change, this walks backwards through the stack maps until every register in
// the range is resolved.  Registers never emitted are reported as dead.
func (p *CodeInfo) GetVRegList(sm StackMap, first uint, count uint) []VRegInfo {
	var (
		vregs     = make([]VRegInfo, count)
		resolved  = bitset.New(count)
		remaining = count
	)
	//
	for row := sm.Row + 1; row > 0 && remaining > 0; row-- {
		var (
			vregMask = p.stackMaps.Get(row-1, stackMapVRegMaskIndex)
			vregMap  = p.stackMaps.Get(row-1, stackMapVRegMapIndex)
			rank     uint64
		)
		//
		if vregMask == NO_VALUE {
			continue
		}
		//
		for i := range p.vregMasks.Get(uint(vregMask)).All() {
			if i >= first+count {
				break
			} else if i >= first && !resolved.Test(i-first) {
				vregs[i-first] = p.catalogueEntry(p.vregMaps.Get(uint(vregMap+rank), 0))
				resolved.Set(i - first)
				remaining--
			}
			//
			rank++
		}
	}
	//
	return vregs
}

// GetMethodVRegs reconstructs the state of the virtual registers of the method
// itself (i.e. excluding those of inlined frames) at a given stack map.
func (p *CodeInfo) GetMethodVRegs(sm StackMap) []VRegInfo {
	return p.GetVRegList(sm, 0, uint(p.header.VRegsCount))
}

// GetInlineVRegs reconstructs the state of the virtual registers of the
// inlined frame at a given depth of a given stack map.
func (p *CodeInfo) GetInlineVRegs(sm StackMap, depth uint) []VRegInfo {
	var (
		info  = p.GetInlineInfo(sm, depth)
		first = p.header.VRegsCount
	)
	//
	if depth > 0 {
		first = p.GetInlineInfo(sm, depth-1).VRegsCount
	}
	//
	return p.GetVRegList(sm, uint(first), uint(info.VRegsCount-first))
}

func (p *CodeInfo) catalogueEntry(index uint64) VRegInfo {
	if index == NO_VALUE {
		return VRegInfo{}
	}
	//
	return unpackVRegInfo(p.vregCatalogue.Get(uint(index), vregCatalogueInfo),
		p.vregCatalogue.Get(uint(index), vregCatalogueValue))
}

// ============================================================================
// Roots
// ============================================================================

// GetRootsRegMask returns the mask of registers holding object references at a
// given stack map.
func (p *CodeInfo) GetRootsRegMask(sm StackMap) uint32 {
	if sm.RootsRegMaskIndex == NO_VALUE {
		return 0
	}
	//
	return uint32(p.rootsRegMasks.Get(uint(sm.RootsRegMaskIndex), 0))
}

// GetRootsStackMask returns the mask of stack slots holding object references
// at a given stack map.
func (p *CodeInfo) GetRootsStackMask(sm StackMap) *bitset.BitSet {
	if sm.RootsStackMaskIndex == NO_VALUE {
		return bitset.New(0)
	}
	//
	return p.rootsStackMasks.Get(uint(sm.RootsStackMaskIndex)).BitSet()
}

// EnumerateStaticRoots returns an iterator over the object references live at
// a given stack map, for a statically typed language.
func (p *CodeInfo) EnumerateStaticRoots(sm StackMap) iter.Seq[VRegInfo] {
	return p.enumerateRoots(sm, TypeObject)
}

// EnumerateDynamicRoots returns an iterator over the tagged values live at a
// given stack map, for a dynamically typed language.  Such values may or may
// not actually be object references.
func (p *CodeInfo) EnumerateDynamicRoots(sm StackMap) iter.Seq[VRegInfo] {
	return p.enumerateRoots(sm, TypeAny)
}

func (p *CodeInfo) enumerateRoots(sm StackMap, typ Type) iter.Seq[VRegInfo] {
	return func(yield func(VRegInfo) bool) {
		regs := p.GetRootsRegMask(sm)
		//
		for reg := range uint32(32) {
			if regs&(1<<reg) != 0 && !yield(VRegInfo{reg, LocationRegister, typ, false}) {
				return
			}
		}
		//
		if sm.RootsStackMaskIndex == NO_VALUE {
			return
		}
		//
		for i := range p.rootsStackMasks.Get(uint(sm.RootsStackMaskIndex)).All() {
			if !yield(p.stackRoot(i, typ)) {
				return
			}
		}
	}
}

// Determine the location of a root from its index in the stack mask.  Indices
// within the frame identify spill slots, which follow the register buffer.
// Indices beyond the frame identify parameters pushed by the caller, which lie
// on the other side of the caller's frame header.
func (p *CodeInfo) stackRoot(index uint, typ Type) VRegInfo {
	var frameSize = uint(p.header.FrameSize)
	//
	if index < frameSize {
		slot := uint32(index) + p.header.Arch.RegisterBufferSlots()
		return VRegInfo{slot, LocationSlot, typ, false}
	}
	//
	return NewSlotVRegInfo(-int32(index-frameSize)-CALLER_FRAME_HEADER_SLOTS, typ, false)
}

// ============================================================================
// Implicit Null Checks
// ============================================================================

// ImplicitNullChecks returns an iterator over all implicit null checks.
func (p *CodeInfo) ImplicitNullChecks() iter.Seq[ImplicitNullCheck] {
	return func(yield func(ImplicitNullCheck) bool) {
		for row := range p.implicitNullChecks.Len() {
			check := ImplicitNullCheck{
				uint32(p.implicitNullChecks.Get(row, implicitNullCheckInstNativePc)),
				uint32(p.implicitNullChecks.Get(row, implicitNullCheckOffset)),
			}
			//
			if !yield(check) {
				return
			}
		}
	}
}

// FindImplicitNullCheck finds the implicit null check covering a fault at a
// given native pc (if any).
func (p *CodeInfo) FindImplicitNullCheck(faultPc uint32) (ImplicitNullCheck, bool) {
	for check := range p.ImplicitNullChecks() {
		if check.Contains(faultPc) {
			return check, true
		}
	}
	//
	return ImplicitNullCheck{}, false
}
