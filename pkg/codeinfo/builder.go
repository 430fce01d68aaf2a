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

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
	log "github.com/sirupsen/logrus"
)

// MAX_VREG_HISTORY bounds the number of stack maps between two emissions of
// the same virtual register.  Even when a register does not change, it is
// emitted again once this many stack maps have passed.  Thus, reconstructing
// a register never requires looking back further than this many stack maps.
const MAX_VREG_HISTORY = 32

type builderState uint8

const (
	stateIdle builderState = iota
	stateMethod
	stateStackMap
	stateInlineInfo
	stateClosed
)

var stateNames = []string{"idle", "method", "stack map", "inline info", "closed"}

// An inlined frame of the stack map currently being built.
type inlineEntry struct {
	method     uint64
	methodId   uint32
	bpc        uint32
	vregsCount uint32
}

// The last emission of a given virtual register.
type vregHistory struct {
	vreg     VRegInfo
	stackMap uint
	emitted  bool
}

// Builder constructs the code info for a single method, as it is being
// compiled.  A builder is driven through a fixed protocol of calls, as follows:
//
//	BeginMethod
//	  BeginStackMap
//	    AddVReg / AddConstant  (method registers)
//	    BeginInlineInfo
//	      AddVReg / AddConstant  (inlined registers)
//	    EndInlineInfo
//	    ...
//	  EndStackMap
//	  ...
//	EndMethod
//	Encode
//
// Calls out of order indicate a bug in the compiler and result in a panic.  A
// builder must not be shared between goroutines.
type Builder struct {
	arch   Arch
	header Header
	state  builderState
	// Tables
	stackMaps          *TableBuilder[StackMapLayout]
	inlineInfos        *TableBuilder[InlineInfoLayout]
	rootsRegMasks      *TableBuilder[RegisterMaskLayout]
	rootsStackMasks    *BitmapTableBuilder[StackMaskLayout]
	methodIds          *TableBuilder[MethodIdLayout]
	vregMasks          *BitmapTableBuilder[VRegMaskLayout]
	vregMaps           *TableBuilder[VRegMapLayout]
	vregCatalogue      *TableBuilder[VRegCatalogueLayout]
	implicitNullChecks *TableBuilder[ImplicitNullCheckLayout]
	constants          *TableBuilder[ConstantSlotLayout]
	// Stack map currently being built
	current        [MAX_COLUMNS]uint64
	requireVRegMap bool
	vregs          []VRegInfo
	inlines        []inlineEntry
	// Last emission of each virtual register within this method
	history []vregHistory
}

// NewBuilder constructs a code info builder for code targeting a given
// architecture.
func NewBuilder(arch Arch) *Builder {
	builder := &Builder{arch: arch}
	builder.header.Arch = arch
	builder.reset()
	//
	return builder
}

// Arch returns the target architecture of this builder.
func (p *Builder) Arch() Arch {
	return p.arch
}

// SetFrameSize updates the frame size (in slots) of the method.
func (p *Builder) SetFrameSize(size uint32) {
	if size > MAX_FRAME_SIZE {
		panic(fmt.Sprintf("frame size %d exceeds maximum", size))
	}
	//
	p.header.FrameSize = size
}

// SetSavedCalleeRegsMask records the callee-saved registers spilled by the
// method.
func (p *Builder) SetSavedCalleeRegsMask(regs uint32, fpRegs uint32) {
	p.header.CalleeRegMask = regs
	p.header.CalleeFpRegMask = fpRegs
}

// SetHasFloatRegs records whether the method uses floating point registers.
func (p *Builder) SetHasFloatRegs(flag bool) {
	p.header.HasFloatRegs = flag
}

// BeginMethod starts building the code info for a method with a given frame
// size (in slots) and number of virtual registers.  Any tables from a previous
// method are discarded.
func (p *Builder) BeginMethod(frameSize uint32, vregsCount uint32) {
	if p.state != stateIdle && p.state != stateClosed {
		p.violation("BeginMethod")
	}
	//
	p.reset()
	p.SetFrameSize(frameSize)
	p.header.VRegsCount = vregsCount
	// Ensure zero constants share the first slot.
	p.constants.AddDedup(0)
	p.state = stateMethod
}

// EndMethod finishes building the code info for the current method.
func (p *Builder) EndMethod() {
	p.expect(stateMethod, "EndMethod")
	p.state = stateClosed
}

// BeginStackMap starts a new stack map at a given bytecode pc and native pc.
// Native pcs must be given in non-decreasing order.  The stack and register
// roots identify those slots and registers holding object references.  When no
// vreg map is required (e.g. at a call where the callee does the work), no
// virtual registers may be added.
func (p *Builder) BeginStackMap(bpc uint32, npc uint32, stackRoots *bitset.BitSet, regRoots uint32,
	requireVRegMap bool, isOsr bool) {
	//
	p.expect(stateMethod, "BeginStackMap")
	//
	var (
		packed     = p.arch.PackPc(npc)
		properties uint64
	)
	// Sanity check native pcs are ordered.
	if n := p.stackMaps.Len(); n > 0 && uint64(packed) < p.stackMaps.Get(n-1, stackMapNativePc) {
		panic(fmt.Sprintf("native pc %#x precedes previous stack map", npc))
	}
	//
	if isOsr {
		properties |= stackMapIsOsr
	}
	//
	if requireVRegMap {
		properties |= stackMapHasRegisterMap
	}
	//
	p.current = [MAX_COLUMNS]uint64{properties, uint64(packed), uint64(bpc),
		NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE}
	//
	if regRoots != 0 {
		p.current[stackMapRootsRegMaskIndex] = uint64(p.rootsRegMasks.AddDedup(uint64(regRoots)))
	}
	//
	if stackRoots != nil && stackRoots.Any() {
		p.current[stackMapRootsStackMaskIndex] = uint64(p.rootsStackMasks.Add(stackRoots))
	}
	//
	p.requireVRegMap = requireVRegMap
	p.vregs = p.vregs[:0]
	p.inlines = p.inlines[:0]
	p.state = stateStackMap
}

// EndStackMap finishes the current stack map.  Only those virtual registers
// which have changed since they were last emitted (or which were last emitted
// too long ago) are recorded.
func (p *Builder) EndStackMap() {
	p.expect(stateStackMap, "EndStackMap")
	//
	if p.requireVRegMap {
		if expected := p.expectedVRegs(); uint32(len(p.vregs)) != expected {
			panic(fmt.Sprintf("stack map has %d vregs, expected %d", len(p.vregs), expected))
		}
		//
		p.emitVRegs()
	}
	//
	p.emitInlineInfos()
	p.stackMaps.Add(p.current[:len(stackMapColumns)]...)
	p.state = stateMethod
}

// BeginInlineInfo adds an inlined frame to the current stack map.  Inlined
// frames are added from outermost to innermost.  The method is given either as
// a pointer or, when that is zero, as a method id.  The pointer NO_VALUE is
// reserved to mark an absent pointer, and cannot be given.  The number of vregs
// is cumulative and includes those of the method and all enclosing inlined
// frames.
func (p *Builder) BeginInlineInfo(method uint64, methodId uint32, bpc uint32, vregsCount uint32) {
	p.expect(stateStackMap, "BeginInlineInfo")
	//
	var enclosing = p.expectedVRegs()
	//
	if method == NO_VALUE {
		panic(fmt.Sprintf("method pointer %#x is reserved", method))
	} else if vregsCount < enclosing {
		panic(fmt.Sprintf("inlined frame has %d vregs, enclosing frames have %d", vregsCount, enclosing))
	} else if p.requireVRegMap && uint32(len(p.vregs)) != enclosing {
		panic(fmt.Sprintf("enclosing frames have %d vregs, expected %d", len(p.vregs), enclosing))
	}
	//
	p.inlines = append(p.inlines, inlineEntry{method, methodId, bpc, vregsCount})
	p.state = stateInlineInfo
}

// EndInlineInfo finishes the current inlined frame.
func (p *Builder) EndInlineInfo() {
	p.expect(stateInlineInfo, "EndInlineInfo")
	//
	if expected := p.expectedVRegs(); p.requireVRegMap && uint32(len(p.vregs)) != expected {
		panic(fmt.Sprintf("inlined frame has %d vregs, expected %d", len(p.vregs), expected))
	}
	//
	p.state = stateStackMap
}

// AddVReg adds the descriptor of the next virtual register to the current
// stack map (or inlined frame).  Constants must be added with AddConstant.
func (p *Builder) AddVReg(vreg VRegInfo) {
	if p.state != stateStackMap && p.state != stateInlineInfo {
		p.violation("AddVReg")
	} else if !p.requireVRegMap {
		panic("stack map does not require vreg map")
	} else if vreg.Location == LocationConstant {
		panic("constant vregs must be added with AddConstant")
	} else if vreg.Location >= NUM_LOCATIONS || vreg.Type >= NUM_TYPES {
		panic(fmt.Sprintf("invalid vreg %s", vreg))
	}
	//
	p.vregs = append(p.vregs, vreg)
}

// AddConstant adds a virtual register holding a given constant to the current
// stack map (or inlined frame).  The constant is split into its low and high
// halves, which are each stored (once) in the constant table.
func (p *Builder) AddConstant(value uint64, typ Type, acc bool) {
	if p.state != stateStackMap && p.state != stateInlineInfo {
		p.violation("AddConstant")
	} else if !p.requireVRegMap {
		panic("stack map does not require vreg map")
	}
	//
	var (
		lo = p.constants.AddDedup(value & 0xffffffff)
		hi = p.constants.AddDedup(value >> 32)
	)
	//
	if hi >= MAX_CONSTANTS || lo >= MAX_CONSTANTS {
		panic("too many constants")
	}
	//
	p.vregs = append(p.vregs, VRegInfo{uint32(lo | hi<<constantIdxBits), LocationConstant, typ, acc})
}

// AddImplicitNullCheck records a memory access which doubles as a null check.
// The native pc is that following the access, and the offset is that back to
// the start of the access.
func (p *Builder) AddImplicitNullCheck(instNativePc uint32, offset uint32) {
	p.expect(stateMethod, "AddImplicitNullCheck")
	//
	if offset > instNativePc {
		panic(fmt.Sprintf("null check offset %d exceeds native pc %#x", offset, instNativePc))
	}
	//
	p.implicitNullChecks.Add(uint64(instNativePc), uint64(offset))
}

// Bytes encodes the completed method into a fresh array of bytes.
func (p *Builder) Bytes() []byte {
	return p.Encode(nil, 0)
}

// Encode writes the completed method into a given array of bytes, starting at
// a given bit offset.  The header is written first, followed by every table
// which has at least one row.  The resulting array is padded to a multiple of
// 8 bytes and returned.
func (p *Builder) Encode(buffer []byte, bitoffset uint) []byte {
	p.expect(stateClosed, "Encode")
	//
	var (
		tables = p.tables()
		header = p.header
		writer = bit.NewWriter(buffer, bitoffset)
	)
	// Determine which tables are present
	header.TableMask = 0
	//
	for i, table := range tables {
		if table.Len() > 0 {
			header.TableMask |= 1 << i
		}
	}
	//
	header.Encode(writer)
	//
	var maxRows uint
	//
	for _, table := range tables {
		if table.Len() > 0 {
			table.Encode(writer)
		}
		//
		maxRows = max(maxRows, table.Len())
	}
	// No table may hold more rows than the stream has bits, which only
	// matters for tables of (many) zero-width rows.
	for n := writer.Offset() - bitoffset; n < maxRows; n = writer.Offset() - bitoffset {
		writer.Write(0, min(64, maxRows-n))
	}
	//
	writer.AlignTo(CODE_INFO_ALIGNMENT)
	//
	log.Debugf("encoded %d stack maps (%d inline infos, %d vreg maps, %d catalogue entries) into %d bits",
		p.stackMaps.Len(), p.inlineInfos.Len(), p.vregMaps.Len(), p.vregCatalogue.Len(), writer.Offset()-bitoffset)
	//
	return writer.Bytes()
}

// Emit those virtual registers of the current stack map which have changed.
func (p *Builder) emitVRegs() {
	var (
		row  = p.stackMaps.Len()
		mask = bitset.New(uint(len(p.vregs)))
	)
	//
	for len(p.history) < len(p.vregs) {
		p.history = append(p.history, vregHistory{})
	}
	//
	for i, vreg := range p.vregs {
		last := &p.history[i]
		//
		if last.emitted && last.vreg == vreg && row-last.stackMap < MAX_VREG_HISTORY {
			continue
		}
		//
		mask.Set(uint(i))
		//
		index := p.vregMaps.Add(p.catalogueIndex(vreg))
		//
		if p.current[stackMapVRegMapIndex] == NO_VALUE {
			p.current[stackMapVRegMapIndex] = uint64(index)
		}
		//
		*last = vregHistory{vreg, row, true}
	}
	//
	if mask.Any() {
		p.current[stackMapVRegMaskIndex] = uint64(p.vregMasks.Add(mask))
	}
}

// Emit the chain of inlined frames of the current stack map.
func (p *Builder) emitInlineInfos() {
	for i, entry := range p.inlines {
		var (
			isLast        uint64
			method        = uint64(NO_VALUE)
			methodIdIndex = uint64(NO_VALUE)
		)
		//
		if i == len(p.inlines)-1 {
			isLast = 1
		}
		//
		if entry.method != 0 {
			method = entry.method
		} else {
			methodIdIndex = uint64(p.methodIds.AddDedup(uint64(entry.methodId)))
		}
		//
		index := p.inlineInfos.Add(isLast, uint64(entry.bpc), methodIdIndex, method, uint64(entry.vregsCount))
		//
		if i == 0 {
			p.current[stackMapInlineInfoIndex] = uint64(index)
		}
	}
}

// Determine the catalogue index for a given register, adding it to the
// catalogue as necessary.
func (p *Builder) catalogueIndex(vreg VRegInfo) uint64 {
	if !vreg.IsLive() {
		return NO_VALUE
	}
	//
	return uint64(p.vregCatalogue.AddDedup(vreg.packInfo(), uint64(vreg.Value)))
}

// Determine the number of vregs expected for the current (inlined) frame.
func (p *Builder) expectedVRegs() uint32 {
	if n := len(p.inlines); n > 0 {
		return p.inlines[n-1].vregsCount
	}
	//
	return p.header.VRegsCount
}

type tableBuilder interface {
	Len() uint
	Encode(w *bit.Writer)
}

// Return all tables in their encoding order
func (p *Builder) tables() [NUM_TABLES]tableBuilder {
	return [NUM_TABLES]tableBuilder{
		p.stackMaps, p.inlineInfos, p.rootsRegMasks, p.rootsStackMasks, p.methodIds,
		p.vregMasks, p.vregMaps, p.vregCatalogue, p.implicitNullChecks, p.constants,
	}
}

func (p *Builder) reset() {
	p.stackMaps = NewTableBuilder[StackMapLayout]()
	p.inlineInfos = NewTableBuilder[InlineInfoLayout]()
	p.rootsRegMasks = NewTableBuilder[RegisterMaskLayout]()
	p.rootsStackMasks = NewBitmapTableBuilder[StackMaskLayout]()
	p.methodIds = NewTableBuilder[MethodIdLayout]()
	p.vregMasks = NewBitmapTableBuilder[VRegMaskLayout]()
	p.vregMaps = NewTableBuilder[VRegMapLayout]()
	p.vregCatalogue = NewTableBuilder[VRegCatalogueLayout]()
	p.implicitNullChecks = NewTableBuilder[ImplicitNullCheckLayout]()
	p.constants = NewTableBuilder[ConstantSlotLayout]()
	p.vregs = nil
	p.inlines = nil
	p.history = nil
}

func (p *Builder) expect(state builderState, operation string) {
	if p.state != state {
		p.violation(operation)
	}
}

func (p *Builder) violation(operation string) {
	panic(fmt.Sprintf("%s not permitted in %s state", operation, stateNames[p.state]))
}
