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

	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

// MAX_FRAME_SIZE is the largest frame size (in slots) which can be recorded.
const MAX_FRAME_SIZE = 0xffff

// Bit layout of the properties field of the header.
const (
	frameSizeBits     = 16
	hasFloatRegsShift = frameSizeBits
	archShift         = hasFloatRegsShift + 1
	archBits          = 3
	propertiesBits    = archShift + archBits
)

// Header provides the method-wide information at the start of every encoded
// code info.
type Header struct {
	// Number of stack slots in the frame (excluding the register buffer).
	FrameSize uint32
	// Callee-saved general purpose registers spilled by the method.
	CalleeRegMask uint32
	// Callee-saved floating point registers spilled by the method.
	CalleeFpRegMask uint32
	// Identifies which tables are present.  Bit i is set iff the table with id
	// i has at least one row.
	TableMask uint32
	// Number of virtual registers of the method (including the accumulator).
	VRegsCount uint32
	// Indicates whether the method uses floating point registers.
	HasFloatRegs bool
	// Target architecture of the code.
	Arch Arch
}

// HasTable checks whether a given table is present.
func (p *Header) HasTable(id TableId) bool {
	return p.TableMask&(1<<id) != 0
}

// Encode writes this header to a given bit stream.  The frame size, float
// registers flag and architecture are combined into a single properties field.
func (p *Header) Encode(w *bit.Writer) {
	var properties = p.FrameSize | uint32(p.Arch)<<archShift
	//
	if p.FrameSize > MAX_FRAME_SIZE {
		panic(fmt.Sprintf("frame size %d exceeds maximum", p.FrameSize))
	} else if p.HasFloatRegs {
		properties |= 1 << hasFloatRegsShift
	}
	//
	w.WriteVarint(properties)
	w.WriteVarint(p.CalleeRegMask)
	w.WriteVarint(p.CalleeFpRegMask)
	w.WriteVarint(p.TableMask)
	w.WriteVarint(p.VRegsCount)
}

// Decode initialises this header from a given bit stream, as written by
// Encode.
func (p *Header) Decode(r *bit.Reader) error {
	var fields [5]uint32
	//
	for i := range fields {
		field, err := r.ReadVarint()
		//
		if err != nil {
			return corruptf("header: %v", err)
		}
		//
		fields[i] = field
	}
	//
	properties := fields[0]
	//
	if properties>>propertiesBits != 0 {
		return corruptf("header: invalid properties %#x", properties)
	} else if fields[3]>>NUM_TABLES != 0 {
		return corruptf("header: invalid table mask %#x", fields[3])
	}
	//
	p.FrameSize = properties & MAX_FRAME_SIZE
	p.HasFloatRegs = (properties>>hasFloatRegsShift)&1 != 0
	p.Arch = Arch((properties >> archShift) & ((1 << archBits) - 1))
	p.CalleeRegMask = fields[1]
	p.CalleeFpRegMask = fields[2]
	p.TableMask = fields[3]
	p.VRegsCount = fields[4]
	//
	if p.Arch >= NUM_ARCHS {
		return corruptf("header: unknown architecture %d", p.Arch)
	}
	//
	return nil
}

func (p *Header) String() string {
	return fmt.Sprintf("frame_size=%d vregs=%d arch=%s callee_regs=%#x callee_fp_regs=%#x float_regs=%t tables=%#x",
		p.FrameSize, p.VRegsCount, p.Arch, p.CalleeRegMask, p.CalleeFpRegMask, p.HasFloatRegs, p.TableMask)
}
