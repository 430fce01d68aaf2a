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
	"strings"
)

// CALLER_FRAME_HEADER_SLOTS is the number of slots between the origin of a
// compiled frame and the first stack parameter pushed by its caller (i.e. the
// saved frame pointer and return address).
const CALLER_FRAME_HEADER_SLOTS = 2

// Arch identifies the target architecture of compiled code.  This determines
// how native program counters are packed, and the size of the register buffer
// at the top of each compiled frame.
type Arch uint8

const (
	// ArchNone is used for code which has no particular target, such as in
	// tests.  Native pcs are stored unscaled and there is no register buffer.
	ArchNone Arch = iota
	// ArchX86_64 is the 64-bit x86 architecture.
	ArchX86_64
	// ArchARM64 is the 64-bit ARM architecture.
	ArchARM64
	// ArchARM32 is the 32-bit ARM architecture (thumb-2).
	ArchARM32
)

// NUM_ARCHS is the number of valid architectures.
const NUM_ARCHS = 4

var archNames = [NUM_ARCHS]string{"none", "x86_64", "arm64", "arm32"}

// ParseArch determines the architecture from its name.
func ParseArch(name string) (Arch, error) {
	for i, n := range archNames {
		if strings.EqualFold(n, name) {
			return Arch(i), nil
		}
	}
	//
	return ArchNone, fmt.Errorf("unknown architecture \"%s\"", name)
}

func (p Arch) String() string {
	if p < NUM_ARCHS {
		return archNames[p]
	}
	//
	return fmt.Sprintf("arch(%d)", uint8(p))
}

// InstructionAlignment returns the alignment (in bytes) of every instruction
// on this architecture.
func (p Arch) InstructionAlignment() uint32 {
	switch p {
	case ArchARM64:
		return 4
	case ArchARM32:
		return 2
	default:
		return 1
	}
}

// RegisterBufferSlots returns the number of slots reserved at the top of each
// compiled frame for spilling general purpose and floating point registers.
// Spill slots are numbered after these.
func (p Arch) RegisterBufferSlots() uint32 {
	switch p {
	case ArchX86_64:
		return 16 + 16
	case ArchARM64:
		return 32 + 32
	case ArchARM32:
		return 16 + 32
	default:
		return 0
	}
}

// PackPc converts a native pc into its packed representation.  Since every
// instruction is aligned, the low bits are always zero and need not be stored.
func (p Arch) PackPc(pc uint32) uint32 {
	var align = p.InstructionAlignment()
	//
	if pc%align != 0 {
		panic(fmt.Sprintf("native pc %#x misaligned for %s", pc, p))
	}
	//
	return pc / align
}

// UnpackPc converts a packed native pc back into an actual native pc.
func (p Arch) UnpackPc(packed uint32) uint32 {
	return packed * p.InstructionAlignment()
}
