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
package method

import (
	"fmt"
	"math"

	"github.com/consensys/go-codeinfo/pkg/codeinfo"
)

// Validate checks this description is well-formed.  That is, a builder can be
// driven by this description without violating its protocol.
func (p *Method) Validate() error {
	arch, err := p.GetArch()
	if err != nil {
		return err
	} else if p.FrameSize > codeinfo.MAX_FRAME_SIZE {
		return fmt.Errorf("method %s: frame size %d exceeds maximum", p.Name, p.FrameSize)
	}
	//
	code, err := p.Bytes()
	if err != nil {
		return err
	}
	//
	var lastPc uint32
	//
	for i := range p.StackMaps {
		if err := p.validateStackMap(&p.StackMaps[i], arch, lastPc, uint32(len(code))); err != nil {
			return fmt.Errorf("method %s: stack map %d: %w", p.Name, i, err)
		}
		//
		lastPc = p.StackMaps[i].NativePc
	}
	//
	for i, check := range p.NullChecks {
		if check.Offset > check.NativePc || check.NativePc > uint32(len(code)) {
			return fmt.Errorf("method %s: null check %d: invalid (npc %#x, offset %d)", p.Name, i,
				check.NativePc, check.Offset)
		}
	}
	//
	return nil
}

// GetArch determines the target architecture of this method.  If none is
// given, then no particular architecture is assumed.
func (p *Method) GetArch() (codeinfo.Arch, error) {
	if p.Arch == "" {
		return codeinfo.ArchNone, nil
	}
	//
	arch, err := codeinfo.ParseArch(p.Arch)
	if err != nil {
		return arch, fmt.Errorf("method %s: %w", p.Name, err)
	}
	//
	return arch, nil
}

func (p *Method) validateStackMap(sm *StackMap, arch codeinfo.Arch, lastPc uint32, codeSize uint32) error {
	switch {
	case sm.NativePc%arch.InstructionAlignment() != 0:
		return fmt.Errorf("native pc %#x misaligned for %s", sm.NativePc, arch)
	case sm.NativePc < lastPc:
		return fmt.Errorf("native pc %#x precedes previous stack map", sm.NativePc)
	case sm.NativePc > codeSize:
		return fmt.Errorf("native pc %#x beyond end of code", sm.NativePc)
	}
	//
	for _, reg := range sm.RegRoots {
		if reg >= 32 {
			return fmt.Errorf("invalid register root %d", reg)
		}
	}
	// Check vregs
	if !sm.HasVRegMap() {
		if len(sm.VRegs) != 0 {
			return fmt.Errorf("vregs given without vreg map")
		}
		//
		for _, frame := range sm.Inlines {
			if len(frame.VRegs) != 0 {
				return fmt.Errorf("inlined vregs given without vreg map")
			}
		}
		//
		return nil
	} else if len(sm.VRegs) != int(p.VRegs) {
		return fmt.Errorf("expected %d vregs, found %d", p.VRegs, len(sm.VRegs))
	}
	//
	for _, frame := range sm.Inlines {
		for _, vreg := range frame.VRegs {
			if _, err := vreg.Resolve(); err != nil {
				return err
			}
		}
	}
	//
	for _, vreg := range sm.VRegs {
		if _, err := vreg.Resolve(); err != nil {
			return err
		}
	}
	//
	return nil
}

// Resolve converts this register into a descriptor suitable for a builder.  For
// constants, the value is left undetermined as this is assigned by the builder.
func (p *VReg) Resolve() (codeinfo.VRegInfo, error) {
	var (
		location codeinfo.Location
		typ      codeinfo.Type
		err      error
	)
	//
	if p.Location != "" {
		if location, err = codeinfo.ParseLocation(p.Location); err != nil {
			return codeinfo.VRegInfo{}, err
		}
	}
	//
	if p.Type != "" {
		if typ, err = codeinfo.ParseType(p.Type); err != nil {
			return codeinfo.VRegInfo{}, err
		}
	}
	//
	switch location {
	case codeinfo.LocationNone:
		// Dead registers carry nothing else
		return codeinfo.VRegInfo{}, nil
	case codeinfo.LocationSlot:
		if p.Value < math.MinInt32 || p.Value > math.MaxInt32 {
			return codeinfo.VRegInfo{}, fmt.Errorf("invalid slot %d", p.Value)
		}
		//
		return codeinfo.NewSlotVRegInfo(int32(p.Value), typ, p.Accumulator), nil
	case codeinfo.LocationConstant:
		if p.Value != 0 {
			return codeinfo.VRegInfo{}, fmt.Errorf("constant given as value (use constant)")
		}
		//
		return codeinfo.NewVRegInfo(0, location, typ, p.Accumulator), nil
	default:
		if p.Value < 0 || p.Value > math.MaxUint32 {
			return codeinfo.VRegInfo{}, fmt.Errorf("invalid register %d", p.Value)
		}
		//
		return codeinfo.NewVRegInfo(uint32(p.Value), location, typ, p.Accumulator), nil
	}
}
