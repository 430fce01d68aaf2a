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

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-codeinfo/pkg/codeinfo"
	log "github.com/sirupsen/logrus"
)

// Build drives a code info builder according to this description.  The
// description is validated first, such that the builder's protocol is never
// violated.
func (p *Method) Build() (builder *codeinfo.Builder, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	// Cannot fail after validation
	arch, _ := p.GetArch()
	builder = codeinfo.NewBuilder(arch)
	// Catch any remaining violations (e.g. too many constants)
	defer func() {
		if r := recover(); r != nil {
			builder, err = nil, fmt.Errorf("method %s: %v", p.Name, r)
		}
	}()
	//
	builder.SetSavedCalleeRegsMask(p.CalleeRegs, p.CalleeFpRegs)
	builder.SetHasFloatRegs(p.FloatRegs)
	builder.BeginMethod(p.FrameSize, p.VRegs)
	//
	for i := range p.StackMaps {
		p.buildStackMap(builder, &p.StackMaps[i])
	}
	//
	for _, check := range p.NullChecks {
		builder.AddImplicitNullCheck(check.NativePc, check.Offset)
	}
	//
	builder.EndMethod()
	//
	log.Debugf("built method %s (%d stack maps)", p.Name, len(p.StackMaps))
	//
	return builder, nil
}

// Encode this method as a code blob, consisting of a code prefix followed by
// the machine code and, finally, the code info.
func (p *Method) Encode() ([]byte, error) {
	builder, err := p.Build()
	if err != nil {
		return nil, err
	}
	// Cannot fail after building
	code, _ := p.Bytes()
	//
	return codeinfo.NewCodeBlob(code, builder.Bytes()), nil
}

// EncodeInfo encodes the code info of this method alone.
func (p *Method) EncodeInfo() ([]byte, error) {
	builder, err := p.Build()
	if err != nil {
		return nil, err
	}
	//
	return builder.Bytes(), nil
}

func (p *Method) buildStackMap(builder *codeinfo.Builder, sm *StackMap) {
	var (
		stackRoots = bitset.New(0)
		regRoots   uint32
		count      = p.VRegs
	)
	//
	for _, reg := range sm.RegRoots {
		regRoots |= 1 << reg
	}
	//
	for _, slot := range sm.StackRoots {
		stackRoots.Set(slot)
	}
	//
	builder.BeginStackMap(sm.BytecodePc, sm.NativePc, stackRoots, regRoots, sm.HasVRegMap(), sm.Osr)
	addVRegs(builder, sm.VRegs)
	//
	for _, frame := range sm.Inlines {
		if sm.HasVRegMap() {
			count += uint32(len(frame.VRegs))
		} else {
			count += frame.VRegsCount
		}
		//
		builder.BeginInlineInfo(frame.Method, frame.MethodId, frame.BytecodePc, count)
		addVRegs(builder, frame.VRegs)
		builder.EndInlineInfo()
	}
	//
	builder.EndStackMap()
}

func addVRegs(builder *codeinfo.Builder, vregs []VReg) {
	for _, vreg := range vregs {
		// Cannot fail after validation
		info, _ := vreg.Resolve()
		//
		if info.IsConstant() {
			builder.AddConstant(vreg.Constant, info.Type, info.IsAccumulator)
		} else {
			builder.AddVReg(info)
		}
	}
}
