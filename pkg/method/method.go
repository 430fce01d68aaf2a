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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Method describes a single compiled method, in terms of its machine code and
// the stack maps a compiler backend would record for it.  Methods are written
// in TOML, for example:
//
//	name = "Foo.bar"
//	arch = "arm64"
//	frame-size = 1
//	vregs = 2
//	code-size = 64
//
//	[[stack-map]]
//	bpc = 10
//	npc = 20
//	reg-roots = [12]
//	stack-roots = [2]
//	vregs = [
//	  { location = "slot", type = "object", value = -3 },
//	  { location = "const", type = "int64", constant = 42 },
//	]
type Method struct {
	Name         string      `toml:"name"`
	Arch         string      `toml:"arch"`
	FrameSize    uint32      `toml:"frame-size"`
	VRegs        uint32      `toml:"vregs"`
	CalleeRegs   uint32      `toml:"callee-regs"`
	CalleeFpRegs uint32      `toml:"callee-fp-regs"`
	FloatRegs    bool        `toml:"float-regs"`
	Code         string      `toml:"code"`
	CodeSize     uint32      `toml:"code-size"`
	StackMaps    []StackMap  `toml:"stack-map"`
	NullChecks   []NullCheck `toml:"null-check"`
}

// StackMap describes the state of the method at a single native pc.  Unless
// the vreg map is explicitly disabled, every virtual register of the method
// must be given.
type StackMap struct {
	BytecodePc uint32   `toml:"bpc"`
	NativePc   uint32   `toml:"npc"`
	Osr        bool     `toml:"osr"`
	VRegMap    *bool    `toml:"vreg-map"`
	RegRoots   []uint   `toml:"reg-roots"`
	StackRoots []uint   `toml:"stack-roots"`
	VRegs      []VReg   `toml:"vregs"`
	Inlines    []Inline `toml:"inline"`
}

// Inline describes an inlined frame, given either by a method pointer or by a
// method id.  When the stack map has no vreg map, the number of vregs of the
// frame is given explicitly.
type Inline struct {
	Method     uint64 `toml:"method"`
	MethodId   uint32 `toml:"method-id"`
	BytecodePc uint32 `toml:"bpc"`
	VRegsCount uint32 `toml:"vregs-count"`
	VRegs      []VReg `toml:"vregs"`
}

// VReg describes the state of a single virtual register.  The value is a slot
// or register number, whilst constants are given separately.
type VReg struct {
	Location    string `toml:"location"`
	Type        string `toml:"type"`
	Value       int64  `toml:"value"`
	Constant    uint64 `toml:"constant"`
	Accumulator bool   `toml:"acc"`
}

// NullCheck describes an implicit null check.
type NullCheck struct {
	NativePc uint32 `toml:"npc"`
	Offset   uint32 `toml:"offset"`
}

// Parse a method description from a given array of bytes.
func Parse(data []byte) (*Method, error) {
	var m Method
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &m, nil
}

// Load parses a method description from a given file.
func Load(path string) (*Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Method
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	return &m, nil
}

// HasVRegMap determines whether the vreg map is recorded at this stack map.
func (p *StackMap) HasVRegMap() bool {
	return p.VRegMap == nil || *p.VRegMap
}

// Bytes returns the machine code of this method.  When no code is given, the
// code consists of zeros.
func (p *Method) Bytes() ([]byte, error) {
	if p.Code == "" {
		return make([]byte, p.CodeSize), nil
	}
	//
	code, err := hex.DecodeString(p.Code)
	if err != nil {
		return nil, fmt.Errorf("method %s: invalid code: %w", p.Name, err)
	} else if p.CodeSize != 0 && p.CodeSize != uint32(len(code)) {
		return nil, fmt.Errorf("method %s: code size %d differs from code (%d bytes)", p.Name, p.CodeSize,
			len(code))
	}
	//
	return code, nil
}
