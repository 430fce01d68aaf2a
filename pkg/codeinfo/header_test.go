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
	"bytes"
	"errors"
	"testing"

	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

// ===================================================================
// Headers
// ===================================================================

func Test_Header_00(t *testing.T) {
	checkHeader(t, Header{})
}

func Test_Header_01(t *testing.T) {
	checkHeader(t, Header{FrameSize: 1, VRegsCount: 3, TableMask: 0x1ff})
}

func Test_Header_02(t *testing.T) {
	checkHeader(t, Header{MAX_FRAME_SIZE, 0xffffffff, 0x12345678, 0x3ff, 65536, true, ArchARM32})
}

func Test_Header_03(t *testing.T) {
	checkHeader(t, Header{FrameSize: 12, CalleeRegMask: 0x3c0, HasFloatRegs: true, Arch: ArchX86_64})
}

func Test_Header_Invalid_00(t *testing.T) {
	var header = Header{FrameSize: MAX_FRAME_SIZE + 1}
	//
	checkPanic(t, func() { header.Encode(bit.NewWriter(nil, 0)) })
}

// Unknown table
func Test_Header_Corrupt_00(t *testing.T) {
	checkCorruptHeader(t, 0, 0, 0, 1<<NUM_TABLES, 0)
}

// Unknown architecture
func Test_Header_Corrupt_01(t *testing.T) {
	checkCorruptHeader(t, 7<<archShift, 0, 0, 0, 0)
}

// Unknown properties
func Test_Header_Corrupt_02(t *testing.T) {
	checkCorruptHeader(t, 1<<propertiesBits, 0, 0, 0, 0)
}

// Truncated
func Test_Header_Corrupt_03(t *testing.T) {
	checkCorruptHeader(t, 0, 0, 0)
}

// ===================================================================
// Code Prefix
// ===================================================================

func Test_CodePrefix_00(t *testing.T) {
	var (
		prefix   = CodePrefix{CODE_PREFIX_MAGIC, 3, 24, 8}
		expected = []byte{0xca, 0xde, 0xca, 0xac, 3, 0, 0, 0, 24, 0, 0, 0, 8, 0, 0, 0}
		actual   CodePrefix
	)
	//
	t.Parallel()
	//
	data, _ := prefix.MarshalBinary()
	//
	if !equalBytes(data, expected) {
		t.Errorf("expected %v, received %v", expected, data)
	} else if err := actual.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	} else if actual != prefix {
		t.Errorf("expected %v, received %v", prefix, actual)
	}
}

func Test_CodePrefix_01(t *testing.T) {
	var prefix CodePrefix
	//
	if err := prefix.UnmarshalBinary(make([]byte, CODE_PREFIX_SIZE-1)); err == nil {
		t.Errorf("expected error")
	}
}

func Test_CodeBlob_00(t *testing.T) {
	var (
		code = []byte{1, 2, 3}
		info = []byte{4, 5, 6, 7, 8, 9, 10, 11}
		blob = NewCodeBlob(code, info)
	)
	//
	t.Parallel()
	//
	if len(blob) != 32 {
		t.Fatalf("expected 32 bytes, received %d", len(blob))
	} else if !equalBytes(blob[CODE_PREFIX_SIZE:19], code) {
		t.Errorf("expected code %v, received %v", code, blob[16:19])
	} else if !equalBytes(blob[24:], info) {
		t.Errorf("expected info %v, received %v", info, blob[24:])
	}
}

// ===================================================================
// Architectures
// ===================================================================

func Test_Arch_00(t *testing.T) {
	for _, arch := range []Arch{ArchNone, ArchX86_64, ArchARM64, ArchARM32} {
		parsed, err := ParseArch(arch.String())
		//
		if err != nil {
			t.Fatal(err)
		} else if parsed != arch {
			t.Errorf("expected %s, received %s", arch, parsed)
		}
	}
}

func Test_Arch_01(t *testing.T) {
	if _, err := ParseArch("mips"); err == nil {
		t.Errorf("expected error")
	}
}

func Test_Arch_PackPc_00(t *testing.T) {
	checkPackPc(t, ArchNone, 17, 17)
	checkPackPc(t, ArchX86_64, 17, 17)
	checkPackPc(t, ArchARM64, 16, 4)
	checkPackPc(t, ArchARM32, 18, 9)
}

func Test_Arch_PackPc_01(t *testing.T) {
	checkPanic(t, func() { ArchARM64.PackPc(18) })
}

// ===================================================================
// VRegs
// ===================================================================

func Test_VRegInfo_00(t *testing.T) {
	checkVRegInfo(t, VRegInfo{})
	checkVRegInfo(t, NewVRegInfo(12, LocationRegister, TypeObject, false))
	checkVRegInfo(t, NewVRegInfo(3, LocationFpRegister, TypeFloat64, true))
	checkVRegInfo(t, NewSlotVRegInfo(-3, TypeAny, false))
	checkVRegInfo(t, NewVRegInfo(0xffff0001, LocationConstant, TypeInt64, true))
}

func Test_VRegInfo_01(t *testing.T) {
	var vreg = NewSlotVRegInfo(-5, TypeObject, false)
	//
	if vreg.SignedValue() != -5 {
		t.Errorf("expected -5, received %d", vreg.SignedValue())
	} else if vreg.String() != "slot:-5(object)" {
		t.Errorf("unexpected string %s", vreg)
	}
}

func Test_VRegInfo_02(t *testing.T) {
	var vreg = NewVRegInfo(3|7<<16, LocationConstant, TypeInt64, false)
	//
	if lo, hi := vreg.ConstantIndices(); lo != 3 || hi != 7 {
		t.Errorf("expected (3,7), received (%d,%d)", lo, hi)
	}
}

func Test_VRegInfo_03(t *testing.T) {
	for i := range Location(NUM_LOCATIONS) {
		if l, err := ParseLocation(i.String()); err != nil || l != i {
			t.Errorf("failed parsing location %s", i)
		}
	}
	//
	for i := range Type(NUM_TYPES) {
		if typ, err := ParseType(i.String()); err != nil || typ != i {
			t.Errorf("failed parsing type %s", i)
		}
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkHeader(t *testing.T, header Header) {
	var (
		writer = bit.NewWriter(nil, 0)
		actual Header
	)
	//
	t.Parallel()
	//
	header.Encode(writer)
	//
	reader := bit.NewReader(writer.Bytes(), 0)
	//
	if err := actual.Decode(&reader); err != nil {
		t.Fatal(err)
	} else if actual != header {
		t.Errorf("expected %s, received %s", &header, &actual)
	}
}

func checkCorruptHeader(t *testing.T, fields ...uint32) {
	var (
		writer = bit.NewWriter(nil, 0)
		header Header
	)
	//
	t.Parallel()
	//
	for _, f := range fields {
		writer.WriteVarint(f)
	}
	//
	reader := bit.NewReader(writer.Bytes(), 0)
	//
	if err := header.Decode(&reader); !errors.Is(err, ErrCorruptFormat) {
		t.Errorf("expected corrupt format, received %v", err)
	}
}

func checkPackPc(t *testing.T, arch Arch, pc uint32, packed uint32) {
	t.Helper()
	//
	if actual := arch.PackPc(pc); actual != packed {
		t.Errorf("%s: expected %d, received %d", arch, packed, actual)
	} else if unpacked := arch.UnpackPc(actual); unpacked != pc {
		t.Errorf("%s: expected %d, received %d", arch, pc, unpacked)
	}
}

func checkVRegInfo(t *testing.T, vreg VRegInfo) {
	t.Helper()
	//
	if actual := unpackVRegInfo(vreg.packInfo(), uint64(vreg.Value)); actual != vreg {
		t.Errorf("expected %s, received %s", vreg, actual)
	}
}

func equalBytes(lhs []byte, rhs []byte) bool {
	return bytes.Equal(lhs, rhs)
}
