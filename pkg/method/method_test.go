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
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/consensys/go-codeinfo/pkg/codeinfo"
)

// TestDir determines the (relative) location of the test files.
const TestDir = "../../testdata/methods"

func Test_Method_Example_00(t *testing.T) {
	var info = loadAndDecode(t, "example.toml")
	//
	if info.FrameSize() != 1 || info.StackMapCount() != 1 {
		t.Fatalf("unexpected header %v", info.Header())
	}
	//
	sm := info.GetStackMap(0)
	roots := slices.Collect(info.EnumerateStaticRoots(sm))
	expected := []codeinfo.VRegInfo{
		codeinfo.NewVRegInfo(12, codeinfo.LocationRegister, codeinfo.TypeObject, false),
		codeinfo.NewSlotVRegInfo(-3, codeinfo.TypeObject, false),
	}
	//
	if sm.NativePc != 20 || sm.BytecodePc != 10 {
		t.Errorf("unexpected stack map %s", sm)
	} else if !slices.Equal(roots, expected) {
		t.Errorf("expected roots %v, received %v", expected, roots)
	} else if info.CodeSize() != 32 {
		t.Errorf("expected 32 bytes of code, received %d", info.CodeSize())
	}
}

func Test_Method_Inline_00(t *testing.T) {
	var info = loadAndDecode(t, "inline.toml")
	//
	header := info.Header()
	//
	if header.Arch != codeinfo.ArchARM64 || !header.HasFloatRegs || header.CalleeRegMask != 0x7f80000 {
		t.Errorf("unexpected header %v", header)
	} else if info.StackMapCount() != 3 || info.CodeSize() != 24 {
		t.Fatalf("unexpected code info %v", header)
	}
	// OSR entry
	if sm, ok := info.FindOsrStackMap(0); !ok || sm.NativePc != 4 {
		t.Errorf("expected osr entry at 4, received %v", sm)
	}
	// Constants
	vregs := info.GetMethodVRegs(info.GetStackMap(0))
	//
	if c := info.GetConstant(vregs[1]); c != 0x100000002 {
		t.Errorf("expected constant 0x100000002, received %#x", c)
	}
	// Inlined frames
	sm, ok := info.FindStackMapForNativePc(12)
	//
	if !ok {
		t.Fatalf("missing stack map at 12")
	} else if depth := info.InlineDepth(sm); depth != 2 {
		t.Fatalf("expected depth 2, received %d", depth)
	}
	//
	if ii := info.GetInlineInfo(sm, 0); ii.HasMethodPointer() || ii.MethodId != 17 {
		t.Errorf("unexpected inline info %s", ii)
	} else if ii := info.GetInlineInfo(sm, 1); ii.Method != 0x7f001000 || ii.VRegsCount != 5 {
		t.Errorf("unexpected inline info %s", ii)
	}
	//
	inlined := info.GetInlineVRegs(sm, 1)
	//
	if len(inlined) != 2 || inlined[0].IsLive() || inlined[1].Location != codeinfo.LocationFpRegister {
		t.Errorf("unexpected inlined vregs %v", inlined)
	}
	// Accumulator
	if acc := info.GetMethodVRegs(sm)[1]; !acc.IsAccumulator || info.GetConstant(acc) != 0 {
		t.Errorf("unexpected accumulator %s", acc)
	}
	// Null checks
	if _, ok := info.FindImplicitNullCheck(8); !ok {
		t.Errorf("expected implicit null check at 8")
	}
	// Stack map without vreg map
	if sm := info.GetStackMap(2); sm.HasRegisterMap || info.InlineDepth(sm) != 1 {
		t.Errorf("unexpected stack map %s", sm)
	}
}

func Test_Method_Invalid_00(t *testing.T) {
	checkInvalid(t, `arch = "mips"`)
}

func Test_Method_Invalid_01(t *testing.T) {
	checkInvalid(t, `frame-size = 65536`)
}

func Test_Method_Invalid_02(t *testing.T) {
	checkInvalid(t, `code = "xyz"`)
}

func Test_Method_Invalid_03(t *testing.T) {
	checkInvalid(t, `
code = "0000"
code-size = 4`)
}

// Misaligned native pc
func Test_Method_Invalid_04(t *testing.T) {
	checkInvalid(t, `
arch = "arm64"
code-size = 16
[[stack-map]]
npc = 6`)
}

// Decreasing native pc
func Test_Method_Invalid_05(t *testing.T) {
	checkInvalid(t, `
code-size = 16
[[stack-map]]
npc = 8
[[stack-map]]
npc = 4`)
}

// Native pc beyond code
func Test_Method_Invalid_06(t *testing.T) {
	checkInvalid(t, `
code-size = 4
[[stack-map]]
npc = 8`)
}

// Wrong number of vregs
func Test_Method_Invalid_07(t *testing.T) {
	checkInvalid(t, `
vregs = 2
[[stack-map]]
vregs = [ { location = "reg", type = "int32", value = 1 } ]`)
}

// Vregs without vreg map
func Test_Method_Invalid_08(t *testing.T) {
	checkInvalid(t, `
vregs = 1
[[stack-map]]
vreg-map = false
vregs = [ { location = "reg", type = "int32", value = 1 } ]`)
}

// Unknown location
func Test_Method_Invalid_09(t *testing.T) {
	checkInvalid(t, `
vregs = 1
[[stack-map]]
vregs = [ { location = "heap", type = "int32", value = 1 } ]`)
}

// Unknown type
func Test_Method_Invalid_10(t *testing.T) {
	checkInvalid(t, `
vregs = 1
[[stack-map]]
vregs = [ { location = "reg", type = "int128", value = 1 } ]`)
}

// Invalid register root
func Test_Method_Invalid_11(t *testing.T) {
	checkInvalid(t, `
[[stack-map]]
reg-roots = [32]`)
}

// Invalid null check
func Test_Method_Invalid_12(t *testing.T) {
	checkInvalid(t, `
code-size = 16
[[null-check]]
npc = 4
offset = 8`)
}

func Test_Method_Parse_00(t *testing.T) {
	if _, err := Parse([]byte(`name = `)); err == nil {
		t.Errorf("expected parse error")
	}
}

func Test_Method_Load_00(t *testing.T) {
	if _, err := Load(filepath.Join(TestDir, "missing.toml")); err == nil {
		t.Errorf("expected error")
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func loadAndDecode(t *testing.T, name string) *codeinfo.CodeInfo {
	t.Helper()
	//
	method, err := Load(filepath.Join(TestDir, name))
	if err != nil {
		t.Fatal(err)
	}
	//
	blob, err := method.Encode()
	if err != nil {
		t.Fatal(err)
	}
	//
	info, err := codeinfo.DecodeCode(blob)
	if err != nil {
		t.Fatal(err)
	}
	//
	return info
}

func checkInvalid(t *testing.T, text string) {
	t.Helper()
	//
	method, err := Parse([]byte(strings.TrimSpace(text)))
	if err != nil {
		t.Fatal(err)
	} else if _, err := method.Build(); err == nil {
		t.Errorf("expected invalid method")
	}
}
