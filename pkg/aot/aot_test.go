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
package aot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/consensys/go-codeinfo/pkg/codeinfo"
)

func Test_Aot_00(t *testing.T) {
	checkRoundTrip(t)
}

func Test_Aot_01(t *testing.T) {
	checkRoundTrip(t, "main")
}

func Test_Aot_02(t *testing.T) {
	checkRoundTrip(t, "Foo.bar", "Foo.baz", "Lang/Object.<init>", "Lang/String.length")
}

func Test_Aot_Duplicate_00(t *testing.T) {
	var writer = NewWriter()
	//
	if err := writer.Add("f", nil); err != nil {
		t.Fatal(err)
	} else if err := writer.Add("f", nil); err == nil {
		t.Errorf("expected error")
	}
}

// Deterministic encoding
func Test_Aot_Deterministic_00(t *testing.T) {
	var symbols = []string{"a", "bb", "ccc"}
	//
	if !bytes.Equal(writeFile(t, symbols...), writeFile(t, symbols...)) {
		t.Errorf("encoding not deterministic")
	}
}

func Test_Aot_Open_00(t *testing.T) {
	var (
		symbols = []string{"f", "g"}
		path    = filepath.Join(t.TempDir(), "test.aot")
	)
	//
	if err := os.WriteFile(path, writeFile(t, symbols...), 0600); err != nil {
		t.Fatal(err)
	}
	//
	file, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	//
	checkFile(t, file, symbols)
	//
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
}

// Invalid identifier
func Test_Aot_Malformed_00(t *testing.T) {
	var data = writeFile(t, "f")
	//
	data[0] = 'X'
	checkMalformed(t, data)
}

// Unsupported major version
func Test_Aot_Malformed_01(t *testing.T) {
	var data = writeFile(t, "f")
	//
	data[9]++
	checkMalformed(t, data)
}

// Truncated header
func Test_Aot_Malformed_02(t *testing.T) {
	checkMalformed(t, writeFile(t, "f")[:HEADER_SIZE-1])
}

// Truncated index
func Test_Aot_Malformed_03(t *testing.T) {
	var (
		data   = writeFile(t, "f")
		header Header
	)
	//
	if err := header.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	//
	checkMalformed(t, data[:HEADER_SIZE+header.IndexLength-1])
}

// Truncated blobs
func Test_Aot_Malformed_04(t *testing.T) {
	var data = writeFile(t, "f", "g")
	//
	checkMalformed(t, data[:len(data)-1])
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkRoundTrip(t *testing.T, symbols ...string) {
	t.Parallel()
	//
	file, err := Parse(writeFile(t, symbols...))
	if err != nil {
		t.Fatal(err)
	}
	//
	checkFile(t, file, symbols)
}

func checkFile(t *testing.T, file *File, symbols []string) {
	if !slices.Equal(file.Symbols(), symbols) {
		t.Errorf("expected symbols %v, received %v", symbols, file.Symbols())
	}
	//
	for i, symbol := range symbols {
		blob, ok := file.Lookup(symbol)
		//
		if !ok {
			t.Fatalf("missing symbol %s", symbol)
		} else if !bytes.Equal(blob, testBlob(i)) {
			t.Errorf("symbol %s: unexpected blob", symbol)
		}
		//
		info, err := file.CodeInfo(symbol)
		if err != nil {
			t.Fatal(err)
		} else if info.FrameSize() != uint32(i) || info.CodeSize() != uint(i+1) {
			t.Errorf("symbol %s: unexpected code info %v", symbol, info.Header())
		}
	}
	//
	if _, ok := file.Lookup("missing"); ok {
		t.Errorf("unexpected symbol")
	} else if _, err := file.CodeInfo("missing"); err == nil {
		t.Errorf("expected error")
	}
}

func checkMalformed(t *testing.T, data []byte) {
	t.Helper()
	//
	if _, err := Parse(data); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected malformed file, received %v", err)
	}
}

func writeFile(t *testing.T, symbols ...string) []byte {
	var (
		writer = NewWriter()
		buffer bytes.Buffer
	)
	//
	for i, symbol := range symbols {
		if err := writer.Add(symbol, testBlob(i)); err != nil {
			t.Fatal(err)
		}
	}
	//
	if n, err := writer.WriteTo(&buffer); err != nil {
		t.Fatal(err)
	} else if n != int64(buffer.Len()) {
		t.Fatalf("expected %d bytes written, received %d", buffer.Len(), n)
	}
	//
	return buffer.Bytes()
}

// Construct a code blob for the ith method.
func testBlob(i int) []byte {
	var (
		builder = codeinfo.NewBuilder(codeinfo.ArchNone)
		code    = make([]byte, i+1)
	)
	//
	builder.BeginMethod(uint32(i), 1)
	builder.BeginStackMap(uint32(i), uint32(i), nil, 0, true, false)
	builder.AddVReg(codeinfo.NewVRegInfo(uint32(i), codeinfo.LocationRegister, codeinfo.TypeInt32, false))
	builder.EndStackMap()
	builder.EndMethod()
	//
	for j := range code {
		code[j] = byte(fmt.Sprintf("%d", i)[0]) + byte(j)
	}
	//
	return codeinfo.NewCodeBlob(code, builder.Bytes())
}
