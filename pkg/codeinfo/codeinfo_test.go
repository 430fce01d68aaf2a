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
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

func Test_DecodeCode_00(t *testing.T) {
	var (
		rng     = rand.New(rand.NewSource(8))
		builder = NewBuilder(ArchX86_64)
		method  = randomMethod(rng, ArchX86_64, 10, 1)
		code    = []byte{0x55, 0x48, 0x89, 0xe5, 0xc3}
	)
	//
	t.Parallel()
	//
	method.build(builder)
	//
	info, err := DecodeCode(NewCodeBlob(code, builder.Bytes()))
	if err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(info.Code(), code) || info.CodeSize() != uint(len(code)) {
		t.Errorf("expected code %v, received %v", code, info.Code())
	}
	//
	checkMethod(t, method, info)
}

// Invalid magic
func Test_DecodeCode_Corrupt_00(t *testing.T) {
	var blob = validBlob()
	//
	blob[0] ^= 1
	checkCorruptCode(t, blob)
}

// Code info beyond blob
func Test_DecodeCode_Corrupt_01(t *testing.T) {
	var blob = validBlob()
	//
	binary.LittleEndian.PutUint32(blob[12:], uint32(len(blob)))
	checkCorruptCode(t, blob)
}

// Code overlaps code info
func Test_DecodeCode_Corrupt_02(t *testing.T) {
	var blob = validBlob()
	//
	binary.LittleEndian.PutUint32(blob[4:], uint32(len(blob)))
	checkCorruptCode(t, blob)
}

// Truncated prefix
func Test_DecodeCode_Corrupt_03(t *testing.T) {
	checkCorruptCode(t, validBlob()[:CODE_PREFIX_SIZE-1])
}

// Truncated code info
func Test_Decode_Corrupt_00(t *testing.T) {
	var (
		rng     = rand.New(rand.NewSource(9))
		builder = NewBuilder(ArchARM64)
		method  = randomMethod(rng, ArchARM64, 50, 2)
	)
	//
	method.build(builder)
	//
	data := builder.Bytes()
	//
	for _, n := range []int{0, 1, 2, len(data) / 2} {
		checkCorrupt(t, data[:n])
	}
}

// Stack map refers to missing inline info.
func Test_Decode_Corrupt_01(t *testing.T) {
	var (
		writer    = bit.NewWriter(nil, 0)
		header    = Header{TableMask: 1 << TABLE_STACK_MAP}
		stackMaps = NewTableBuilder[StackMapLayout]()
	)
	//
	stackMaps.Add(0, 0, 0, NO_VALUE, NO_VALUE, 0, NO_VALUE, NO_VALUE)
	header.Encode(writer)
	stackMaps.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// Present table is empty.
func Test_Decode_Corrupt_02(t *testing.T) {
	var (
		writer      = bit.NewWriter(nil, 0)
		header      = Header{TableMask: 1<<TABLE_STACK_MAP | 1<<TABLE_INLINE_INFO}
		stackMaps   = NewTableBuilder[StackMapLayout]()
		inlineInfos = NewTableBuilder[InlineInfoLayout]()
	)
	//
	stackMaps.Add(0, 0, 0, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE)
	header.Encode(writer)
	stackMaps.Encode(writer)
	inlineInfos.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// Zero-width rows exceeding the size of the input.
func Test_Decode_Corrupt_07(t *testing.T) {
	var (
		writer = bit.NewWriter(nil, 0)
		header = Header{TableMask: 1 << TABLE_STACK_MAP}
	)
	//
	header.Encode(writer)
	writer.WriteVarint(1 << 24)
	//
	for range stackMapColumns {
		writer.WriteVarint(0)
	}
	//
	writer.AlignTo(CODE_INFO_ALIGNMENT)
	checkCorrupt(t, writer.Bytes())
}

// Zero-width bitmaps exceeding the size of the input.
func Test_Decode_Corrupt_08(t *testing.T) {
	var (
		writer = bit.NewWriter(nil, 0)
		header = Header{TableMask: 1 << TABLE_VREG_MASK}
	)
	//
	header.Encode(writer)
	writer.WriteVarint(0xffffffff)
	writer.WriteVarint(0)
	//
	checkCorrupt(t, writer.Bytes())
}

// Decreasing native pc.
func Test_Decode_Corrupt_03(t *testing.T) {
	var (
		writer    = bit.NewWriter(nil, 0)
		header    = Header{TableMask: 1 << TABLE_STACK_MAP}
		stackMaps = NewTableBuilder[StackMapLayout]()
	)
	//
	stackMaps.Add(0, 4, 0, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE)
	stackMaps.Add(0, 2, 0, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE, NO_VALUE)
	header.Encode(writer)
	stackMaps.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// Unterminated inline chain.
func Test_Decode_Corrupt_04(t *testing.T) {
	var (
		writer      = bit.NewWriter(nil, 0)
		header      = Header{TableMask: 1<<TABLE_STACK_MAP | 1<<TABLE_INLINE_INFO}
		stackMaps   = NewTableBuilder[StackMapLayout]()
		inlineInfos = NewTableBuilder[InlineInfoLayout]()
	)
	//
	stackMaps.Add(0, 0, 0, NO_VALUE, NO_VALUE, 0, NO_VALUE, NO_VALUE)
	inlineInfos.Add(0, 0, NO_VALUE, 0x1000, 0)
	header.Encode(writer)
	stackMaps.Encode(writer)
	inlineInfos.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// Catalogue entry refers to missing constant.
func Test_Decode_Corrupt_05(t *testing.T) {
	var (
		writer    = bit.NewWriter(nil, 0)
		header    = Header{TableMask: 1<<TABLE_VREG_CATALOGUE | 1<<TABLE_CONSTANT}
		catalogue = NewTableBuilder[VRegCatalogueLayout]()
		constants = NewTableBuilder[ConstantSlotLayout]()
		vreg      = NewVRegInfo(1<<16, LocationConstant, TypeInt64, false)
	)
	//
	catalogue.Add(vreg.packInfo(), uint64(vreg.Value))
	constants.Add(0)
	header.Encode(writer)
	catalogue.Encode(writer)
	constants.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// Vreg mask without vreg map.
func Test_Decode_Corrupt_06(t *testing.T) {
	var (
		writer    = bit.NewWriter(nil, 0)
		header    = Header{TableMask: 1<<TABLE_STACK_MAP | 1<<TABLE_VREG_MASK}
		stackMaps = NewTableBuilder[StackMapLayout]()
		masks     = NewBitmapTableBuilder[VRegMaskLayout]()
	)
	//
	stackMaps.Add(2, 0, 0, NO_VALUE, NO_VALUE, NO_VALUE, 0, NO_VALUE)
	masks.Add(bitset.New(2).Set(0).Set(1))
	header.Encode(writer)
	stackMaps.Encode(writer)
	masks.Encode(writer)
	//
	checkCorrupt(t, writer.Bytes())
}

// ===================================================================
// Test Helpers
// ===================================================================

func validBlob() []byte {
	var builder = NewBuilder(ArchNone)
	//
	builder.BeginMethod(2, 1)
	builder.BeginStackMap(0, 4, nil, 1, true, false)
	builder.AddConstant(3, TypeInt32, false)
	builder.EndStackMap()
	builder.EndMethod()
	//
	return NewCodeBlob([]byte{1, 2, 3, 4, 5, 6, 7, 8}, builder.Bytes())
}

func checkCorruptCode(t *testing.T, blob []byte) {
	t.Helper()
	//
	if _, err := DecodeCode(blob); !errors.Is(err, ErrCorruptFormat) {
		t.Errorf("expected corrupt format, received %v", err)
	}
}

func checkCorrupt(t *testing.T, data []byte) {
	t.Helper()
	//
	if _, err := Decode(data); !errors.Is(err, ErrCorruptFormat) {
		t.Errorf("expected corrupt format, received %v", err)
	}
}
