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
	"encoding/binary"
	"errors"
)

// CODE_PREFIX_MAGIC identifies the prefix of a compiled code blob.
const CODE_PREFIX_MAGIC uint32 = 0xaccadeca

// CODE_PREFIX_SIZE is the size (in bytes) of the prefix of a compiled code
// blob.  The machine code begins immediately after the prefix.
const CODE_PREFIX_SIZE = 16

// CODE_INFO_ALIGNMENT is the alignment (in bytes) of encoded code info, both
// for its length and its position within a code blob.
const CODE_INFO_ALIGNMENT = 8

// CodePrefix is stored immediately before the machine code of a compiled
// method, and locates the code info for that method.  All offsets are relative
// to the start of the prefix.
type CodePrefix struct {
	Magic          uint32
	CodeSize       uint32
	CodeInfoOffset uint32
	CodeInfoSize   uint32
}

// MarshalBinary converts this prefix into a sequence of (little endian) bytes.
func (p *CodePrefix) MarshalBinary() ([]byte, error) {
	var bytes = make([]byte, CODE_PREFIX_SIZE)
	//
	binary.LittleEndian.PutUint32(bytes[0:], p.Magic)
	binary.LittleEndian.PutUint32(bytes[4:], p.CodeSize)
	binary.LittleEndian.PutUint32(bytes[8:], p.CodeInfoOffset)
	binary.LittleEndian.PutUint32(bytes[12:], p.CodeInfoSize)
	//
	return bytes, nil
}

// UnmarshalBinary initialises this prefix from a given set of bytes.  This
// should match exactly the encoding above.  Observe that the magic number is
// not checked here.
func (p *CodePrefix) UnmarshalBinary(bytes []byte) error {
	if len(bytes) < CODE_PREFIX_SIZE {
		return errors.New("truncated code prefix")
	}
	//
	p.Magic = binary.LittleEndian.Uint32(bytes[0:])
	p.CodeSize = binary.LittleEndian.Uint32(bytes[4:])
	p.CodeInfoOffset = binary.LittleEndian.Uint32(bytes[8:])
	p.CodeInfoSize = binary.LittleEndian.Uint32(bytes[12:])
	//
	return nil
}

// NewCodeBlob lays out a compiled method as a prefix, followed by its machine
// code and, finally, its code info (aligned appropriately).
func NewCodeBlob(code []byte, info []byte) []byte {
	var (
		infoOffset = alignUp(CODE_PREFIX_SIZE+uint(len(code)), CODE_INFO_ALIGNMENT)
		prefix     = CodePrefix{CODE_PREFIX_MAGIC, uint32(len(code)), uint32(infoOffset), uint32(len(info))}
		blob       = make([]byte, infoOffset+uint(len(info)))
	)
	// Cannot fail
	bytes, _ := prefix.MarshalBinary()
	//
	copy(blob, bytes)
	copy(blob[CODE_PREFIX_SIZE:], code)
	copy(blob[infoOffset:], info)
	//
	return blob
}

func alignUp(n uint, alignment uint) uint {
	return (n + alignment - 1) / alignment * alignment
}
