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
	"encoding/binary"
	"errors"
)

// IDENTIFIER identifies an AOT file.
var IDENTIFIER [8]byte = [8]byte{'G', 'O', 'C', 'O', 'D', 'E', 'A', 'O'}

// MAJOR_VERSION of AOT files supported by this package.  Files with a different
// major version are rejected.
const MAJOR_VERSION uint16 = 1

// MINOR_VERSION of AOT files supported by this package.  Files with a newer
// minor version are rejected.
const MINOR_VERSION uint16 = 0

// HEADER_SIZE is the number of bytes in the (fixed) header.
const HEADER_SIZE = 16

// BLOB_ALIGNMENT is the alignment (in bytes) of every code blob, and of the
// section holding them.
const BLOB_ALIGNMENT = 16

// ErrMalformed is reported when the contents of an AOT file cannot be parsed.
var ErrMalformed = errors.New("malformed aot file")

// Header provides a structured header for the AOT file format.  This is
// followed by the (encoded) index of symbols and, finally, the code blobs
// themselves.
type Header struct {
	Identifier   [8]byte
	MajorVersion uint16
	MinorVersion uint16
	IndexLength  uint32
}

// MarshalBinary converts the AOT file header into a sequence of bytes.
func (p *Header) MarshalBinary() ([]byte, error) {
	var (
		buffer      bytes.Buffer
		majorBytes  [2]byte
		minorBytes  [2]byte
		indexLength [4]byte
	)
	// Marshall version numbers
	binary.BigEndian.PutUint16(majorBytes[:], p.MajorVersion)
	binary.BigEndian.PutUint16(minorBytes[:], p.MinorVersion)
	binary.BigEndian.PutUint32(indexLength[:], p.IndexLength)
	// Write identifier
	buffer.Write(p.Identifier[:])
	// Write major version
	buffer.Write(majorBytes[:])
	// Write minor version
	buffer.Write(minorBytes[:])
	// Write index length
	buffer.Write(indexLength[:])
	// Done
	return buffer.Bytes(), nil
}

// UnmarshalBinary initialises this AOT file header from a given set of data
// bytes. This should match exactly the encoding above.
func (p *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HEADER_SIZE {
		return ErrMalformed
	}
	// Read identifier
	copy(p.Identifier[:], data[0:8])
	// Read versions
	p.MajorVersion = binary.BigEndian.Uint16(data[8:10])
	p.MinorVersion = binary.BigEndian.Uint16(data[10:12])
	// Read index length
	p.IndexLength = binary.BigEndian.Uint32(data[12:16])
	// Done
	return nil
}

// IsCompatible determines whether a given AOT file is compatible with this
// version of the package.
func (p *Header) IsCompatible() bool {
	return p.Identifier == IDENTIFIER &&
		p.MajorVersion == MAJOR_VERSION &&
		p.MinorVersion <= MINOR_VERSION
}
