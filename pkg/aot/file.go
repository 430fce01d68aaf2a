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
	"fmt"

	"github.com/consensys/go-codeinfo/pkg/codeinfo"
	"github.com/consensys/go-codeinfo/pkg/mmap"
	pkgErrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// File provides read-only access to the code blobs of an AOT file.  Blobs are
// not copied, hence remain valid only whilst the file is open.
type File struct {
	header  Header
	data    []byte
	blobs   []byte
	entries []Entry
	symbols map[string]uint
	// Underlying mapping (if opened from disk)
	mapping *mmap.File
}

// Parse an AOT file held in a given array of bytes.
func Parse(data []byte) (*File, error) {
	var file = File{data: data, symbols: make(map[string]uint)}
	//
	if err := file.header.UnmarshalBinary(data); err != nil {
		return nil, err
	} else if !file.header.IsCompatible() {
		return nil, fmt.Errorf("%w: incompatible header (%q, version %d.%d)", ErrMalformed,
			file.header.Identifier[:], file.header.MajorVersion, file.header.MinorVersion)
	}
	//
	indexEnd := uint64(HEADER_SIZE) + uint64(file.header.IndexLength)
	//
	if indexEnd > uint64(len(data)) {
		return nil, fmt.Errorf("%w: index exceeds file", ErrMalformed)
	}
	//
	index, err := UnmarshalIndex(data[HEADER_SIZE:indexEnd])
	if err != nil {
		return nil, err
	}
	//
	if base := alignUp(indexEnd, BLOB_ALIGNMENT); base <= uint64(len(data)) {
		file.blobs = data[base:]
	}
	//
	for i, entry := range index.Entries {
		if _, ok := file.symbols[entry.Symbol]; ok {
			return nil, fmt.Errorf("%w: duplicate symbol \"%s\"", ErrMalformed, entry.Symbol)
		} else if entry.Offset%BLOB_ALIGNMENT != 0 || entry.Offset+entry.Size < entry.Offset ||
			entry.Offset+entry.Size > uint64(len(file.blobs)) {
			return nil, fmt.Errorf("%w: symbol \"%s\" out-of-bounds", ErrMalformed, entry.Symbol)
		}
		//
		file.symbols[entry.Symbol] = uint(i)
	}
	//
	file.entries = index.Entries
	//
	return &file, nil
}

// Open an AOT file from disk.  The file is mapped into memory, rather than
// read, and must be closed once no longer required.
func Open(path string) (*File, error) {
	mapping, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	//
	file, err := Parse(mapping.Bytes())
	if err != nil {
		// Don't leak mapping
		mapping.Close() //nolint:errcheck
		//
		return nil, pkgErrors.Wrapf(err, "file %#v", path)
	}
	//
	file.mapping = mapping
	//
	log.Debugf("opened aot file %s with %d symbols", path, len(file.entries))
	//
	return file, nil
}

// Header returns the header of this file.
func (p *File) Header() Header {
	return p.header
}

// Symbols returns the symbols held in this file, in the order they appear.
func (p *File) Symbols() []string {
	var symbols = make([]string, len(p.entries))
	//
	for i, entry := range p.entries {
		symbols[i] = entry.Symbol
	}
	//
	return symbols
}

// Entries returns the index entries of this file.
func (p *File) Entries() []Entry {
	return p.entries
}

// Lookup the code blob for a given symbol.
func (p *File) Lookup(symbol string) ([]byte, bool) {
	index, ok := p.symbols[symbol]
	//
	if !ok {
		return nil, false
	}
	//
	entry := p.entries[index]
	//
	return p.blobs[entry.Offset : entry.Offset+entry.Size], true
}

// CodeInfo decodes the code info for a given symbol.
func (p *File) CodeInfo(symbol string) (*codeinfo.CodeInfo, error) {
	blob, ok := p.Lookup(symbol)
	//
	if !ok {
		return nil, fmt.Errorf("unknown symbol \"%s\"", symbol)
	}
	//
	info, err := codeinfo.DecodeCode(blob)
	//
	return info, pkgErrors.Wrapf(err, "symbol %#v", symbol)
}

// Close this file, releasing the underlying mapping (if applicable).  Blobs
// obtained from this file are no longer valid.
func (p *File) Close() error {
	if p.mapping == nil {
		return nil
	}
	//
	mapping := p.mapping
	p.mapping = nil
	//
	return mapping.Close()
}
