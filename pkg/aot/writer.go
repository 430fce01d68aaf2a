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
	"io"

	pkgErrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Writer accumulates compiled code blobs for writing into an AOT file.
type Writer struct {
	symbols map[string]uint
	entries []Entry
	blobs   [][]byte
}

// NewWriter constructs an empty AOT file writer.
func NewWriter() *Writer {
	return &Writer{symbols: make(map[string]uint)}
}

// Len returns the number of symbols added so far.
func (w *Writer) Len() uint {
	return uint(len(w.entries))
}

// Add a code blob for a given symbol.  Symbols must be unique.
func (w *Writer) Add(symbol string, blob []byte) error {
	if _, ok := w.symbols[symbol]; ok {
		return fmt.Errorf("duplicate symbol \"%s\"", symbol)
	}
	//
	var offset uint64
	// Determine offset of this blob
	if n := len(w.entries); n > 0 {
		last := w.entries[n-1]
		offset = alignUp(last.Offset+last.Size, BLOB_ALIGNMENT)
	}
	//
	w.symbols[symbol] = w.Len()
	w.entries = append(w.entries, Entry{symbol, offset, uint64(len(blob))})
	w.blobs = append(w.blobs, blob)
	//
	return nil
}

// WriteTo writes the complete AOT file into a given writer.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	index, err := MarshalIndex(&Index{w.entries})
	if err != nil {
		return 0, pkgErrors.Wrap(err, "failed to encode index")
	}
	//
	var (
		header  = Header{IDENTIFIER, MAJOR_VERSION, MINOR_VERSION, uint32(len(index))}
		written int64
	)
	//
	headerBytes, _ := header.MarshalBinary()
	// Write header and index
	for _, bytes := range [][]byte{headerBytes, index} {
		if err := write(out, bytes, &written); err != nil {
			return written, err
		}
	}
	// Write blobs
	base := alignUp(uint64(written), BLOB_ALIGNMENT)
	//
	for i, entry := range w.entries {
		padding := make([]byte, base+entry.Offset-uint64(written))
		//
		if err := write(out, padding, &written); err != nil {
			return written, err
		} else if err := write(out, w.blobs[i], &written); err != nil {
			return written, err
		}
	}
	//
	log.Debugf("wrote %d symbols (%d bytes) into aot file", len(w.entries), written)
	//
	return written, nil
}

func write(out io.Writer, bytes []byte, written *int64) error {
	n, err := out.Write(bytes)
	*written += int64(n)
	//
	return pkgErrors.Wrap(err, "failed writing aot file")
}

func alignUp(n uint64, alignment uint64) uint64 {
	return (n + alignment - 1) / alignment * alignment
}
