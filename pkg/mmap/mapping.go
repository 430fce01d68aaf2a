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
package mmap

import (
	"syscall"

	pkgErrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mapping represents a read-only memory mapping of some file.  The mapped bytes
// remain valid until the mapping is closed.
type Mapping struct {
	data []byte
}

// NewMapping creates a read-only mapping of the first n bytes of a file
// descriptor referring either to a regular file or UNIX device node.
func NewMapping(fileDescriptor int, sizeBytes int) (*Mapping, error) {
	// Cannot map nothing
	if sizeBytes == 0 {
		return &Mapping{}, nil
	}
	//
	data, err := unix.Mmap(fileDescriptor, 0, sizeBytes, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "failed to memory map file")
	}

	return &Mapping{data}, nil
}

// Bytes returns the mapped bytes directly.  These must not be modified, and
// must not be accessed once the mapping is closed.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the number of mapped bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Close releases the mapping.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}

	data := m.data
	m.data = nil

	return pkgErrors.Wrap(unix.Munmap(data), "failed to unmap file")
}
