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

	"github.com/fxamacker/cbor/v2"
)

// Entry locates the code blob of a given symbol.  The offset is relative to
// the start of the blob section.
type Entry struct {
	Symbol string `cbor:"1,keyasint"`
	Offset uint64 `cbor:"2,keyasint"`
	Size   uint64 `cbor:"3,keyasint"`
}

// Index of all symbols, in order of their offsets.
type Index struct {
	Entries []Entry `cbor:"1,keyasint"`
}

// Canonical encoding ensures identical containers produce identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("aot: failed to create CBOR enc mode: %v", err))
	}

	cborEncMode = em
}

// MarshalIndex serializes an index to CBOR bytes.
func MarshalIndex(index *Index) ([]byte, error) {
	return cborEncMode.Marshal(index)
}

// UnmarshalIndex deserializes an index from CBOR bytes.
func UnmarshalIndex(data []byte) (*Index, error) {
	var index Index
	if err := cbor.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: index: %v", ErrMalformed, err)
	}

	return &index, nil
}
