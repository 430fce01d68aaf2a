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
	"errors"
	"fmt"
)

// ErrCorruptFormat is reported whenever encoded code info cannot be decoded.
// This covers a code prefix with the wrong magic number, tables extending
// beyond the given bytes and rows referring to non-existent rows of other
// tables.  Callers should test for it using errors.Is.
var ErrCorruptFormat = errors.New("corrupt code info")

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptFormat, fmt.Sprintf(format, args...))
}
