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
package bit

// VARINT_BITS determines the number of bits in the prefix of a variable length
// integer.  Values up to VARINT_MAX are stored directly in the prefix.  Larger
// values are stored in the following (VARINT_MAX - prefix) bytes, such that
// the prefix holds VARINT_MAX plus the number of bytes used.  For example, 9 is
// encoded in 4 bits as 0b1001, whilst 300 is encoded as 0b1101 (i.e. 11 + 2)
// followed by 16 bits holding 300.
const VARINT_BITS = 4

// VARINT_MAX is the largest value which is stored directly in the prefix of a
// variable length integer.
const VARINT_MAX = 11

// VARINT_MAX_BYTES is the largest number of bytes which can follow a prefix.
const VARINT_MAX_BYTES = 4
