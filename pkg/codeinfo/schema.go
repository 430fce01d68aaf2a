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

// TableId identifies one of the tables making up the code info.  The order
// here determines the order in which tables are encoded, and the bit which
// represents each table in the table mask of the header.
type TableId uint

const (
	// TABLE_STACK_MAP holds one row per stack map.
	TABLE_STACK_MAP TableId = iota
	// TABLE_INLINE_INFO holds one row per inlined frame of each stack map.
	TABLE_INLINE_INFO
	// TABLE_REGISTER_MASK holds the (deduplicated) register root masks.
	TABLE_REGISTER_MASK
	// TABLE_STACK_MASK holds the (deduplicated) stack root masks.
	TABLE_STACK_MASK
	// TABLE_METHOD_ID holds the (deduplicated) ids of inlined methods.
	TABLE_METHOD_ID
	// TABLE_VREG_MASK holds the (deduplicated) masks of virtual registers
	// changed at each stack map.
	TABLE_VREG_MASK
	// TABLE_VREG_MAP holds one row per changed virtual register at each stack
	// map.
	TABLE_VREG_MAP
	// TABLE_VREG_CATALOGUE holds the (deduplicated) virtual register
	// descriptors.
	TABLE_VREG_CATALOGUE
	// TABLE_IMPLICIT_NULL_CHECK holds one row per implicit null check.
	TABLE_IMPLICIT_NULL_CHECK
	// TABLE_CONSTANT holds the (deduplicated) 32-bit halves of constants.
	TABLE_CONSTANT
)

// NUM_TABLES is the number of tables making up the code info.
const NUM_TABLES = 10

var tableNames = [NUM_TABLES]string{
	"StackMap", "InlineInfo", "RegisterMask", "StackMask", "MethodId",
	"VRegisterMask", "VRegisterMap", "VRegisterCatalogue", "ImplicitNullCheck", "ConstantSlot",
}

func (p TableId) String() string {
	return tableNames[p]
}

// ============================================================================
// Stack Maps
// ============================================================================

// StackMapLayout describes the rows of the stack map table.
type StackMapLayout struct{}

// Name implementation for Layout interface.
func (StackMapLayout) Name() string { return TABLE_STACK_MAP.String() }

// Columns implementation for Layout interface.
func (StackMapLayout) Columns() []Column { return stackMapColumns }

var stackMapColumns = []Column{
	{"Properties", false},
	{"NativePc", false},
	{"BytecodePc", false},
	{"RootsRegMaskIndex", true},
	{"RootsStackMaskIndex", true},
	{"InlineInfoIndex", true},
	{"VRegMaskIndex", true},
	{"VRegMapIndex", true},
}

const (
	stackMapProperties uint = iota
	stackMapNativePc
	stackMapBytecodePc
	stackMapRootsRegMaskIndex
	stackMapRootsStackMaskIndex
	stackMapInlineInfoIndex
	stackMapVRegMaskIndex
	stackMapVRegMapIndex
)

// Bits of the stack map properties column
const (
	stackMapIsOsr          = 1 << 0
	stackMapHasRegisterMap = 1 << 1
)

// ============================================================================
// Inline Infos
// ============================================================================

// InlineInfoLayout describes the rows of the inline info table.  The method of
// an inlined frame is either given directly as a pointer (when compiling just
// in time) or indirectly via the method id table (when compiling ahead of
// time).
type InlineInfoLayout struct{}

// Name implementation for Layout interface.
func (InlineInfoLayout) Name() string { return TABLE_INLINE_INFO.String() }

// Columns implementation for Layout interface.
func (InlineInfoLayout) Columns() []Column { return inlineInfoColumns }

var inlineInfoColumns = []Column{
	{"IsLast", false},
	{"BytecodePc", false},
	{"MethodIdIndex", true},
	{"Method", true},
	{"VRegsCount", false},
}

const (
	inlineInfoIsLast uint = iota
	inlineInfoBytecodePc
	inlineInfoMethodIdIndex
	inlineInfoMethod
	inlineInfoVRegsCount
)

// ============================================================================
// Single column tables
// ============================================================================

// RegisterMaskLayout describes the rows of the register mask table.
type RegisterMaskLayout struct{}

// Name implementation for Layout interface.
func (RegisterMaskLayout) Name() string { return TABLE_REGISTER_MASK.String() }

// Columns implementation for Layout interface.
func (RegisterMaskLayout) Columns() []Column { return maskColumns }

// StackMaskLayout describes the rows of the stack mask (bitmap) table.
type StackMaskLayout struct{}

// Name implementation for Layout interface.
func (StackMaskLayout) Name() string { return TABLE_STACK_MASK.String() }

// Columns implementation for Layout interface.
func (StackMaskLayout) Columns() []Column { return maskColumns }

// VRegMaskLayout describes the rows of the vreg mask (bitmap) table.
type VRegMaskLayout struct{}

// Name implementation for Layout interface.
func (VRegMaskLayout) Name() string { return TABLE_VREG_MASK.String() }

// Columns implementation for Layout interface.
func (VRegMaskLayout) Columns() []Column { return maskColumns }

var maskColumns = []Column{{"Mask", false}}

// MethodIdLayout describes the rows of the method id table.
type MethodIdLayout struct{}

// Name implementation for Layout interface.
func (MethodIdLayout) Name() string { return TABLE_METHOD_ID.String() }

// Columns implementation for Layout interface.
func (MethodIdLayout) Columns() []Column { return methodIdColumns }

var methodIdColumns = []Column{{"Id", false}}

// VRegMapLayout describes the rows of the vreg map table.  An absent
// catalogue index indicates the register is dead.
type VRegMapLayout struct{}

// Name implementation for Layout interface.
func (VRegMapLayout) Name() string { return TABLE_VREG_MAP.String() }

// Columns implementation for Layout interface.
func (VRegMapLayout) Columns() []Column { return vregMapColumns }

var vregMapColumns = []Column{{"CatalogueIndex", true}}

// ConstantSlotLayout describes the rows of the constant table.
type ConstantSlotLayout struct{}

// Name implementation for Layout interface.
func (ConstantSlotLayout) Name() string { return TABLE_CONSTANT.String() }

// Columns implementation for Layout interface.
func (ConstantSlotLayout) Columns() []Column { return constantColumns }

var constantColumns = []Column{{"Value", false}}

// ============================================================================
// Multi column tables
// ============================================================================

// VRegCatalogueLayout describes the rows of the vreg catalogue.
type VRegCatalogueLayout struct{}

// Name implementation for Layout interface.
func (VRegCatalogueLayout) Name() string { return TABLE_VREG_CATALOGUE.String() }

// Columns implementation for Layout interface.
func (VRegCatalogueLayout) Columns() []Column { return vregCatalogueColumns }

var vregCatalogueColumns = []Column{{"Info", false}, {"Value", false}}

const (
	vregCatalogueInfo uint = iota
	vregCatalogueValue
)

// ImplicitNullCheckLayout describes the rows of the implicit null check table.
// Each row records the native pc following a memory access which doubles as
// a null check, and the offset back to the start of that access.
type ImplicitNullCheckLayout struct{}

// Name implementation for Layout interface.
func (ImplicitNullCheckLayout) Name() string { return TABLE_IMPLICIT_NULL_CHECK.String() }

// Columns implementation for Layout interface.
func (ImplicitNullCheckLayout) Columns() []Column { return implicitNullCheckColumns }

var implicitNullCheckColumns = []Column{{"InstNativePc", false}, {"Offset", false}}

const (
	implicitNullCheckInstNativePc uint = iota
	implicitNullCheckOffset
)
