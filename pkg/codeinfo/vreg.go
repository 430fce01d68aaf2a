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
	"fmt"
	"strings"
)

// Location identifies where the value of a virtual register lives at a given
// point in compiled code.
type Location uint8

const (
	// LocationNone indicates the register is dead (or unknown).
	LocationNone Location = iota
	// LocationSlot indicates the value is held in a stack slot.  Negative slot
	// numbers refer to parameters pushed by the caller.
	LocationSlot
	// LocationRegister indicates the value is held in a general purpose
	// register.
	LocationRegister
	// LocationFpRegister indicates the value is held in a floating point
	// register.
	LocationFpRegister
	// LocationConstant indicates the value is a constant embedded in the
	// constant table.
	LocationConstant
)

// NUM_LOCATIONS is the number of valid locations.
const NUM_LOCATIONS = 5

var locationNames = [NUM_LOCATIONS]string{"none", "slot", "reg", "fp_reg", "const"}

// ParseLocation determines a location from its name.
func ParseLocation(name string) (Location, error) {
	for i, n := range locationNames {
		if strings.EqualFold(n, name) {
			return Location(i), nil
		}
	}
	//
	return LocationNone, fmt.Errorf("unknown location \"%s\"", name)
}

func (p Location) String() string {
	if p < NUM_LOCATIONS {
		return locationNames[p]
	}
	//
	return fmt.Sprintf("location(%d)", uint8(p))
}

// Type identifies the kind of value held in a virtual register.
type Type uint8

const (
	// TypeUndefined is an unknown kind of value.
	TypeUndefined Type = iota
	// TypeObject is an object reference, and hence a root.
	TypeObject
	// TypeInt32 is a 32-bit integer.
	TypeInt32
	// TypeInt64 is a 64-bit integer.
	TypeInt64
	// TypeFloat32 is a single precision float.
	TypeFloat32
	// TypeFloat64 is a double precision float.
	TypeFloat64
	// TypeBool is a boolean.
	TypeBool
	// TypeAny is a tagged value of a dynamically typed language, which may or
	// may not be a reference.
	TypeAny
)

// NUM_TYPES is the number of valid types.
const NUM_TYPES = 8

var typeNames = [NUM_TYPES]string{"undefined", "object", "int32", "int64", "float32", "float64", "bool", "any"}

// ParseType determines a type from its name.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(n, name) {
			return Type(i), nil
		}
	}
	//
	return TypeUndefined, fmt.Errorf("unknown type \"%s\"", name)
}

func (p Type) String() string {
	if p < NUM_TYPES {
		return typeNames[p]
	}
	//
	return fmt.Sprintf("type(%d)", uint8(p))
}

// Bit layout of the info column in the vreg catalogue.
const (
	locationBits    = 3
	typeBits        = 3
	typeShift       = locationBits
	accumulatorBit  = locationBits + typeBits
	constantIdxBits = 16
)

// MAX_CONSTANTS is the largest number of constant halves addressable from a
// constant descriptor.
const MAX_CONSTANTS = 1 << constantIdxBits

// VRegInfo describes the state of a single virtual register (i.e. a local
// variable or the accumulator of the interpreter) at some point in compiled
// code.  For registers and slots, the value is the register or slot number.
// For constants, it holds the indices of the low and high halves of the
// constant in the constant table.
type VRegInfo struct {
	Value         uint32
	Location      Location
	Type          Type
	IsAccumulator bool
}

// NewVRegInfo constructs a new descriptor.
func NewVRegInfo(value uint32, location Location, typ Type, acc bool) VRegInfo {
	return VRegInfo{value, location, typ, acc}
}

// NewSlotVRegInfo constructs a descriptor for a value held in a (possibly
// negative) stack slot.
func NewSlotVRegInfo(slot int32, typ Type, acc bool) VRegInfo {
	return VRegInfo{uint32(slot), LocationSlot, typ, acc}
}

// IsLive determines whether this register holds a value.
func (p VRegInfo) IsLive() bool {
	return p.Location != LocationNone
}

// IsObject determines whether this register holds an object reference.
func (p VRegInfo) IsObject() bool {
	return p.Type == TypeObject
}

// IsConstant determines whether this register holds a constant.
func (p VRegInfo) IsConstant() bool {
	return p.Location == LocationConstant
}

// SignedValue returns the value interpreted as a signed number, as used for
// stack slots.
func (p VRegInfo) SignedValue() int32 {
	return int32(p.Value)
}

// ConstantIndices returns the indices of the low and high halves of a
// constant within the constant table.
func (p VRegInfo) ConstantIndices() (uint, uint) {
	var mask uint32 = MAX_CONSTANTS - 1
	//
	return uint(p.Value & mask), uint(p.Value >> constantIdxBits)
}

func (p VRegInfo) String() string {
	var builder strings.Builder
	//
	switch p.Location {
	case LocationNone:
		return "dead"
	case LocationConstant:
		lo, hi := p.ConstantIndices()
		builder.WriteString(fmt.Sprintf("const:%d/%d", lo, hi))
	case LocationSlot:
		builder.WriteString(fmt.Sprintf("slot:%d", p.SignedValue()))
	default:
		builder.WriteString(fmt.Sprintf("%s:%d", p.Location, p.Value))
	}
	//
	builder.WriteString(fmt.Sprintf("(%s)", p.Type))
	//
	if p.IsAccumulator {
		builder.WriteString("[acc]")
	}
	//
	return builder.String()
}

// Pack the location, type and accumulator flag into a single word.
func (p VRegInfo) packInfo() uint64 {
	var info = uint64(p.Location) | uint64(p.Type)<<typeShift
	//
	if p.IsAccumulator {
		info |= 1 << accumulatorBit
	}
	//
	return info
}

func unpackVRegInfo(info uint64, value uint64) VRegInfo {
	return VRegInfo{
		Value:         uint32(value),
		Location:      Location(info & ((1 << locationBits) - 1)),
		Type:          Type((info >> typeShift) & ((1 << typeBits) - 1)),
		IsAccumulator: (info>>accumulatorBit)&1 != 0,
	}
}
