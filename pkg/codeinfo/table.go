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
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-codeinfo/pkg/util/collection/bit"
)

// NO_VALUE represents an absent entry within a nullable column.  For example,
// a stack map without any inlined frames holds NO_VALUE in its inline info
// index column.
const NO_VALUE = math.MaxUint64

// MAX_COLUMNS is the largest number of columns in any table layout.
const MAX_COLUMNS = 8

// MAX_COLUMN_WIDTH is the largest permitted bitwidth of any column.
const MAX_COLUMN_WIDTH = 64

// Column describes a single column within a table layout.  A nullable column
// may hold NO_VALUE, in which case every value is stored offset by one such
// that zero identifies an absent entry.
type Column struct {
	Name     string
	Nullable bool
}

// Layout describes the fixed set of columns making up the rows of a table.
// Every table schema is represented by its own (empty) layout type, such that
// tables of different schemas cannot be confused with each other.
type Layout interface {
	// Name returns a human-readable name for this layout.
	Name() string
	// Columns returns the columns of this layout, in encoding order.
	Columns() []Column
}

type rowKey [MAX_COLUMNS]uint64

// TableBuilder accumulates the rows of a table prior to encoding.  Since the
// width of each column is determined by the largest value it holds, the full
// set of rows must be known before anything is written.
type TableBuilder[L Layout] struct {
	columns []Column
	// Rows stored in row-major order.
	rows []uint64
	// Index of previously added rows, used for deduplication.
	index map[rowKey]uint
}

// NewTableBuilder constructs an empty table builder for a given layout.
func NewTableBuilder[L Layout]() *TableBuilder[L] {
	var layout L
	//
	return &TableBuilder[L]{layout.Columns(), nil, make(map[rowKey]uint)}
}

// Len returns the number of rows added so far.
func (p *TableBuilder[L]) Len() uint {
	return uint(len(p.rows) / len(p.columns))
}

// Get returns the value of a given column in a given row.
func (p *TableBuilder[L]) Get(row uint, col uint) uint64 {
	return p.rows[row*uint(len(p.columns))+col]
}

// Add appends a new row onto this table, returning its index.
func (p *TableBuilder[L]) Add(row ...uint64) uint {
	var (
		index = p.Len()
		key   = p.key(row)
	)
	//
	p.rows = append(p.rows, row...)
	// Record first occurrence only, so deduplication always refers back to the
	// earliest matching row.
	if _, ok := p.index[key]; !ok {
		p.index[key] = index
	}
	//
	return index
}

// AddDedup appends a new row onto this table, unless an identical row already
// exists.  In either case, the index of the matching row is returned.
func (p *TableBuilder[L]) AddDedup(row ...uint64) uint {
	if index, ok := p.index[p.key(row)]; ok {
		return index
	}
	//
	return p.Add(row...)
}

// Widths determines the bitwidth of each column, which is the minimum width
// required to hold the largest stored value of that column.
func (p *TableBuilder[L]) Widths() []uint {
	var (
		ncols  = uint(len(p.columns))
		widths = make([]uint, ncols)
	)
	//
	for row := range p.Len() {
		for col := range ncols {
			stored := p.columns[col].store(p.Get(row, col))
			widths[col] = max(widths[col], bit.Width(stored))
		}
	}
	//
	return widths
}

// Encode writes this table to a given bit stream.  The encoding consists of
// the row count, followed by the width of each column (if any rows exist) and,
// finally, the rows themselves.
func (p *TableBuilder[L]) Encode(w *bit.Writer) {
	var nrows = p.Len()
	//
	w.WriteVarint(uint32(nrows))
	//
	if nrows == 0 {
		return
	}
	//
	widths := p.Widths()
	//
	for _, width := range widths {
		w.WriteVarint(uint32(width))
	}
	//
	for row := range nrows {
		for col, width := range widths {
			w.Write(p.columns[col].store(p.Get(row, uint(col))), width)
		}
	}
}

func (p *TableBuilder[L]) key(row []uint64) rowKey {
	var (
		key rowKey
		l   L
	)
	//
	if len(row) != len(p.columns) {
		panic(fmt.Sprintf("table %s expects %d columns, received %d", l.Name(), len(p.columns), len(row)))
	}
	//
	for i, v := range row {
		if v == NO_VALUE && !p.columns[i].Nullable {
			panic(fmt.Sprintf("column %s.%s is not nullable", l.Name(), p.columns[i].Name))
		}
		//
		key[i] = v
	}
	//
	return key
}

// Table provides a read-only view of an encoded table.  Fields are extracted
// on demand from the underlying bytes, which are never copied.
type Table[L Layout] struct {
	columns  []Column
	rows     uint
	widths   [MAX_COLUMNS]uint
	offsets  [MAX_COLUMNS]uint
	rowWidth uint
	data     bit.Region
}

// Len returns the number of rows in this table.
func (p *Table[L]) Len() uint {
	return p.rows
}

// Width returns the bitwidth of a given column.
func (p *Table[L]) Width(col uint) uint {
	return p.widths[col]
}

// BitSize returns the number of bits occupied by the rows of this table.
func (p *Table[L]) BitSize() uint {
	return p.data.Len()
}

// Get returns the value of a given column in a given row, or NO_VALUE for an
// absent entry of a nullable column.
func (p *Table[L]) Get(row uint, col uint) uint64 {
	var stored = p.data.Load(row*p.rowWidth+p.offsets[col], p.widths[col])
	//
	return p.columns[col].load(stored)
}

// Decode initialises this table from a given bit stream, as written by
// TableBuilder.Encode.
func (p *Table[L]) Decode(r *bit.Reader) error {
	var layout L
	//
	p.columns = layout.Columns()
	//
	nrows, err := r.ReadVarint()
	if err != nil {
		return corruptf("table %s: %v", layout.Name(), err)
	}
	//
	p.rows = uint(nrows)
	p.rowWidth = 0
	//
	if err := checkRowCount(layout, p.rows, r); err != nil {
		return err
	}
	//
	if nrows == 0 {
		p.data = bit.Region{}
		return nil
	}
	//
	for col := range p.columns {
		width, err := r.ReadVarint()
		//
		if err != nil {
			return corruptf("table %s: %v", layout.Name(), err)
		} else if width > MAX_COLUMN_WIDTH {
			return corruptf("table %s: column %s has width %d", layout.Name(), p.columns[col].Name, width)
		}
		//
		p.widths[col] = uint(width)
		p.offsets[col] = p.rowWidth
		p.rowWidth += uint(width)
	}
	// Check rows actually fit in what remains
	if uint64(p.rows)*uint64(p.rowWidth) > uint64(r.Remaining()) {
		return corruptf("table %s: %d rows exceed remaining %d bits", layout.Name(), p.rows, r.Remaining())
	}
	//
	p.data, err = r.Skip(p.rows * p.rowWidth)
	//
	return err
}

// BitmapTableBuilder accumulates variable-length bitmaps prior to encoding.
// Every row is padded to the length of the longest bitmap.  Identical bitmaps
// are always shared.
type BitmapTableBuilder[L Layout] struct {
	rows  []*bitset.BitSet
	lens  []uint
	index map[string]uint
}

// NewBitmapTableBuilder constructs an empty bitmap table builder.
func NewBitmapTableBuilder[L Layout]() *BitmapTableBuilder[L] {
	return &BitmapTableBuilder[L]{nil, nil, make(map[string]uint)}
}

// Len returns the number of rows added so far.
func (p *BitmapTableBuilder[L]) Len() uint {
	return uint(len(p.rows))
}

// Get returns the bitmap at a given row.
func (p *BitmapTableBuilder[L]) Get(row uint) *bitset.BitSet {
	return p.rows[row]
}

// Add appends a bitmap onto this table, unless an identical bitmap already
// exists.  In either case, the index of the matching row is returned.  The
// bitmap is copied.
func (p *BitmapTableBuilder[L]) Add(bits *bitset.BitSet) uint {
	var (
		nbits = bitmapLength(bits)
		w     = bit.NewWriter(nil, 0)
	)
	//
	w.WriteBitSet(bits, nbits)
	//
	key := string(w.Bytes())
	//
	if index, ok := p.index[key]; ok {
		return index
	}
	//
	index := p.Len()
	p.rows = append(p.rows, bits.Clone())
	p.lens = append(p.lens, nbits)
	p.index[key] = index
	//
	return index
}

// Width returns the length of the longest bitmap in this table.
func (p *BitmapTableBuilder[L]) Width() uint {
	var width uint
	//
	for _, n := range p.lens {
		width = max(width, n)
	}
	//
	return width
}

// Encode writes this table to a given bit stream.  The encoding consists of
// the row count, followed by the common bitmap width (if any rows exist) and,
// finally, the bitmaps themselves.
func (p *BitmapTableBuilder[L]) Encode(w *bit.Writer) {
	var nrows = p.Len()
	//
	w.WriteVarint(uint32(nrows))
	//
	if nrows == 0 {
		return
	}
	//
	width := p.Width()
	w.WriteVarint(uint32(width))
	//
	for _, row := range p.rows {
		w.WriteBitSet(row, width)
	}
}

// BitmapTable provides a read-only view of an encoded bitmap table.
type BitmapTable[L Layout] struct {
	rows  uint
	width uint
	data  bit.Region
}

// Len returns the number of rows in this table.
func (p *BitmapTable[L]) Len() uint {
	return p.rows
}

// Width returns the (common) length of the bitmaps in this table.
func (p *BitmapTable[L]) Width() uint {
	return p.width
}

// BitSize returns the number of bits occupied by the rows of this table.
func (p *BitmapTable[L]) BitSize() uint {
	return p.data.Len()
}

// Get returns the bitmap held in a given row.
func (p *BitmapTable[L]) Get(row uint) bit.Region {
	return p.data.Sub(row*p.width, p.width)
}

// Decode initialises this table from a given bit stream, as written by
// BitmapTableBuilder.Encode.
func (p *BitmapTable[L]) Decode(r *bit.Reader) error {
	var layout L
	//
	nrows, err := r.ReadVarint()
	if err != nil {
		return corruptf("table %s: %v", layout.Name(), err)
	}
	//
	p.rows, p.width = uint(nrows), 0
	//
	if err := checkRowCount(layout, p.rows, r); err != nil {
		return err
	}
	//
	if nrows == 0 {
		p.data = bit.Region{}
		return nil
	}
	//
	width, err := r.ReadVarint()
	if err != nil {
		return corruptf("table %s: %v", layout.Name(), err)
	}
	//
	p.width = uint(width)
	//
	if uint64(p.rows)*uint64(p.width) > uint64(r.Remaining()) {
		return corruptf("table %s: %d rows exceed remaining %d bits", layout.Name(), p.rows, r.Remaining())
	}
	//
	p.data, err = r.Skip(p.rows * p.width)
	//
	return err
}

// Check a decoded row count is plausible.  Rows may be zero bits wide, so the
// remaining input alone does not bound the number of rows.  Instead, no table
// may hold more rows than the entire stream has bits.
func checkRowCount(layout Layout, nrows uint, r *bit.Reader) error {
	if nrows > r.Size() {
		return corruptf("table %s: %d rows exceed %d bits of input", layout.Name(), nrows, r.Size())
	}
	//
	return nil
}

// Determine the length of a bitmap, which is one more than the index of its
// highest set bit.
func bitmapLength(bits *bitset.BitSet) uint {
	var n uint
	//
	for i, ok := bits.NextSet(0); ok; i, ok = bits.NextSet(i + 1) {
		n = i + 1
	}
	//
	return n
}

// Determine the value actually stored for a given value in this column.
func (p Column) store(value uint64) uint64 {
	if p.Nullable {
		// NO_VALUE wraps around to zero
		return value + 1
	}
	//
	return value
}

// Determine the value represented by a given stored value in this column.
func (p Column) load(stored uint64) uint64 {
	if p.Nullable {
		// Zero wraps around to NO_VALUE
		return stored - 1
	}
	//
	return stored
}
