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
package termio

import (
	"fmt"
	"io"
	"strings"
)

// TablePrinter is useful for printing tables to the terminal.  Columns are
// sized to fit their widest cell, subject to an optional upper bound.
type TablePrinter struct {
	widths []uint
	rows   [][]string
}

// NewTablePrinter constructs a new table with a given header row.
func NewTablePrinter(header ...string) *TablePrinter {
	p := &TablePrinter{make([]uint, len(header)), nil}
	p.AddRow(header...)
	//
	return p
}

// Height returns the number of rows in this table (including the header).
func (p *TablePrinter) Height() uint {
	return uint(len(p.rows))
}

// Get the contents of a given cell in this table
func (p *TablePrinter) Get(col uint, row uint) string {
	return p.rows[row][col]
}

// AddRow appends a row onto this table.
func (p *TablePrinter) AddRow(vals ...string) {
	if len(vals) != len(p.widths) {
		panic("incorrect number of columns")
	}
	// Update column widths
	for i, val := range vals {
		p.widths[i] = max(p.widths[i], uint(len(val)))
	}
	// Done
	p.rows = append(p.rows, vals)
}

// SetMaxWidth puts an upper bound on the width of every column.
func (p *TablePrinter) SetMaxWidth(width uint) {
	for i := range p.widths {
		p.widths[i] = min(p.widths[i], width)
	}
}

// Print the table to a given writer.
func (p *TablePrinter) Print(w io.Writer) error {
	for _, row := range p.rows {
		var line strings.Builder
		//
		for j, col := range row {
			width := p.widths[j]
			// Truncate data (if applicable)
			if uint(len(col)) > width && width >= 2 {
				col = col[0:width-2] + ".."
			} else if uint(len(col)) > width {
				col = col[0:width]
			}
			//
			line.WriteString(fmt.Sprintf(" %-*s |", width, col))
		}
		//
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return err
		}
	}
	//
	return nil
}
