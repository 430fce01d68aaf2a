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
	"strings"
	"testing"
)

func Test_Table_00(t *testing.T) {
	var table = NewTablePrinter("a", "bb")
	//
	table.AddRow("ccc", "d")
	//
	checkTable(t, table, " a   | bb |\n ccc | d  |\n")
}

func Test_Table_01(t *testing.T) {
	var table = NewTablePrinter("symbol", "size")
	//
	table.AddRow("Lang/String.indexOf", "24")
	table.SetMaxWidth(8)
	//
	checkTable(t, table, " symbol   | size |\n Lang/S.. | 24   |\n")
}

func Test_Table_02(t *testing.T) {
	var table = NewTablePrinter("x")
	//
	if table.Height() != 1 || table.Get(0, 0) != "x" {
		t.Errorf("unexpected table")
	}
	//
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	//
	table.AddRow("y", "z")
}

func checkTable(t *testing.T, table *TablePrinter, expected string) {
	var out strings.Builder
	//
	if err := table.Print(&out); err != nil {
		t.Fatal(err)
	} else if out.String() != expected {
		t.Errorf("expected %q, received %q", expected, out.String())
	}
}
