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
	"io"
	"strings"
)

// Dump writes a human-readable listing of this code info.
func (p *CodeInfo) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "CodeInfo: %s\n", &p.header); err != nil {
		return err
	}
	//
	for id, table := range p.tables() {
		if table.Len() > 0 {
			if _, err := fmt.Fprintf(w, "  %s: %d rows\n", TableId(id), table.Len()); err != nil {
				return err
			}
		}
	}
	//
	for sm := range p.StackMaps() {
		if err := p.DumpStackMap(w, sm); err != nil {
			return err
		}
	}
	//
	for check := range p.ImplicitNullChecks() {
		_, err := fmt.Fprintf(w, "ImplicitNullCheck: npc=%#x offset=%d\n", check.InstNativePc, check.Offset)
		if err != nil {
			return err
		}
	}
	//
	return nil
}

// DumpStackMap writes a human-readable listing of a given stack map, including
// its roots, its inlined frames and the (reconstructed) state of every virtual
// register.
func (p *CodeInfo) DumpStackMap(w io.Writer, sm StackMap) error {
	var builder strings.Builder
	//
	builder.WriteString(fmt.Sprintf("StackMap %s\n", sm))
	builder.WriteString(fmt.Sprintf("  roots: regs=%#x stack=%s\n", p.GetRootsRegMask(sm), p.GetRootsStackMask(sm)))
	//
	if sm.HasRegisterMap {
		p.writeVRegs(&builder, "  vregs", p.GetMethodVRegs(sm))
	}
	//
	var depth uint
	//
	for info := range p.InlineInfos(sm) {
		builder.WriteString(fmt.Sprintf("  inline[%d]: %s\n", depth, info))
		//
		if sm.HasRegisterMap {
			p.writeVRegs(&builder, "    vregs", p.GetInlineVRegs(sm, depth))
		}
		//
		depth++
	}
	//
	_, err := io.WriteString(w, builder.String())
	//
	return err
}

// Write a list of vregs, where constants are shown by value.
func (p *CodeInfo) writeVRegs(builder *strings.Builder, prefix string, vregs []VRegInfo) {
	builder.WriteString(prefix)
	builder.WriteString(":")
	//
	for i, vreg := range vregs {
		if !vreg.IsConstant() {
			builder.WriteString(fmt.Sprintf(" v%d=%s", i, vreg))
			continue
		}
		//
		builder.WriteString(fmt.Sprintf(" v%d=const:%#x(%s)", i, p.GetConstant(vreg), vreg.Type))
		//
		if vreg.IsAccumulator {
			builder.WriteString("[acc]")
		}
	}
	//
	builder.WriteString("\n")
}
