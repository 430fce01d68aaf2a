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
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-codeinfo/pkg/aot"
	"github.com/consensys/go-codeinfo/pkg/codeinfo"
	"github.com/consensys/go-codeinfo/pkg/util/termio"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [flags] aot_file",
	Short: "list the symbols of an AOT file.",
	Long: `List the symbols held in an AOT file, along with the location and size of their code blobs.
	Optionally, summarise the code info of each blob.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		stats := GetFlag(cmd, "stats")
		//
		file, err := aot.Open(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		defer file.Close() //nolint:errcheck
		//
		table := listEntries(file, stats)
		table.SetMaxWidth(getTextWidth(cmd) / 2)
		//
		if err := table.Print(os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func listEntries(file *aot.File, stats bool) *termio.TablePrinter {
	var table *termio.TablePrinter
	//
	if stats {
		table = termio.NewTablePrinter("offset", "size", "symbol", "arch", "frame", "code", "stackmaps", "checks")
	} else {
		table = termio.NewTablePrinter("offset", "size", "symbol")
	}
	//
	for _, entry := range file.Entries() {
		row := []string{fmt.Sprintf("%#08x", entry.Offset), fmt.Sprintf("%d", entry.Size), entry.Symbol}
		//
		if stats {
			info, err := file.CodeInfo(entry.Symbol)
			if err != nil {
				fmt.Printf("%s: %s\n", entry.Symbol, err)
				os.Exit(2)
			}
			//
			row = append(row, info.Arch().String(), fmt.Sprintf("%d", info.FrameSize()),
				fmt.Sprintf("%d", info.CodeSize()), fmt.Sprintf("%d", info.StackMapCount()),
				fmt.Sprintf("%d", info.TableLen(codeinfo.TABLE_IMPLICIT_NULL_CHECK)))
		}
		//
		table.AddRow(row...)
	}
	//
	return table
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("stats", false, "summarise the code info of each symbol")
	listCmd.Flags().Uint("textwidth", 0, "Set maximum textwidth to use")
}
