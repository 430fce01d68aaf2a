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
	"strings"

	"github.com/consensys/go-codeinfo/pkg/aot"
	"github.com/consensys/go-codeinfo/pkg/codeinfo"
	"github.com/consensys/go-codeinfo/pkg/mmap"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] file",
	Short: "print the code info of compiled methods.",
	Long: `Print the code info of one or more compiled methods in a human-readable form.
	The file can be an AOT file, a single code blob or (with --raw) code info on
	its own.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		var (
			raw       = GetFlag(cmd, "raw")
			symbol    = GetString(cmd, "symbol")
			textWidth = getTextWidth(cmd)
		)
		//
		file, err := mmap.Open(args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		defer file.Close() //nolint:errcheck
		//
		switch {
		case isAotFile(file.Bytes()):
			err = dumpAotFile(file.Bytes(), symbol, textWidth)
		case raw:
			err = dumpCodeInfo(codeinfo.Decode(file.Bytes()))(textWidth)
		default:
			err = dumpCodeInfo(codeinfo.DecodeCode(file.Bytes()))(textWidth)
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func dumpAotFile(data []byte, symbol string, textWidth uint) error {
	file, err := aot.Parse(data)
	if err != nil {
		return err
	}
	//
	symbols := file.Symbols()
	//
	if symbol != "" {
		symbols = []string{symbol}
	}
	//
	for _, s := range symbols {
		fmt.Printf("%s:\n", s)
		//
		if err := dumpCodeInfo(file.CodeInfo(s))(textWidth); err != nil {
			return err
		}
	}
	//
	return nil
}

func dumpCodeInfo(info *codeinfo.CodeInfo, err error) func(uint) error {
	return func(textWidth uint) error {
		var builder strings.Builder
		//
		if err != nil {
			return err
		} else if err := info.Dump(&builder); err != nil {
			return err
		}
		//
		printTruncated(builder.String(), textWidth)
		//
		return nil
	}
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("raw", false, "file holds code info only (i.e. without prefix or code)")
	dumpCmd.Flags().StringP("symbol", "s", "", "dump only the given symbol of an AOT file")
	dumpCmd.Flags().Uint("textwidth", DEFAULT_TEXT_WIDTH, "Set maximum textwidth to use")
}
