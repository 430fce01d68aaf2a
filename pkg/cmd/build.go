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

	"github.com/consensys/go-codeinfo/pkg/util"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] method_file",
	Short: "encode a method description into a code blob.",
	Long: `Encode a method description (given in TOML) into a code blob, consisting of a
	code prefix, the machine code and the code info.  Alternatively, the code info
	can be encoded on its own.`,
	Run: func(cmd *cobra.Command, args []string) {
		var data []byte
		//
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		raw := GetFlag(cmd, "raw")
		output := GetString(cmd, "output")
		method := readMethodFile(args[0])
		stats := util.NewPerfStats()
		// Encode method
		var err error
		if raw {
			data, err = method.EncodeInfo()
		} else {
			data, err = method.Encode()
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		// Default output file
		if output == "" {
			output = strings.TrimSuffix(args[0], ".toml") + ".bin"
		}
		//
		stats.Log(fmt.Sprintf("encoded method %s", method.Name), uint(len(data)))
		writeFile(output, data)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("raw", false, "encode code info only (i.e. without prefix or code)")
	buildCmd.Flags().StringP("output", "o", "", "specify output file.")
}
