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
	"github.com/consensys/go-codeinfo/pkg/util"
	"github.com/spf13/cobra"
)

var packCmd = &cobra.Command{
	Use:   "pack [flags] method_file(s)",
	Short: "encode method descriptions into an AOT file.",
	Long: `Encode one or more method descriptions (given in TOML) into a single AOT file,
	where each method is identified by its name.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			writer = aot.NewWriter()
			output = GetString(cmd, "output")
		)
		//
		if len(args) == 0 || output == "" {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		stats := util.NewPerfStats()
		//
		for _, filename := range args {
			method := readMethodFile(filename)
			//
			blob, err := method.Encode()
			if err == nil {
				err = writer.Add(method.Name, blob)
			}
			//
			if err != nil {
				fmt.Printf("%s: %s\n", filename, err)
				os.Exit(2)
			}
		}
		//
		file, err := os.Create(output)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		n, err := writer.WriteTo(file)
		if err == nil {
			err = file.Close()
		}
		//
		stats.Log(fmt.Sprintf("packed %d method(s) into %s", writer.Len(), output), uint(n))
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringP("output", "o", "", "specify output file.")
}
