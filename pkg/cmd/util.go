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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/consensys/go-codeinfo/pkg/aot"
	"github.com/consensys/go-codeinfo/pkg/method"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DEFAULT_TEXT_WIDTH is used when the width of the terminal cannot be
// determined (e.g. output is redirected).
const DEFAULT_TEXT_WIDTH = 130

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Determine the text width for printing.  When not explicitly given, this is
// the width of the terminal (if there is one).
func getTextWidth(cmd *cobra.Command) uint {
	if cmd.Flags().Changed("textwidth") {
		return GetUint(cmd, "textwidth")
	}
	//
	fd := int(os.Stdout.Fd())
	//
	if term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			return uint(width)
		}
	}
	//
	return DEFAULT_TEXT_WIDTH
}

// Read a method description, or exit if an error arises.
func readMethodFile(filename string) *method.Method {
	m, err := method.Load(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// Default name is that of the file
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	//
	return m
}

// Check whether the given bytes hold an AOT file.
func isAotFile(data []byte) bool {
	return len(data) >= len(aot.IDENTIFIER) && bytes.Equal(data[:len(aot.IDENTIFIER)], aot.IDENTIFIER[:])
}

// Print a given text, truncating every line to a given width.
func printTruncated(text string, width uint) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if uint(len(line)) > width && width > 3 {
			line = line[:width-3] + "..."
		}
		//
		fmt.Println(line)
	}
}

// Write bytes to a given file, or exit if an error arises.
func writeFile(filename string, data []byte) {
	if err := os.WriteFile(filename, data, 0644); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}
