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
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via "go
// install".
var Version string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codeinfo",
	Short: "A toolbox for compiled code metadata.",
	Long: `A toolbox for building, packing and inspecting the metadata (stack maps,
	inline frames, virtual registers and roots) of compiled methods.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := configureLogging(GetString(cmd, "log-format"), GetFlag(cmd, "verbose"),
			GetFlag(cmd, "quiet")); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !GetFlag(cmd, "version") {
			fmt.Println(cmd.UsageString())
			return
		}
		//
		fmt.Printf("codeinfo %s\n", version())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// Configure the format and level of the standard logger.  Logs are always
// written to stderr, such that they never interleave with dumped output.
func configureLogging(format string, verbose bool, quiet bool) error {
	switch format {
	case "text":
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format \"%s\"", format)
	}
	//
	log.SetOutput(os.Stderr)
	//
	switch {
	case verbose && quiet:
		return fmt.Errorf("cannot be both verbose and quiet")
	case verbose:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	//
	return nil
}

// Determine the version of this executable, either as set when building via
// "make" or as recorded by "go install".
func version() string {
	if Version != "" {
		return Version
	} else if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	// Unknown, perhaps "go run"
	return "(unknown version)"
}

func init() {
	rootCmd.Flags().Bool("version", false, "Report version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "report errors only")
	rootCmd.PersistentFlags().String("log-format", "text", "set logging format (text or json)")
}
