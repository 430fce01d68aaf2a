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
package util

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func Test_PerfStats_00(t *testing.T) {
	var (
		logger, hook = test.NewNullLogger()
		stats        = NewPerfStats()
	)
	//
	log.SetOutput(logger.Out)
	log.AddHook(hook)
	log.SetLevel(log.DebugLevel)
	//
	defer log.SetLevel(log.InfoLevel)
	//
	stats.Log("packing", 1024)
	//
	entry := hook.LastEntry()
	//
	if entry == nil || entry.Message != "packing" {
		t.Fatalf("expected debug entry, received %v", entry)
	} else if entry.Data["bytes"] != uint(1024) {
		t.Errorf("expected 1024 bytes, received %v", entry.Data["bytes"])
	}
}
