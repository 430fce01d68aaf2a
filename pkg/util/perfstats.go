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
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// PerfStats measures the cost of some operation, in terms of elapsed time,
// memory allocated and garbage collections.  A measurement begins when the
// PerfStats is created, and is reported (at debug level) by Log.
type PerfStats struct {
	start  time.Time
	allocs uint64
	gcs    uint32
}

// NewPerfStats begins a new measurement.
func NewPerfStats() *PerfStats {
	var m runtime.MemStats
	//
	runtime.ReadMemStats(&m)
	//
	return &PerfStats{time.Now(), m.TotalAlloc, m.NumGC}
}

// Log reports the cost of the operation measured so far, along with its
// throughput given the number of bytes it produced.
func (p *PerfStats) Log(operation string, nbytes uint) {
	var m runtime.MemStats
	//
	runtime.ReadMemStats(&m)
	//
	elapsed := time.Since(p.start)
	fields := log.Fields{
		"time":  elapsed.Round(time.Microsecond),
		"alloc": (m.TotalAlloc - p.allocs) / 1024,
		"gcs":   m.NumGC - p.gcs,
		"bytes": nbytes,
	}
	// Throughput is meaningless for instantaneous operations
	if secs := elapsed.Seconds(); secs > 0 {
		fields["mb/s"] = float64(nbytes) / secs / (1024 * 1024)
	}
	//
	log.WithFields(fields).Debug(operation)
}
