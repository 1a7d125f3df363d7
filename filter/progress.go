// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filter

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
)

// byteProgressStep is the minimum number of bytes between byte progress
// reports.
const byteProgressStep = 100_000

type progress struct {
	host      Host
	index     int
	lastPos   int64
	count     int
	threshold int
}

// Progress reports progress to the host. Records that carry a byte position
// are reported every 100kB. Otherwise progress is reported as a ratio of the
// record count, at most 200 times.
func Progress(h Host) Filter {
	return &progress{
		host:  h,
		count: -1,
	}
}

func (*progress) Name() string {
	return "progressbar"
}

func (f *progress) Run(r entry.Record) (entry.Record, error) {
	index := f.index
	f.index++

	if bp := r.ByteProgress(); bp != nil {
		if bp.Pos > f.lastPos+byteProgressStep {
			f.host.Progress(bp.Pos, bp.Total, "bytes")
			f.lastPos = bp.Pos
		}
		return r, nil
	}

	if f.count == -1 {
		f.count = f.host.Len()
		f.threshold = max(1, min(500, f.count/200))
	}
	if f.count > 1 && index%f.threshold == 0 {
		f.host.Progress(int64(index), int64(f.count), "")
	}
	return r, nil
}

type maxMemoryUsage struct {
	logger *zap.Logger
	proc   *process.Process
	max    uint64
}

// MaxMemoryUsage logs the resident set size of the process at debug level
// whenever it reaches a new maximum.
func MaxMemoryUsage(h Host) (Filter, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil, fmt.Errorf("max_memory_usage: %w", err)
	}
	return &maxMemoryUsage{
		logger: h.Logger(),
		proc:   proc,
	}, nil
}

func (*maxMemoryUsage) Name() string {
	return "max_memory_usage"
}

func (f *maxMemoryUsage) Run(r entry.Record) (entry.Record, error) {
	info, err := f.proc.MemoryInfo()
	if err != nil {
		// Memory tracing is best effort.
		return r, nil
	}
	usage := info.RSS / 1024
	if usage > f.max {
		f.max = usage
		word := r.Headword()
		if runes := []rune(word); len(runes) > 30 {
			word = string(runes[:27]) + "..."
		}
		f.logger.Debug("max memory usage", zap.Uint64("kB", usage), zap.String("word", word))
	}
	return r, nil
}
