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

package main

import (
	"fmt"
	"io"
)

// newProgressPrinter returns a progress callback that prints a percentage
// to w. Only changes of the percentage are printed.
func newProgressPrinter(w io.Writer) func(pos, total int64, unit string) {
	last := -1
	return func(pos, total int64, _ string) {
		if total <= 0 {
			return
		}
		pct := int(pos * 100 / total)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%3d%%", pct)
	}
}
