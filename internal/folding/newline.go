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

package folding

import (
	"golang.org/x/text/transform"
)

// NewlineFolder folds line breaks. Every span of spaces, carriage returns and
// line feeds that contains at least one line break is replaced with a single
// "\n". Spans of spaces only are kept as is.
type NewlineFolder struct {
	// spaces is the number of pending spaces.
	spaces int

	// newline is true if the pending span contains a line break.
	newline bool
}

func (f *NewlineFolder) pending() int {
	if f.newline {
		return 1
	}
	return f.spaces
}

func (f *NewlineFolder) flush(dst []byte) int {
	n := f.pending()
	if f.newline {
		dst[0] = '\n'
	} else {
		for i := range n {
			dst[i] = ' '
		}
	}
	f.spaces = 0
	f.newline = false
	return n
}

// Transform implements [transform.Transformer.Transform]. The input is
// processed byte-wise which is safe for utf-8 because all folded bytes are
// ASCII.
func (f *NewlineFolder) Transform(dst, src []byte, atEOF bool) (int, int, error) {
	var nSrc, nDst int
	for nSrc < len(src) {
		switch c := src[nSrc]; c {
		case ' ':
			f.spaces++
			nSrc++
		case '\r', '\n':
			f.newline = true
			nSrc++
		default:
			if nDst+f.pending()+1 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += f.flush(dst[nDst:])
			dst[nDst] = c
			nDst++
			nSrc++
		}
	}

	if atEOF {
		if nDst+f.pending() > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += f.flush(dst[nDst:])
	}
	return nDst, nSrc, nil
}

// Reset implements [transform.Transformer.Reset].
func (f *NewlineFolder) Reset() {
	*f = NewlineFolder{}
}
