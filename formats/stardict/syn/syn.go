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

// Package syn implements reading and writing .syn files.
//
// The .syn file maps synonyms to entries of the .idx file. Each entry is a
// utf-8 string terminated by a null terminator ('\0') followed by the 32 bit
// index of the original word in network byte order.
package syn

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTruncated indicates the file ends inside an entry.
	ErrTruncated = errors.New("truncated entry")

	// ErrInvalidIndex indicates a synonym refers to a missing word.
	ErrInvalidIndex = errors.New("invalid word index")
)

// Word is a .syn file entry.
type Word struct {
	// Word is the synonym word.
	Word string

	// OriginalWordIndex is the index into the .idx index.
	OriginalWordIndex uint32
}

// ReadAll reads a .syn file and groups the synonyms by the index of the
// word they refer to. Synonyms referring past wordCount are an error.
func ReadAll(r io.Reader, wordCount int) (map[uint32][]string, error) {
	s := NewScanner(r)
	synonyms := map[uint32][]string{}
	for s.Scan() {
		w := s.Word()
		if int64(w.OriginalWordIndex) >= int64(wordCount) {
			return nil, fmt.Errorf("%w: %q refers to %d", ErrInvalidIndex, w.Word, w.OriginalWordIndex)
		}
		synonyms[w.OriginalWordIndex] = append(synonyms[w.OriginalWordIndex], w.Word)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scanning synonym index: %w", err)
	}
	return synonyms, nil
}
