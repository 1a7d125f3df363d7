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

package syn

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Writer writes .syn entries. Entries must be written in StarDict order.
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter returns a new synonym writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a synonym entry.
func (w *Writer) Write(word *Word) error {
	if word.Word == "" || strings.IndexByte(word.Word, 0) >= 0 {
		return fmt.Errorf("invalid synonym: %q", word.Word)
	}
	b := make([]byte, 0, len(word.Word)+5)
	b = append(b, word.Word...)
	b = append(b, 0)
	b = binary.BigEndian.AppendUint32(b, word.OriginalWordIndex)
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("writing synonyms: %w", err)
	}
	w.count++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("writing synonyms: %w", err)
	}
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	return w.count
}
