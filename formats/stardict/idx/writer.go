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

package idx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var (
	// ErrOffsetTooLarge indicates an offset does not fit the offset bits.
	ErrOffsetTooLarge = errors.New("offset too large")

	errInvalidWord = errors.New("invalid word")
)

// Writer writes .idx entries.
type Writer struct {
	w             *bufio.Writer
	idxoffsetbits int
	size          int64
	count         int
}

// NewWriter returns a new index writer.
func NewWriter(w io.Writer, options *Options) (*Writer, error) {
	bits, err := options.offsetBits()
	if err != nil {
		return nil, err
	}
	return &Writer{
		w:             bufio.NewWriter(w),
		idxoffsetbits: bits,
	}, nil
}

// Write writes an index entry.
func (w *Writer) Write(word *Word) error {
	if word.Word == "" || strings.IndexByte(word.Word, 0) >= 0 {
		return fmt.Errorf("%w: %q", errInvalidWord, word.Word)
	}
	if w.idxoffsetbits == 32 && word.Offset > math.MaxUint32 {
		return fmt.Errorf("%w: %d", ErrOffsetTooLarge, word.Offset)
	}

	b := make([]byte, 0, len(word.Word)+1+w.idxoffsetbits/8+4)
	b = append(b, word.Word...)
	b = append(b, 0)
	if w.idxoffsetbits == 64 {
		b = binary.BigEndian.AppendUint64(b, word.Offset)
	} else {
		b = binary.BigEndian.AppendUint32(b, uint32(word.Offset))
	}
	b = binary.BigEndian.AppendUint32(b, word.Size)

	n, err := w.w.Write(b)
	w.size += int64(n)
	if err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	w.count++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Size returns the number of bytes written.
func (w *Writer) Size() int64 {
	return w.size
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	return w.count
}
