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

package dict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode encodes a word. If sametypesequence is specified the word's data
// types must match it.
func Encode(w *Word, sametypesequence []DataType) ([]byte, error) {
	if len(sametypesequence) > 0 && len(sametypesequence) != len(w.Data) {
		return nil, fmt.Errorf("%w: got %d items for sametypesequence %q",
			errInvalidType, len(w.Data), string(sametypesequence))
	}

	var b []byte
	for i, d := range w.Data {
		if len(sametypesequence) == 0 {
			b = append(b, byte(d.Type))
		} else if d.Type != sametypesequence[i] {
			return nil, fmt.Errorf("%w: %q does not match sametypesequence", errInvalidType, rune(d.Type))
		}
		last := len(sametypesequence) > 0 && i == len(w.Data)-1

		if d.Type.IsString() {
			// Data is a string like sequence.
			b = append(b, d.Data...)
			// The last item has no terminator when sametypesequence is set.
			if !last {
				b = append(b, 0)
			}
			continue
		}

		// Data is a file like sequence. The last item has no size when
		// sametypesequence is set.
		if !last {
			if uint64(len(d.Data)) > math.MaxUint32 {
				return nil, fmt.Errorf("%w: file data too long: %d", ErrCorrupted, len(d.Data))
			}
			b = binary.BigEndian.AppendUint32(b, uint32(len(d.Data)))
		}
		b = append(b, d.Data...)
	}
	return b, nil
}

// Writer appends words to a .dict file.
type Writer struct {
	w                *bufio.Writer
	sametypesequence []DataType
	offset           uint64
}

// NewWriter returns a new dict writer.
func NewWriter(w io.Writer, sametypesequence []DataType) (*Writer, error) {
	if err := ValidateTypes(sametypesequence); err != nil {
		return nil, err
	}
	return &Writer{
		w:                bufio.NewWriter(w),
		sametypesequence: sametypesequence,
	}, nil
}

// Write writes a word and returns its offset and size.
func (w *Writer) Write(word *Word) (uint64, uint32, error) {
	b, err := Encode(word, w.sametypesequence)
	if err != nil {
		return 0, 0, err
	}
	if uint64(len(b)) > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: word too long: %d", ErrCorrupted, len(b))
	}
	offset := w.offset
	if _, err := w.w.Write(b); err != nil {
		return 0, 0, fmt.Errorf("writing dictionary: %w", err)
	}
	w.offset += uint64(len(b))
	return offset, uint32(len(b)), nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	return nil
}

// Offset returns the number of bytes written.
func (w *Writer) Offset() uint64 {
	return w.offset
}
