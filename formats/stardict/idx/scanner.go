// Copyright 2021 Google LLC
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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidIdxOffset indicates that the OffsetBits is an invalid value.
	ErrInvalidIdxOffset = errors.New("invalid idxoffsetbits")

	// ErrTruncated indicates the file ends inside an entry.
	ErrTruncated = errors.New("truncated entry")
)

// Word is an .idx file entry.
type Word struct {
	Word   string
	Offset uint64
	Size   uint32
}

// Options are options for reading and writing an .idx file.
type Options struct {
	// OffsetBits are the number of bits in the offset fields. Valid values for
	// OffsetBits are either 32 or 64.
	OffsetBits int
}

// DefaultOptions is the default options.
var DefaultOptions = &Options{
	OffsetBits: 32,
}

func (o *Options) offsetBits() (int, error) {
	if o == nil {
		o = DefaultOptions
	}
	if o.OffsetBits != 32 && o.OffsetBits != 64 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidIdxOffset, o.OffsetBits)
	}
	return o.OffsetBits, nil
}

// Scanner scans an index from start to end.
type Scanner struct {
	s             *bufio.Scanner
	idxoffsetbits int
}

// NewScanner return a new index scanner that scans the index from start to
// end.
func NewScanner(r io.Reader, options *Options) (*Scanner, error) {
	bits, err := options.offsetBits()
	if err != nil {
		return nil, err
	}
	s := &Scanner{
		s:             bufio.NewScanner(bufio.NewReader(r)),
		idxoffsetbits: bits,
	}
	s.s.Split(s.splitIndex)
	return s, nil
}

// Scan advances the index to the next index entry. It returns false if the
// scan stops either by reaching the end of the index or an error.
func (s *Scanner) Scan() bool {
	return s.s.Scan()
}

// Err returns the first error encountered.
func (s *Scanner) Err() error {
	//nolint:wrapcheck // error should not be wrapped
	return s.s.Err()
}

// Word gets the current entry in the index.
func (s *Scanner) Word() *Word {
	var e Word
	b := s.s.Bytes()
	i := bytes.IndexByte(b, 0)
	e.Word = string(b[:i])
	if s.idxoffsetbits == 64 {
		e.Offset = binary.BigEndian.Uint64(b[i+1:])
	} else {
		e.Offset = uint64(binary.BigEndian.Uint32(b[i+1:]))
	}
	e.Size = binary.BigEndian.Uint32(b[i+1+s.idxoffsetbits/8:])
	return &e
}

// splitIndex splits an index entry in the index file.
func (s *Scanner) splitIndex(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		// Found zero byte.
		tokenSize := i + 1 + s.idxoffsetbits/8 + 4
		if len(data) >= tokenSize {
			return tokenSize, data[:tokenSize], nil
		}
	}

	if atEOF {
		return 0, nil, ErrTruncated
	}

	// Request more data.
	return 0, nil, nil
}
