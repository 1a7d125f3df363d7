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

// Package dict implements reading and writing .dict files.
package dict

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ianlewis/go-glossary/formats/stardict/idx"
)

var (
	errInvalidType        = errors.New("invalid type")
	errWordOffsetTooLarge = errors.New("word offset too large")

	// ErrCorrupted indicates a word's data does not match its types.
	ErrCorrupted = errors.New("corrupted word data")
)

// Dict represents a Stardict dictionary's dictionary data.
type Dict struct {
	r                io.ReaderAt
	sametypesequence []DataType
}

// Word is a full dictionary entry.
type Word struct {
	Data []*Data
}

// DataType is a type of data in a word. Data types are specified by a single
// byte at the beginning of a word. Lower case characters represent string-like
// data that is terminated by a null terminator ('\0'). Upper case characters
// represent file-like data that starts with a 32-bit size followed by file
// data.
type DataType byte

const (
	// UTFTextType is utf-8 text.
	UTFTextType = DataType('m')

	// LocaleTextType is text in a locale encoding.
	LocaleTextType = DataType('l')

	// PangoTextType is utf-8 text in the Pango text format.
	PangoTextType = DataType('g')

	// PhoneticType is utf-8 text representing an English phonetic string.
	PhoneticType = DataType('t')

	// XDXFType is utf-8 encoded xml in XDXF format.
	XDXFType = DataType('x')

	// YinBiaoOrKataType is utf-8 encoded Yin Biao or Kana phonetic string.
	YinBiaoOrKataType = DataType('y')

	// PowerWordType is a utf-8 encoded KingSoft PowerWord XML format.
	PowerWordType = DataType('p')

	// MediaWikiType is utf-8 encoded text in MediaWiki format.
	MediaWikiType = DataType('w')

	// HTMLType is utf-8 encoded HTML text.
	HTMLType = DataType('h')

	// WordNetType is WordNet data.
	WordNetType = DataType('n')

	// ResourceFileListType is a list of files in resource storage.
	ResourceFileListType = DataType('r')

	// WavType is .wav sound file data.
	WavType = DataType('W')

	// PictureType is image file data. This was used by the
	// stardict-advertisement-plugin. Images are better stored in a resource
	// file list.
	PictureType = DataType('P')

	// ExperimentalType is reserved for experimental features.
	ExperimentalType = DataType('X')
)

// IsString reports whether the type is string-like.
func (t DataType) IsString() bool {
	return 'a' <= t && t <= 'z'
}

// Data is a data entry in a Word.
type Data struct {
	Type DataType
	Data []byte
}

// ValidateTypes checks that every type in seq is a known type.
func ValidateTypes(seq []DataType) error {
	for _, s := range seq {
		switch s {
		case UTFTextType,
			LocaleTextType,
			PangoTextType,
			PhoneticType,
			XDXFType,
			YinBiaoOrKataType,
			PowerWordType,
			MediaWikiType,
			HTMLType,
			WordNetType,
			ResourceFileListType,
			WavType,
			PictureType,
			ExperimentalType:
		default:
			return fmt.Errorf("%w: %q", errInvalidType, rune(s))
		}
	}
	return nil
}

// New returns a new Dict reading from r.
func New(r io.ReaderAt, sametypesequence []DataType) (*Dict, error) {
	if err := ValidateTypes(sametypesequence); err != nil {
		return nil, err
	}
	return &Dict{
		r:                r,
		sametypesequence: sametypesequence,
	}, nil
}

// Word retrieves the word for the given index entry from the
// dictionary.
func (d *Dict) Word(e *idx.Word) (*Word, error) {
	if e.Offset > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", errWordOffsetTooLarge, e.Offset)
	}
	b := make([]byte, e.Size)
	//nolint:gosec // offset size is bounds checked above.
	n, err := d.r.ReadAt(b, int64(e.Offset))
	if n < len(b) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}

	if len(d.sametypesequence) > 0 {
		return parseCompact(b, d.sametypesequence)
	}
	return parseGeneral(b)
}

// parseCompact parses a word when sametypesequence is specified. The type
// bytes are omitted and the last string has no terminator.
func parseCompact(b []byte, seq []DataType) (*Word, error) {
	var w Word
	for i, t := range seq {
		last := i == len(seq)-1
		var data []byte
		var err error
		switch {
		case t.IsString() && last:
			if bytes.IndexByte(b, 0) >= 0 {
				return nil, fmt.Errorf("%w: unexpected terminator", ErrCorrupted)
			}
			data, b = b, nil
		case t.IsString():
			data, b, err = cutString(b)
		case last:
			data, b = b, nil
		default:
			data, b, err = cutFile(b)
		}
		if err != nil {
			return nil, err
		}
		w.Data = append(w.Data, &Data{Type: t, Data: data})
	}
	return &w, nil
}

// parseGeneral parses a word where each item starts with its type.
func parseGeneral(b []byte) (*Word, error) {
	var w Word
	for len(b) > 0 {
		t := DataType(b[0])
		if !('a' <= t && t <= 'z' || 'A' <= t && t <= 'Z') {
			return nil, fmt.Errorf("%w: %w: %q", ErrCorrupted, errInvalidType, rune(t))
		}
		b = b[1:]

		var data []byte
		var err error
		if t.IsString() {
			data, b, err = cutString(b)
		} else {
			data, b, err = cutFile(b)
		}
		if err != nil {
			return nil, err
		}
		w.Data = append(w.Data, &Data{Type: t, Data: data})
	}
	return &w, nil
}

func cutString(b []byte) ([]byte, []byte, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: missing terminator", ErrCorrupted)
	}
	return b[:i], b[i+1:], nil
}

func cutFile(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: missing size", ErrCorrupted)
	}
	size := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint64(size) > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: size %d too large", ErrCorrupted, size)
	}
	return b[:size], b[size:], nil
}
