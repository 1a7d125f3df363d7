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

package entry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zlib"

	"github.com/ianlewis/go-glossary/errdefs"
)

var errRaw = errors.New("raw record")

// RawRecord is the compact encoding of a record.
//
// A lexical entry is encoded as (formatTag, defi, term1, term2, ...) where
// formatTag is empty if the format equals the codec's default format. A data
// entry is encoded as ("b", tmpPath, name).
type RawRecord [][]byte

// IsData returns true if r encodes a data entry.
func (r RawRecord) IsData() bool {
	return len(r) > 0 && len(r[0]) == 1 && Format(r[0][0]) == Binary
}

// Terms returns the terms of the encoded record without decoding it. The
// only term of a data entry is its name.
func (r RawRecord) Terms() []string {
	if len(r) < 3 {
		return nil
	}
	if r.IsData() {
		return []string{string(r[2])}
	}
	terms := make([]string, 0, len(r)-2)
	for _, t := range r[2:] {
		terms = append(terms, string(t))
	}
	return terms
}

// Codec converts records to and from their raw form.
type Codec struct {
	// DefaultFormat is the glossary's default definition format. Entries in
	// this format are encoded without a format tag. The zero value means
	// Plain.
	DefaultFormat Format

	// TempDir is where data entries held inline are spilled on Encode.
	TempDir string

	// Compress enables zlib compression in Marshal.
	Compress bool
}

func (c *Codec) defaultFormat() Format {
	if c.DefaultFormat == 0 {
		return Plain
	}
	return c.DefaultFormat
}

// Encode returns the raw form of r.
func (c *Codec) Encode(r Record) (RawRecord, error) {
	if d, ok := r.(*DataEntry); ok {
		if d.TempPath() == "" {
			if c.TempDir == "" {
				return nil, fmt.Errorf("%w: %w: no temp dir for %q", errdefs.ErrUsage, errRaw, d.Name())
			}
			// Keep the original extension for writers that sniff it.
			dir := filepath.Join(c.TempDir, uuid.NewString())
			if _, err := d.Save(dir); err != nil {
				return nil, err
			}
		}
		return RawRecord{[]byte{byte(Binary)}, []byte(d.TempPath()), []byte(d.Name())}, nil
	}

	terms := r.Terms()
	raw := make(RawRecord, 0, len(terms)+2)
	var tag []byte
	if f := r.Format(); f != c.defaultFormat() {
		tag = []byte{byte(f)}
	}
	raw = append(raw, tag, []byte(r.Definition()))
	for _, t := range terms {
		raw = append(raw, []byte(t))
	}
	return raw, nil
}

// Decode materializes a record from its raw form.
func (c *Codec) Decode(raw RawRecord) (Record, error) {
	if len(raw) < 3 {
		return nil, fmt.Errorf("%w: %w: %d fields", errdefs.ErrInvalidRecord, errRaw, len(raw))
	}

	if raw.IsData() {
		return OpenDataEntry(string(raw[2]), string(raw[1])), nil
	}
	format := c.defaultFormat()
	if len(raw[0]) > 0 {
		format = Format(raw[0][0])
	}
	return New(raw.Terms(), string(raw[1]), format)
}

// Marshal serializes raw into a single blob. Each field is prefixed by its
// uvarint length after a uvarint field count.
func (c *Codec) Marshal(raw RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	var w io.Writer = &buf
	var zw *zlib.Writer
	if c.Compress {
		zw = zlib.NewWriter(&buf)
		w = zw
	}

	var n [binary.MaxVarintLen64]byte
	if _, err := w.Write(n[:binary.PutUvarint(n[:], uint64(len(raw)))]); err != nil {
		return nil, fmt.Errorf("%w: %w", errRaw, err)
	}
	for _, f := range raw {
		if _, err := w.Write(n[:binary.PutUvarint(n[:], uint64(len(f)))]); err != nil {
			return nil, fmt.Errorf("%w: %w", errRaw, err)
		}
		if _, err := w.Write(f); err != nil {
			return nil, fmt.Errorf("%w: %w", errRaw, err)
		}
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%w: %w", errRaw, err)
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a blob produced by Marshal.
func (c *Codec) Unmarshal(b []byte) (RawRecord, error) {
	if c.Compress {
		zr, err := zlib.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", errdefs.ErrInvalidRecord, errRaw, err)
		}
		defer zr.Close()
		b, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", errdefs.ErrInvalidRecord, errRaw, err)
		}
	}

	count, n := binary.Uvarint(b)
	if n <= 0 || count > uint64(len(b)) {
		return nil, fmt.Errorf("%w: %w: bad field count", errdefs.ErrInvalidRecord, errRaw)
	}
	b = b[n:]
	raw := make(RawRecord, 0, count)
	for range count {
		size, n := binary.Uvarint(b)
		if n <= 0 || size > uint64(len(b)-n) {
			return nil, fmt.Errorf("%w: %w: truncated field", errdefs.ErrInvalidRecord, errRaw)
		}
		b = b[n:]
		raw = append(raw, b[:size:size])
		b = b[size:]
	}
	return raw, nil
}

// EncodeBytes encodes and marshals r.
func (c *Codec) EncodeBytes(r Record) ([]byte, error) {
	raw, err := c.Encode(r)
	if err != nil {
		return nil, err
	}
	return c.Marshal(raw)
}

// DecodeBytes unmarshals and decodes b.
func (c *Codec) DecodeBytes(b []byte) (Record, error) {
	raw, err := c.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return c.Decode(raw)
}
