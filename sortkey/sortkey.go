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

// Package sortkey implements named sort key strategies.
//
// A [NamedSortKey] derives comparison keys from an entry's terms, either as an
// in-memory [Key] or as a set of typed [Column] values used to sort records
// in an SQL table. Keys are looked up by name in a [Registry], optionally
// with a locale suffix ("headword_lower:fr") to get a collation-aware key.
package sortkey

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ianlewis/go-glossary/errdefs"
)

// Column types.
const (
	TypeText = "TEXT"
	TypeBlob = "BLOB"
	TypeReal = "REAL"
)

// DefaultEncoding is the default sort encoding.
const DefaultEncoding = "utf-8"

var errEncoding = errors.New("sort encoding")

// Key is an in-memory comparison key. Keys are compared element-wise.
type Key [][]byte

// Compare compares two keys element-wise with [bytes.Compare]. A key that is
// a prefix of another sorts first.
func Compare(a, b Key) int {
	for i := range min(len(a), len(b)) {
		if c := bytes.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// KeyFunc computes a key from an entry's terms. terms is never empty.
type KeyFunc func(terms []string) Key

// Column is a typed SQL column derived from an entry's terms.
type Column struct {
	// Name is the column name.
	Name string `json:"name"`

	// Type is the SQL column type (TEXT, BLOB or REAL).
	Type string `json:"type"`

	// Extract computes the column's value. It returns a string for TEXT, a
	// []byte for BLOB and a float64 for REAL columns.
	Extract func(terms []string) any `json:"-"`
}

// Options are passed to sort key factories.
type Options struct {
	// Encoding is the sort encoding. The empty string means utf-8.
	Encoding string

	// WriteOptions are the options of the output format's writer.
	WriteOptions map[string]any
}

// NamedSortKey is a registered sort strategy. It must not be modified after
// it is registered.
type NamedSortKey struct {
	// Name is the unique name of the key.
	Name string

	// Desc is a human readable description.
	Desc string

	// Normal returns the in-memory key function.
	Normal func(opts Options) (KeyFunc, error)

	// External returns the columns used for sorting in an SQL table.
	External func(opts Options) ([]Column, error)

	// Locale returns an in-memory key function using the collator. It is nil
	// if the key does not support locales.
	Locale func(c *collate.Collator, opts Options) (KeyFunc, error)

	// ExternalLocale returns SQL columns using the collator.
	ExternalLocale func(c *collate.Collator, opts Options) ([]Column, error)
}

// SupportsLocale returns true if the key has locale variants.
func (k *NamedSortKey) SupportsLocale() bool {
	return k.Locale != nil && k.ExternalLocale != nil
}

// BaseName returns the key name without a locale suffix.
func (k *NamedSortKey) BaseName() string {
	name, _, _ := strings.Cut(k.Name, ":")
	return name
}

// encoder converts strings to bytes in the sort encoding.
type encoder struct {
	enc *encoding.Encoder
}

func newEncoder(name string) (*encoder, error) {
	if isUTF8(name) {
		return &encoder{}, nil
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q: %w", errdefs.ErrNotSupported, errEncoding, name, err)
	}
	return &encoder{enc: encoding.ReplaceUnsupported(e.NewEncoder())}, nil
}

func (e *encoder) bytes(s string) []byte {
	if e.enc == nil {
		return []byte(s)
	}
	b, err := e.enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// value returns a column value for b: a string when the sort encoding is
// utf-8, otherwise b itself.
func (e *encoder) value(b []byte) any {
	if e.enc == nil {
		return string(b)
	}
	return b
}

func (e *encoder) columnType() string {
	if e.enc == nil {
		return TypeText
	}
	return TypeBlob
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// asciiLower lowercases ASCII letters only.
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// intOption reads an integer writer option that may have been decoded from
// YAML, JSON or a command line flag.
func intOption(opts map[string]any, name string, def int) int {
	switch v := opts[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
