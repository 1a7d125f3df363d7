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

// Package tabfile reads and writes tab separated glossaries.
//
// Every line holds one entry: the terms, separated by "|", a tab and the
// definition. Newlines, tabs and backslashes are escaped as "\n", "\t" and
// "\\". A "|" inside a term is escaped as "\|". Leading lines whose term
// starts with "#" hold glossary info, e.g. "##name\tMy Glossary".
//
// Resource files are stored in a directory named after the file with a
// "_res" suffix.
package tabfile

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
)

// Name is the format name.
const Name = "Tabfile"

// Plugin returns the tabfile format descriptor.
func Plugin() *plugin.Plugin {
	return &plugin.Plugin{
		Name:            Name,
		Description:     "Tabfile (.txt, .dic)",
		Extensions:      []string{".txt", ".tab", ".tsv", ".dic"},
		ExtensionCreate: ".txt",
		SingleFile:      true,
		SortOnWrite:     plugin.SortDefaultNo,
		ReadOptions: map[string]any{
			"encoding": "utf-8",
		},
		WriteOptions: map[string]any{
			"encoding":   "utf-8",
			"write_info": true,
			"resources":  true,
		},
		NewReader: newReader,
		NewWriter: newWriter,
	}
}

// lookupEncoding returns the text encoding with the given WHATWG name.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %q: %w", errdefs.ErrConfiguration, name, err)
	}
	return enc, nil
}

// Escape escapes backslashes, tabs and newlines in s. Carriage returns are
// removed. If bar is true "|" is escaped too.
func Escape(s string, bar bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
		case '|':
			if bar {
				b.WriteString(`\|`)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Unescape reverses [Escape]. Unknown escape sequences are kept as is.
func Unescape(s string, bar bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case '|':
			if bar {
				b.WriteByte('|')
			} else {
				b.WriteString(`\|`)
			}
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// SplitTerms splits s on unescaped "|" and unescapes every part.
func SplitTerms(s string) []string {
	var terms []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '|':
			terms = append(terms, Unescape(s[start:i], true))
			start = i + 1
		}
	}
	return append(terms, Unescape(s[start:], true))
}

// JoinTerms escapes terms and joins them with "|".
func JoinTerms(terms []string) string {
	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = Escape(t, true)
	}
	return strings.Join(escaped, "|")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
