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

// Package entry implements the canonical glossary record model.
//
// A glossary is a sequence of records. A record is either a lexical [Entry]
// (one or more terms plus a definition) or a [DataEntry] holding an embedded
// resource file such as an image or a sound clip. Records are stored in their
// compact [RawRecord] form and materialized on demand by a [Codec].
package entry

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ianlewis/go-glossary/errdefs"
)

// Format is the format of an entry's definition. Format values share the
// single byte type codes used by StarDict article data.
type Format byte

const (
	// Plain is plain utf-8 text.
	Plain = Format('m')

	// HTML is utf-8 encoded HTML.
	HTML = Format('h')

	// XDXF is utf-8 encoded xml in the XDXF structured markup format.
	XDXF = Format('x')

	// Binary marks a resource (data) entry. It is never the format of a
	// lexical entry.
	Binary = Format('b')
)

// String returns the single character code of the format.
func (f Format) String() string {
	return string(rune(f))
}

// ParseFormat parses a definition format code ("m", "h" or "x").
func ParseFormat(s string) (Format, error) {
	if len(s) == 1 {
		switch f := Format(s[0]); f {
		case Plain, HTML, XDXF:
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown definition format %q", errdefs.ErrInvalidRecord, s)
}

// Progress is the position of a record within its source. It is used only for
// progress reporting.
type Progress struct {
	// Pos is the number of bytes consumed.
	Pos int64

	// Total is the total number of bytes.
	Total int64
}

// Record is the common interface of [Entry] and [DataEntry]. Edit operations
// are no-ops on data entries.
type Record interface {
	// IsData returns true if the record is a resource file.
	IsData() bool

	// Terms returns the headword followed by alternate terms.
	Terms() []string

	// Headword returns the first term.
	Headword() string

	// Definition returns the definition body.
	Definition() string

	// Format returns the definition format.
	Format() Format

	// SetFormat sets the definition format.
	SetFormat(f Format) error

	// DetectFormat inspects a plain definition for markup and promotes the
	// format to HTML or XDXF. It returns the resulting format.
	DetectFormat() Format

	// ByteProgress returns the record's position in the source, if known.
	ByteProgress() *Progress

	// SetTerms replaces the term list. It fails if terms is empty.
	SetTerms(terms []string) error

	// EditTerms runs fn on every term.
	EditTerms(fn func(string) string)

	// EditDefinition runs fn on the definition.
	EditDefinition(fn func(string) string)

	// Strip strips whitespace from terms and definition.
	Strip()

	// Replace replaces old with new in terms and definition.
	Replace(old, new string)

	// RemoveEmptyAndDuplicateAlternates removes empty and duplicate terms. If
	// no term would remain the headword is kept as an empty string.
	RemoveEmptyAndDuplicateAlternates()

	// StripFullHTML replaces a full HTML document definition with its body.
	StripFullHTML() error
}

var (
	xdxfPattern = regexp.MustCompile(`(?is)^<k>[^<>]*</k>`)
	htmlPattern = regexp.MustCompile(`(?is)` + strings.Join([]string{
		`<font[ >]`,
		`<br\s*/?\s*>`,
		`<i[ >]`,
		`<b[ >]`,
		`<p[ >]`,
		`<hr\s*/?\s*>`,
		`<a `,
		`<div[ >]`,
		`<span[ >]`,
		`<img[ >]`,
		`<table[ >]`,
		`<sup[ >]`,
		`<u[ >]`,
		`<ul[ >]`,
		`<ol[ >]`,
		`<li[ >]`,
		`<h[1-6][ >]`,
		`<audio[ >]`,
		`&[a-z]{2,8};`,
		`&#x?[0-9]{2,5};`,
	}, "|"))
)

// Entry is a lexical glossary entry.
type Entry struct {
	terms    []string
	defi     string
	format   Format
	progress *Progress
}

// New returns a new Entry. terms must not be empty and format must be one of
// Plain, HTML or XDXF.
func New(terms []string, defi string, format Format) (*Entry, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty term list", errdefs.ErrInvalidRecord)
	}
	switch format {
	case Plain, HTML, XDXF:
	default:
		return nil, fmt.Errorf("%w: unknown definition format %q", errdefs.ErrInvalidRecord, format)
	}
	return &Entry{
		terms:  slices.Clone(terms),
		defi:   defi,
		format: format,
	}, nil
}

// IsData implements [Record.IsData].
func (*Entry) IsData() bool {
	return false
}

// Terms implements [Record.Terms]. The returned slice must not be modified.
func (e *Entry) Terms() []string {
	return e.terms
}

// Headword implements [Record.Headword].
func (e *Entry) Headword() string {
	return e.terms[0]
}

// Definition implements [Record.Definition].
func (e *Entry) Definition() string {
	return e.defi
}

// Format implements [Record.Format].
func (e *Entry) Format() Format {
	return e.format
}

// SetFormat implements [Record.SetFormat].
func (e *Entry) SetFormat(f Format) error {
	switch f {
	case Plain, HTML, XDXF:
		e.format = f
		return nil
	default:
		return fmt.Errorf("%w: unknown definition format %q", errdefs.ErrInvalidRecord, f)
	}
}

// SetProgress records the entry's byte position in its source.
func (e *Entry) SetProgress(pos, total int64) {
	e.progress = &Progress{Pos: pos, Total: total}
}

// ByteProgress implements [Record.ByteProgress].
func (e *Entry) ByteProgress() *Progress {
	return e.progress
}

// DetectFormat implements [Record.DetectFormat]. XDXF is checked before HTML.
func (e *Entry) DetectFormat() Format {
	if e.format != Plain {
		return e.format
	}
	if xdxfPattern.MatchString(e.defi) {
		e.format = XDXF
	} else if htmlPattern.MatchString(e.defi) {
		e.format = HTML
	}
	return e.format
}

// SetTerms implements [Record.SetTerms].
func (e *Entry) SetTerms(terms []string) error {
	if len(terms) == 0 {
		return fmt.Errorf("%w: empty term list", errdefs.ErrInvalidRecord)
	}
	e.terms = slices.Clone(terms)
	return nil
}

// EditTerms implements [Record.EditTerms].
func (e *Entry) EditTerms(fn func(string) string) {
	for i, t := range e.terms {
		e.terms[i] = fn(t)
	}
}

// EditDefinition implements [Record.EditDefinition].
func (e *Entry) EditDefinition(fn func(string) string) {
	e.defi = fn(e.defi)
}

// Strip implements [Record.Strip]. Trailing <br> tags are removed from the
// definition as well.
func (e *Entry) Strip() {
	e.EditTerms(strings.TrimSpace)
	e.defi = strings.TrimSpace(e.defi)
	for strings.HasSuffix(e.defi, "<br>") || strings.HasSuffix(e.defi, "<BR>") {
		e.defi = e.defi[:len(e.defi)-len("<br>")]
	}
}

// Replace implements [Record.Replace].
func (e *Entry) Replace(old, new string) {
	e.EditTerms(func(s string) string {
		return strings.ReplaceAll(s, old, new)
	})
	e.defi = strings.ReplaceAll(e.defi, old, new)
}

// RemoveEmptyAndDuplicateAlternates implements
// [Record.RemoveEmptyAndDuplicateAlternates].
func (e *Entry) RemoveEmptyAndDuplicateAlternates() {
	if len(e.terms) == 1 {
		return
	}
	seen := make(map[string]struct{}, len(e.terms))
	terms := make([]string, 0, len(e.terms))
	for _, t := range e.terms {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	if len(terms) == 0 {
		terms = append(terms, "")
	}
	e.terms = terms
}

// StripFullHTML implements [Record.StripFullHTML]. Definitions that are not
// full HTML documents are left alone.
func (e *Entry) StripFullHTML() error {
	defi := e.defi
	if !strings.HasPrefix(defi, "<") {
		return nil
	}
	if rest, ok := strings.CutPrefix(defi, "<!DOCTYPE html>"); ok {
		defi = strings.TrimSpace(rest)
		if !strings.HasPrefix(defi, "<html") {
			return errFullHTML("has <!DOCTYPE html> but no <html>")
		}
	} else if !strings.HasPrefix(defi, "<html>") {
		return nil
	}

	i := strings.Index(defi, "<body")
	if i < 0 {
		return errFullHTML("<body not found")
	}
	defi = defi[i+len("<body"):]
	i = strings.IndexByte(defi, '>')
	if i < 0 {
		return errFullHTML("'>' after <body not found")
	}
	defi = defi[i+1:]
	i = strings.Index(defi, "</body")
	if i < 0 {
		return errFullHTML("</body close not found")
	}
	e.defi = defi[:i]
	return nil
}

// String returns a debug representation of the entry.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry(%q, %q, format=%v)", e.terms, e.defi, e.format)
}

// ErrFullHTML is returned by StripFullHTML for malformed documents.
var ErrFullHTML = fmt.Errorf("%w: malformed html document", errdefs.ErrInvalidRecord)

func errFullHTML(msg string) error {
	return fmt.Errorf("%w: %s", ErrFullHTML, msg)
}
