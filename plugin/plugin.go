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

// Package plugin defines the protocol between the conversion pipeline and
// format implementations.
//
// A format is described by a [Plugin] value. Plugins that can read provide a
// [Reader], plugins that can write provide a [Writer]. Plugins are collected
// in a [Registry] that is built once and read-only afterwards.
package plugin

import (
	"iter"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/sortkey"
)

// Reader reads records from a glossary file.
type Reader interface {
	// Open opens the named file. Errors wrap [errdefs.ErrRead].
	Open(filename string) error

	// Len returns the number of records if known, otherwise 0.
	Len() int

	// Records returns the records of the file. The sequence may only be
	// iterated once.
	Records() iter.Seq2[entry.Record, error]

	// Close releases the reader's resources.
	Close() error
}

// MetadataReader is implemented by readers whose open step does
// significant work, such as loading an index. ReadMetadata is drained after
// Open and yields (bytesRead, totalBytes) pairs for progress.
type MetadataReader interface {
	ReadMetadata() iter.Seq2[entry.Progress, error]
}

// Writer writes records to a glossary file. Writers are driven as
// consumers: Open, Start, Push for every record, then Finish. If any step
// fails the writer is aborted instead.
type Writer interface {
	// Open prepares the named destination. Errors wrap [errdefs.ErrWrite].
	Open(filename string) error

	// Start is called before the first record is pushed.
	Start() error

	// Push writes a record.
	Push(r entry.Record) error

	// Finish flushes and closes the output. It is called after the last
	// record.
	Finish() error

	// Abort closes the output and removes every file and directory the
	// writer created. It is called when Open, Start, Push or Finish fails
	// and may be called before Open succeeded.
	Abort() error
}

// Host is the part of a glossary that plugins use.
type Host interface {
	// Info returns a glossary info value such as "name" or "sourceLang".
	Info(key string) string

	// SetInfo sets a glossary info value.
	SetInfo(key, value string)

	// InfoKeys returns the keys of the glossary info in insertion order.
	InfoKeys() []string

	// DefaultFormat returns the definition format of entries that do not
	// set one.
	DefaultFormat() entry.Format

	// AltsEnabled reports whether alternate terms should be read and
	// written.
	AltsEnabled() bool

	// CollectFormat returns the share of each definition format among the
	// first max records. It returns nil if the records are not loaded.
	CollectFormat(max int) map[entry.Format]float64

	// NewEntry creates a new lexical entry.
	NewEntry(terms []string, defi string, format entry.Format) (*entry.Entry, error)

	// NewDataEntry creates a data entry. The data may be spilled to the
	// glossary's temporary directory.
	NewDataEntry(name string, data []byte) (*entry.DataEntry, error)

	// TempDir returns the conversion's temporary directory.
	TempDir() string

	// SortKeys returns the sort key registry of the conversion.
	SortKeys() *sortkey.Registry

	// RequestFilter adds an opt-in filter to the write path. Known names
	// are "prevent_duplicate_words", "strip_full_html" and
	// "remove_html_all".
	RequestFilter(name string) error

	// Logger returns the logger.
	Logger() *zap.Logger
}

// SortFlag is a writer's sorting requirement.
type SortFlag int

const (
	// SortDefaultNo does not sort unless the user asks for it.
	SortDefaultNo SortFlag = iota

	// SortDefaultYes sorts unless the user asks not to.
	SortDefaultYes

	// SortAlways always sorts. The user cannot disable it.
	SortAlways

	// SortNever never sorts. The user cannot enable it.
	SortNever
)

func (f SortFlag) String() string {
	switch f {
	case SortDefaultNo:
		return "default-no"
	case SortDefaultYes:
		return "default-yes"
	case SortAlways:
		return "always"
	case SortNever:
		return "never"
	}
	return "unknown"
}

// Plugin describes a glossary format.
type Plugin struct {
	// Name is the unique format name, e.g. "Stardict".
	Name string

	// Description is a short human readable description.
	Description string

	// Extensions are the file extensions of the format including the
	// leading dot. The first is the preferred one.
	Extensions []string

	// ExtensionCreate is appended to the input's base name to derive an
	// output filename. A trailing "/" means the output is a directory.
	ExtensionCreate string

	// SingleFile is true if the output is a single file.
	SingleFile bool

	// SortOnWrite is the writer's sorting requirement.
	SortOnWrite SortFlag

	// SortKeyName is the sort key the writer requires, if any.
	SortKeyName string

	// SortEncoding is the encoding of sort keys, defaults to utf-8.
	SortEncoding string

	// ReadCompressions are the compressions the reader handles itself.
	ReadCompressions []string

	// ReadOptions and WriteOptions hold the known options with their
	// default values.
	ReadOptions  map[string]any
	WriteOptions map[string]any

	// Magic reports whether the file header belongs to this format.
	Magic func(header []byte) bool

	// NewReader creates a reader. It is nil for write-only formats.
	NewReader func(h Host, opts map[string]any) (Reader, error)

	// NewWriter creates a writer. It is nil for read-only formats.
	NewWriter func(h Host, opts map[string]any) (Writer, error)
}

// CanRead reports whether the format can be read.
func (p *Plugin) CanRead() bool {
	return p.NewReader != nil
}

// CanWrite reports whether the format can be written.
func (p *Plugin) CanWrite() bool {
	return p.NewWriter != nil
}

// Ext returns the preferred extension.
func (p *Plugin) Ext() string {
	if len(p.Extensions) == 0 {
		return ""
	}
	return p.Extensions[0]
}

// ReaderOptions merges opts over the reader's defaults. Unknown options are
// logged and dropped.
func (p *Plugin) ReaderOptions(opts map[string]any, logger *zap.Logger) map[string]any {
	return mergeOptions(p.ReadOptions, opts, logger.With(zap.String("format", p.Name), zap.String("mode", "read")))
}

// WriterOptions merges opts over the writer's defaults. Unknown options are
// logged and dropped.
func (p *Plugin) WriterOptions(opts map[string]any, logger *zap.Logger) map[string]any {
	return mergeOptions(p.WriteOptions, opts, logger.With(zap.String("format", p.Name), zap.String("mode", "write")))
}

func mergeOptions(defaults, opts map[string]any, logger *zap.Logger) map[string]any {
	out := maps.Clone(defaults)
	if out == nil {
		out = map[string]any{}
	}
	for _, key := range slices.Sorted(maps.Keys(opts)) {
		if _, ok := defaults[key]; !ok {
			logger.Warn("unknown option", zap.String("option", key))
			continue
		}
		out[key] = opts[key]
	}
	return out
}

// BoolOption returns a boolean option. Non-boolean values return def.
func BoolOption(opts map[string]any, key string, def bool) bool {
	if b, ok := opts[key].(bool); ok {
		return b
	}
	return def
}

// StringOption returns a string option. Non-string values return def.
func StringOption(opts map[string]any, key, def string) string {
	if s, ok := opts[key].(string); ok {
		return s
	}
	return def
}
