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

package plugin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ianlewis/go-glossary/errdefs"
)

// Compressions are the filename suffixes recognised as compression.
var Compressions = []string{"gz", "bz2", "zst", "lz4", "dz", "zip"}

// WriteCompressions are the compressions supported for output files.
var WriteCompressions = []string{"gz", "zst", "lz4"}

// magicSize is the number of header bytes passed to Magic functions.
const magicSize = 512

var (
	// ErrNotFound indicates a format could not be found or detected.
	ErrNotFound = fmt.Errorf("%w: format not found", errdefs.ErrConfiguration)

	errDuplicate = errors.New("duplicate format")
)

// Registry holds the known formats.
type Registry struct {
	plugins map[string]*Plugin
	exts    map[string]*Plugin
	order   []*Plugin
}

// NewRegistry returns a registry of the given plugins. Names are unique
// ignoring case. An extension claimed by more than one plugin belongs to the
// first one.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	r := &Registry{
		plugins: map[string]*Plugin{},
		exts:    map[string]*Plugin{},
	}
	for _, p := range plugins {
		key := strings.ToLower(p.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty name", errdefs.ErrUsage)
		}
		if _, ok := r.plugins[key]; ok {
			return nil, fmt.Errorf("%w: %w: %q", errdefs.ErrUsage, errDuplicate, p.Name)
		}
		r.plugins[key] = p
		r.order = append(r.order, p)
		for _, ext := range p.Extensions {
			ext = strings.ToLower(ext)
			if _, ok := r.exts[ext]; !ok {
				r.exts[ext] = p
			}
		}
	}
	return r, nil
}

// ByName returns the plugin with the given name, ignoring case.
func (r *Registry) ByName(name string) (*Plugin, error) {
	p, ok := r.plugins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// ByExt returns the plugin for a file extension such as ".txt".
func (r *Registry) ByExt(ext string) (*Plugin, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	p, ok := r.exts[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", ErrNotFound, ext)
	}
	return p, nil
}

// List returns all plugins in registration order.
func (r *Registry) List() []*Plugin {
	return slices.Clone(r.order)
}

// SplitFilenameExt splits a compression suffix off filename. It returns the
// filename without the compression suffix, the format extension of that
// filename and the compression, e.g. "a.txt.gz" gives "a.txt", ".txt" and
// "gz".
func SplitFilenameExt(filename string) (string, string, string) {
	main := filename
	var compression string
	if ext := filepath.Ext(filename); ext != "" {
		if c := strings.ToLower(ext[1:]); slices.Contains(Compressions, c) {
			compression = c
			main = strings.TrimSuffix(filename, ext)
		}
	}
	return main, filepath.Ext(main), compression
}

// Input is a detected input file.
type Input struct {
	Plugin *Plugin

	// Filename is the file to read. It may have a compression suffix.
	Filename string

	// Compression is the file's compression, if any.
	Compression string
}

// DetectInput finds the plugin for reading filename. If format is not empty
// it names the plugin. Otherwise the plugin is chosen by extension and then
// by the file's header. A missing file is looked up with compression
// suffixes appended.
func (r *Registry) DetectInput(filename, format string) (*Input, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: empty input filename", errdefs.ErrConfiguration)
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		for _, c := range Compressions {
			if _, err := os.Stat(filename + "." + c); err == nil {
				filename += "." + c
				break
			}
		}
	}

	main, ext, compression := SplitFilenameExt(filename)
	in := &Input{
		Filename:    filename,
		Compression: compression,
	}

	var err error
	switch {
	case format != "":
		in.Plugin, err = r.ByName(format)
	case ext != "":
		in.Plugin, err = r.ByExt(ext)
		if err != nil && compression == "" {
			in.Plugin, err = r.byMagic(filename)
		}
	default:
		in.Plugin, err = r.byMagic(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", main, err)
	}
	if !in.Plugin.CanRead() {
		return nil, fmt.Errorf("%w: reading %s", errdefs.ErrNotSupported, in.Plugin.Name)
	}
	return in, nil
}

func (r *Registry) byMagic(filename string) (*Plugin, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer f.Close()

	header := make([]byte, magicSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	header = header[:n]

	for _, p := range r.order {
		if p.Magic != nil && p.Magic(header) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: unable to detect format", ErrNotFound)
}

// Output is a detected output file.
type Output struct {
	Plugin *Plugin

	// Filename is the file the writer writes, without compression suffix.
	Filename string

	// Compression is the compression to apply after writing, if any.
	Compression string
}

// CompressedFilename returns the final output filename.
func (o *Output) CompressedFilename() string {
	if o.Compression == "" {
		return o.Filename
	}
	return o.Filename + "." + o.Compression
}

// DetectOutput finds the plugin for writing filename. If format is not
// empty it names the plugin, otherwise the plugin is chosen by extension. If
// filename is empty it is derived from inputFilename and the plugin's
// ExtensionCreate.
func (r *Registry) DetectOutput(filename, format, inputFilename string) (*Output, error) {
	out := &Output{}

	var err error
	switch {
	case filename == "":
		if format == "" || inputFilename == "" {
			return nil, fmt.Errorf("%w: no output filename or format", errdefs.ErrConfiguration)
		}
		out.Plugin, err = r.ByName(format)
		if err != nil {
			return nil, err
		}
		inMain, inExt, _ := SplitFilenameExt(inputFilename)
		base := strings.TrimSuffix(inMain, inExt)
		out.Filename = base + out.Plugin.ExtensionCreate
	default:
		var ext string
		out.Filename, ext, out.Compression = SplitFilenameExt(filename)
		if format != "" {
			out.Plugin, err = r.ByName(format)
		} else {
			out.Plugin, err = r.ByExt(ext)
		}
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", filename, err)
		}
	}

	if !out.Plugin.CanWrite() {
		return nil, fmt.Errorf("%w: writing %s", errdefs.ErrNotSupported, out.Plugin.Name)
	}
	if out.Compression != "" && !slices.Contains(WriteCompressions, out.Compression) {
		return nil, fmt.Errorf("%w: output compression %q", errdefs.ErrNotSupported, out.Compression)
	}
	return out, nil
}
