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

// Package jsonfmt writes glossaries as a JSON object mapping headwords to
// definitions.
package jsonfmt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
)

// Name is the format name.
const Name = "Json"

// Plugin returns the JSON format descriptor. The format is write-only.
func Plugin() *plugin.Plugin {
	return &plugin.Plugin{
		Name:            Name,
		Description:     "JSON (.json)",
		Extensions:      []string{".json"},
		ExtensionCreate: ".json",
		SingleFile:      true,
		SortOnWrite:     plugin.SortDefaultNo,
		WriteOptions: map[string]any{
			"enable_info": true,
			"resources":   true,
			"word_title":  false,
		},
		NewWriter: newWriter,
	}
}

type saver interface {
	Save(dir string) (string, error)
}

type writer struct {
	host       plugin.Host
	logger     *zap.Logger
	enableInfo bool
	resources  bool
	wordTitle  bool

	file     *os.File
	buf      *bufio.Writer
	scratch  bytes.Buffer
	enc      *gojson.Encoder
	filename string
	resDir   string
	ownsRes  bool
	count    int
}

func newWriter(h plugin.Host, opts map[string]any) (plugin.Writer, error) {
	// Object keys must be unique.
	if err := h.RequestFilter("prevent_duplicate_words"); err != nil {
		return nil, err
	}
	w := &writer{
		host:       h,
		logger:     h.Logger().With(zap.String("component", "json")),
		enableInfo: plugin.BoolOption(opts, "enable_info", true),
		resources:  plugin.BoolOption(opts, "resources", true),
		wordTitle:  plugin.BoolOption(opts, "word_title", false),
	}
	w.enc = gojson.NewEncoder(&w.scratch)
	w.enc.SetEscapeHTML(false)
	return w, nil
}

func (w *writer) Open(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.filename = filename
	w.resDir = filename + "_res"
	_, err = os.Stat(w.resDir)
	w.ownsRes = err != nil
	return nil
}

// quote returns s as a JSON string.
func (w *writer) quote(s string) (string, error) {
	w.scratch.Reset()
	if err := w.enc.Encode(s); err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return string(bytes.TrimRight(w.scratch.Bytes(), "\n")), nil
}

func (w *writer) writePair(key, value string) error {
	k, err := w.quote(key)
	if err != nil {
		return err
	}
	v, err := w.quote(value)
	if err != nil {
		return err
	}
	sep := ",\n"
	if w.count == 0 {
		sep = "{\n"
	}
	w.count++
	if _, err := w.buf.WriteString(sep + "\t" + k + ": " + v); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return nil
}

func (w *writer) Start() error {
	if !w.enableInfo {
		return nil
	}
	for _, key := range w.host.InfoKeys() {
		value := w.host.Info(key)
		if key == "" || value == "" {
			continue
		}
		if err := w.writePair("##"+key, value); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) Push(r entry.Record) error {
	if r.IsData() {
		if !w.resources {
			return nil
		}
		if s, ok := r.(saver); ok {
			if _, err := s.Save(w.resDir); err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
			}
		}
		return nil
	}

	defi := r.Definition()
	if w.wordTitle {
		defi = "<b>" + html.EscapeString(r.Headword()) + "</b><br>" + defi
	}
	return w.writePair(r.Headword(), defi)
}

func (w *writer) Finish() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	tail := "\n}\n"
	if w.count == 0 {
		tail = "{}\n"
	}
	_, err := w.buf.WriteString(tail)
	if err == nil {
		err = w.buf.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return nil
}

// Abort closes and removes the output file along with the resource
// directory if the writer created it.
func (w *writer) Abort() error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if w.filename == "" {
		return nil
	}
	var errs []error
	if err := os.Remove(w.filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if w.ownsRes {
		if err := os.RemoveAll(w.resDir); err != nil {
			errs = append(errs, err)
		}
	}
	w.filename = ""
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, errors.Join(errs...))
	}
	return nil
}
