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

package tabfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
)

type saver interface {
	Save(dir string) (string, error)
}

type writer struct {
	host      plugin.Host
	logger    *zap.Logger
	encoding  string
	writeInfo bool
	resources bool

	file     *os.File
	enc      *transform.Writer
	buf      *bufio.Writer
	filename string
	resDir   string
	// ownsRes is set if the resource directory did not exist at Open.
	ownsRes bool
}

func newWriter(h plugin.Host, opts map[string]any) (plugin.Writer, error) {
	enc := plugin.StringOption(opts, "encoding", "utf-8")
	if _, err := lookupEncoding(enc); err != nil {
		return nil, err
	}
	return &writer{
		host:      h,
		logger:    h.Logger().With(zap.String("component", "tabfile")),
		encoding:  enc,
		writeInfo: plugin.BoolOption(opts, "write_info", true),
		resources: plugin.BoolOption(opts, "resources", true),
	}, nil
}

func (w *writer) Open(filename string) error {
	enc, err := lookupEncoding(w.encoding)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	w.file = f
	w.enc = transform.NewWriter(f, enc.NewEncoder())
	w.buf = bufio.NewWriter(w.enc)
	w.filename = filename
	w.resDir = filename + "_res"
	_, err = os.Stat(w.resDir)
	w.ownsRes = err != nil
	return nil
}

func (w *writer) Start() error {
	if !w.writeInfo {
		return nil
	}
	for _, key := range w.host.InfoKeys() {
		value := w.host.Info(key)
		if key == "" || value == "" {
			w.logger.Warn("skipping empty info", zap.String("key", key))
			continue
		}
		if err := w.writeLine("##"+Escape(key, true), Escape(value, false)); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) writeLine(term, defi string) error {
	if _, err := w.buf.WriteString(term + "\t" + defi + "\n"); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return nil
}

func (w *writer) Push(r entry.Record) error {
	if r.IsData() {
		if !w.resources {
			return nil
		}
		s, ok := r.(saver)
		if !ok {
			return nil
		}
		if _, err := s.Save(w.resDir); err != nil {
			return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
		}
		return nil
	}
	return w.writeLine(JoinTerms(r.Terms()), Escape(r.Definition(), false))
}

func (w *writer) Finish() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	err := w.buf.Flush()
	if err == nil {
		err = w.enc.Close()
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
