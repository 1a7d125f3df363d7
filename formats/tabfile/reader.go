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
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/transform"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
)

type reader struct {
	host     plugin.Host
	logger   *zap.Logger
	encoding string

	file    *os.File
	counter *countingReader
	buf     *bufio.Reader
	size    int64

	// pending is the first line after the info header.
	pending string

	resDir   string
	resFiles []string
}

func newReader(h plugin.Host, opts map[string]any) (plugin.Reader, error) {
	enc := plugin.StringOption(opts, "encoding", "utf-8")
	if _, err := lookupEncoding(enc); err != nil {
		return nil, err
	}
	return &reader{
		host:     h,
		logger:   h.Logger().With(zap.String("component", "tabfile")),
		encoding: enc,
	}, nil
}

func (r *reader) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	if info.IsDir() {
		f.Close()
		return fmt.Errorf("%w: %q is a directory", errdefs.ErrRead, filename)
	}

	enc, err := lookupEncoding(r.encoding)
	if err != nil {
		f.Close()
		return err
	}

	r.file = f
	r.size = info.Size()
	r.counter = &countingReader{r: f}
	r.buf = bufio.NewReader(transform.NewReader(r.counter, enc.NewDecoder()))

	if err := r.readInfo(); err != nil {
		r.Close()
		return err
	}

	r.resDir = filename + "_res"
	if entries, err := os.ReadDir(r.resDir); err == nil {
		for _, e := range entries {
			if e.Type().IsRegular() {
				r.resFiles = append(r.resFiles, e.Name())
			}
		}
	}
	return nil
}

// readLine returns the next line without the line ending.
func (r *reader) readLine() (string, error) {
	line, err := r.buf.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

// readInfo reads the leading info lines.
func (r *reader) readInfo() error {
	for {
		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", errdefs.ErrRead, err)
		}
		line = strings.TrimPrefix(line, "\ufeff")
		if !strings.HasPrefix(line, "#") {
			r.pending = line
			return nil
		}
		term, defi, _ := strings.Cut(line, "\t")
		key := strings.TrimLeft(term, "#")
		if key == "" {
			continue
		}
		r.host.SetInfo(Unescape(key, false), Unescape(defi, false))
	}
}

// Len implements plugin.Reader. The number of entries is not known before
// reading.
func (*reader) Len() int {
	return 0
}

func (r *reader) Records() iter.Seq2[entry.Record, error] {
	return func(yield func(entry.Record, error) bool) {
		if r.buf == nil {
			yield(nil, fmt.Errorf("%w: reader is not open", errdefs.ErrRead))
			return
		}

		line := r.pending
		r.pending = ""
		pending := line != ""
		for {
			if !pending {
				var err error
				line, err = r.readLine()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					yield(nil, fmt.Errorf("%w: %w", errdefs.ErrRead, err))
					return
				}
			}
			pending = false

			e, err := r.parseLine(line)
			if err != nil {
				yield(nil, err)
				return
			}
			if e == nil {
				continue
			}
			e.SetProgress(r.counter.n, r.size)
			if !yield(e, nil) {
				return
			}
		}

		for _, name := range r.resFiles {
			if !yield(entry.OpenDataEntry(name, filepath.Join(r.resDir, name)), nil) {
				return
			}
		}
	}
}

// parseLine parses an entry line. It returns nil for lines without an
// entry.
func (r *reader) parseLine(line string) (*entry.Entry, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	term, defi, ok := strings.Cut(line, "\t")
	if !ok {
		head := []rune(line)
		if len(head) > 10 {
			head = head[:10]
		}
		r.logger.Error("line has no tab", zap.String("line", string(head)))
		return nil, nil
	}

	var terms []string
	if r.host.AltsEnabled() {
		terms = SplitTerms(term)
	} else {
		terms = []string{Unescape(term, true)}
	}
	return r.host.NewEntry(terms, Unescape(defi, false), 0)
}

func (r *reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.buf = nil
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	return nil
}
