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

package stardict

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ianlewis/go-dictzip"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/formats/stardict/dict"
	"github.com/ianlewis/go-glossary/formats/stardict/idx"
	"github.com/ianlewis/go-glossary/formats/stardict/ifo"
	"github.com/ianlewis/go-glossary/formats/stardict/syn"
	"github.com/ianlewis/go-glossary/internal/compression"
	"github.com/ianlewis/go-glossary/plugin"
)

var errInvalidUTF8 = errors.New("invalid utf-8")

// technicalKeys are .ifo keys that describe the files rather than the
// glossary.
var technicalKeys = map[string]bool{
	"version":          true,
	"bookname":         true,
	"wordcount":        true,
	"synwordcount":     true,
	"idxfilesize":      true,
	"idxoffsetbits":    true,
	"sametypesequence": true,
}

type reader struct {
	host          plugin.Host
	logger        *zap.Logger
	unicodeErrors string

	ifoPath    string
	basePath   string
	wordCount  int
	offsetBits int
	seq        []dict.DataType

	closers []io.Closer
	dict    *dict.Dict

	words  []*idx.Word
	syns   map[uint32][]string
	loaded bool

	resDir   string
	resFiles []string
}

func newReader(h plugin.Host, opts map[string]any) (plugin.Reader, error) {
	unicodeErrors := plugin.StringOption(opts, "unicode_errors", UnicodeStrict)
	switch unicodeErrors {
	case UnicodeStrict, UnicodeReplace, UnicodeIgnore:
	default:
		return nil, fmt.Errorf("%w: invalid unicode_errors %q", errdefs.ErrConfiguration, unicodeErrors)
	}
	return &reader{
		host:          h,
		logger:        h.Logger().With(zap.String("component", "stardict")),
		unicodeErrors: unicodeErrors,
		offsetBits:    32,
	}, nil
}

// findIfo returns the .ifo file for filename, which may be the .ifo file
// itself or a directory containing one.
func findIfo(filename string) (string, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	if !info.IsDir() {
		return filename, nil
	}
	matches, err := filepath.Glob(filepath.Join(filename, "*.ifo"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no .ifo file in %q", errdefs.ErrRead, filename)
	}
	return matches[0], nil
}

func (r *reader) Open(filename string) error {
	ifoPath, err := findIfo(filename)
	if err != nil {
		return err
	}
	r.ifoPath = ifoPath
	r.basePath = strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))

	if err := r.readIfo(); err != nil {
		return fmt.Errorf("%w: %q: %w", errdefs.ErrRead, ifoPath, err)
	}

	if err := r.openDict(); err != nil {
		r.Close()
		return err
	}

	r.resDir = filepath.Join(filepath.Dir(ifoPath), "res")
	if entries, err := os.ReadDir(r.resDir); err == nil {
		for _, e := range entries {
			if e.Type().IsRegular() {
				r.resFiles = append(r.resFiles, e.Name())
			}
		}
	}

	return nil
}

func (r *reader) readIfo() error {
	f, err := os.Open(r.ifoPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := ifo.New(f)
	if err != nil {
		return err
	}

	if info.Magic() != ifo.Magic {
		return ifo.ErrBadMagic
	}

	version := info.Value("version")
	switch version {
	case "2.4.2":
	case "3.0.0":
	default:
		return fmt.Errorf("invalid version: %q", version)
	}

	bookname := info.Value("bookname")
	if bookname == "" {
		return errors.New("missing bookname")
	}

	r.wordCount, err = strconv.Atoi(info.Value("wordcount"))
	if err != nil {
		return fmt.Errorf("bad wordcount: %w", err)
	}

	if _, err := strconv.ParseInt(info.Value("idxfilesize"), 10, 64); err != nil {
		return fmt.Errorf("bad idxfilesize: %w", err)
	}

	if bits := info.Value("idxoffsetbits"); bits != "" && version == "3.0.0" {
		r.offsetBits, err = strconv.Atoi(bits)
		if err != nil || (r.offsetBits != 32 && r.offsetBits != 64) {
			return fmt.Errorf("invalid idxoffsetbits: %q", bits)
		}
	}

	if seq := info.Value("sametypesequence"); seq != "" {
		r.seq = []dict.DataType(seq)
		if len(r.seq) > 1 {
			r.logger.Warn("multi-type sametypesequence", zap.String("sametypesequence", seq))
		}
		if err := dict.ValidateTypes(r.seq); err != nil {
			return err
		}
	}

	r.host.SetInfo("name", bookname)
	for _, key := range info.Keys() {
		if technicalKeys[key] {
			continue
		}
		if v := info.Value(key); v != "" {
			r.host.SetInfo(key, v)
		}
	}

	return nil
}

// findFile returns the first existing file with the base path and one of
// the extensions.
func findFile(basePath string, exts ...string) string {
	for _, ext := range exts {
		if _, err := os.Stat(basePath + ext); err == nil {
			return basePath + ext
		}
	}
	return ""
}

func (r *reader) openDict() error {
	dictPath := findFile(r.basePath, ".dict.dz", ".dict", ".DICT", ".DICT.dz", ".DICT.DZ")
	if dictPath == "" {
		return fmt.Errorf("%w: no dict found for %q", errdefs.ErrRead, r.ifoPath)
	}

	f, err := os.Open(dictPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}
	r.closers = append(r.closers, f)

	var ra io.ReaderAt = f
	if strings.EqualFold(filepath.Ext(dictPath), ".dz") {
		z, err := dictzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", errdefs.ErrRead, dictPath, err)
		}
		r.closers = append(r.closers, z)
		ra = z
	}

	r.dict, err = dict.New(ra, r.seq)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errdefs.ErrRead, dictPath, err)
	}
	return nil
}

// Len implements plugin.Reader.
func (r *reader) Len() int {
	return r.wordCount + len(r.resFiles)
}

// ReadMetadata loads the index and the synonyms.
func (r *reader) ReadMetadata() iter.Seq2[entry.Progress, error] {
	return func(yield func(entry.Progress, error) bool) {
		if r.loaded {
			return
		}

		idxPath := findFile(r.basePath, ".idx", ".idx.gz", ".IDX", ".IDX.gz", ".IDX.GZ")
		if idxPath == "" {
			yield(entry.Progress{}, fmt.Errorf("%w: no index found for %q", errdefs.ErrRead, r.ifoPath))
			return
		}
		synPath := ""
		if r.host.AltsEnabled() {
			synPath = findFile(r.basePath, ".syn", ".syn.dz")
		}

		total := fileSize(idxPath) + fileSize(synPath)

		words, err := readIdx(idxPath, r.offsetBits)
		if err != nil {
			yield(entry.Progress{}, err)
			return
		}
		if len(words) != r.wordCount {
			r.logger.Warn("wordcount mismatch", zap.Int("wordcount", r.wordCount), zap.Int("index", len(words)))
			r.wordCount = len(words)
		}
		r.words = words
		if !yield(entry.Progress{Pos: fileSize(idxPath), Total: total}, nil) {
			return
		}

		if synPath != "" {
			r.syns, err = readSyn(synPath, len(words))
			if err != nil {
				yield(entry.Progress{}, err)
				return
			}
		}
		r.loaded = true
		yield(entry.Progress{Pos: total, Total: total}, nil)
	}
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func compressionOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return compression.Gzip
	case ".dz":
		return compression.DictZip
	}
	return ""
}

func readIdx(path string, offsetBits int) ([]*idx.Word, error) {
	f, err := compression.Open(path, compressionOf(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words, err := idx.ReadAll(f, &idx.Options{OffsetBits: offsetBits})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errdefs.ErrRead, path, err)
	}
	return words, nil
}

func readSyn(path string, wordCount int) (map[uint32][]string, error) {
	f, err := compression.Open(path, compressionOf(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syns, err := syn.ReadAll(f, wordCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errdefs.ErrRead, path, err)
	}
	return syns, nil
}

// Records implements plugin.Reader. Lexical entries come first in index
// order followed by the resource files.
func (r *reader) Records() iter.Seq2[entry.Record, error] {
	return func(yield func(entry.Record, error) bool) {
		for _, err := range r.ReadMetadata() {
			if err != nil {
				yield(nil, err)
				return
			}
		}

		for i, w := range r.words {
			word, err := r.dict.Word(w)
			if err != nil {
				r.logger.Error("could not read word", zap.String("word", w.Word), zap.Error(err))
				continue
			}
			defi, format := r.renderDefinition(word.Data)
			if format == 0 {
				continue
			}

			terms := []string{w.Word}
			terms = append(terms, r.syns[uint32(i)]...) //nolint:gosec // index bounded by wordcount
			for j, t := range terms {
				if terms[j], err = r.decode(t); err != nil {
					yield(nil, fmt.Errorf("%w: word %q: %w", errdefs.ErrRead, w.Word, err))
					return
				}
			}
			if defi, err = r.decode(defi); err != nil {
				yield(nil, fmt.Errorf("%w: definition of %q: %w", errdefs.ErrRead, w.Word, err))
				return
			}

			e, err := r.host.NewEntry(terms, defi, format)
			if err != nil {
				yield(nil, err)
				return
			}
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

// decode applies the unicode_errors policy to s.
func (r *reader) decode(s string) (string, error) {
	if utf8.ValidString(s) {
		return s, nil
	}
	switch r.unicodeErrors {
	case UnicodeReplace:
		return strings.ToValidUTF8(s, "\uFFFD"), nil
	case UnicodeIgnore:
		return strings.ToValidUTF8(s, ""), nil
	}
	return "", errInvalidUTF8
}

type part struct {
	defi   string
	format entry.Format
}

func partFormat(t dict.DataType) entry.Format {
	switch t {
	case dict.UTFTextType, dict.PhoneticType, dict.YinBiaoOrKataType:
		return entry.Plain
	case dict.PangoTextType, dict.HTMLType:
		return entry.HTML
	case dict.XDXFType:
		return entry.XDXF
	}
	return 0
}

// renderDefinition joins the text data of a word into a single definition.
// Parts of different formats are combined as HTML. It returns a zero format
// if the word has no supported data.
func (r *reader) renderDefinition(data []*dict.Data) (string, entry.Format) {
	var parts []part
	var formats []entry.Format
	for _, d := range data {
		f := partFormat(d.Type)
		if f == 0 {
			r.logger.Warn("definition type is not supported", zap.String("type", string(rune(d.Type))))
			continue
		}
		parts = append(parts, part{defi: string(d.Data), format: f})
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}

	switch len(formats) {
	case 0:
		return "", 0
	case 1:
		sep := "\n"
		if formats[0] == entry.HTML {
			sep = "\n<hr>"
		}
		defis := make([]string, len(parts))
		for i, p := range parts {
			defis[i] = p.defi
		}
		return strings.Join(defis, sep), formats[0]
	}

	defis := make([]string, len(parts))
	for i, p := range parts {
		defi := p.defi
		if p.format == entry.Plain {
			defi = "<pre>" + strings.ReplaceAll(defi, "\n", "<br/>") + "</pre>"
		}
		defis[i] = defi
	}
	return strings.Join(defis, "\n<hr>\n"), entry.HTML
}

// Close implements plugin.Reader.
func (r *reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	r.dict = nil
	r.words = nil
	r.syns = nil
	r.loaded = false
	return errors.Join(errs...)
}
