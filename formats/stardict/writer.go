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

package stardict

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/ianlewis/go-dictzip"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/formats/stardict/dict"
	"github.com/ianlewis/go-glossary/formats/stardict/idx"
	"github.com/ianlewis/go-glossary/formats/stardict/ifo"
	"github.com/ianlewis/go-glossary/formats/stardict/syn"
	"github.com/ianlewis/go-glossary/plugin"
	"github.com/ianlewis/go-glossary/sortkey"
)

// infoKeys are glossary info keys copied to the .ifo file.
var infoKeys = []string{"author", "email", "website", "date"}

var (
	pPattern     = regexp.MustCompile(`(?s)<p( [^<>]*?)?>(.*?)</p>`)
	brPattern    = regexp.MustCompile(`(?i)<br[ /]*>`)
	audioPattern = regexp.MustCompile(`<a (type="sound" )?([^<>]*? )?href="sound://([^<>"]+)"( .*?)?>(.*?)</a>`)

	newlinePattern = regexp.MustCompile("\n\r?|\r\n?")

	nulReplacer = strings.NewReplacer("\x00", "")
)

type synonym struct {
	word  *syn.Word
	key   sortkey.Key
	index int
}

type writer struct {
	host   plugin.Host
	logger *zap.Logger

	largeFile        bool
	dictZip          bool
	sametypesequence string
	stardictClient   bool
	audioGoldendict  bool
	audioIcon        bool

	synKey sortkey.KeyFunc

	basePath string
	resDir   string
	// created lists the files and directories created by the writer in
	// creation order.
	created []string

	dictFile *os.File
	idxFile  *os.File
	dict     *dict.Writer
	idx      *idx.Writer

	syns      []*synonym
	wordCount int
	started   bool
	finished  bool
}

func newWriter(h plugin.Host, opts map[string]any) (plugin.Writer, error) {
	seq := plugin.StringOption(opts, "sametypesequence", "")
	switch seq {
	case "", "h", "m", "x":
	default:
		return nil, fmt.Errorf("%w: invalid sametypesequence %q", errdefs.ErrConfiguration, seq)
	}

	// Synonyms are ordered like the index.
	k, err := h.SortKeys().Lookup("stardict")
	if err != nil {
		return nil, err
	}
	keyFunc, err := k.Normal(sortkey.Options{WriteOptions: opts})
	if err != nil {
		return nil, err
	}

	return &writer{
		host:             h,
		logger:           h.Logger().With(zap.String("component", "stardict")),
		largeFile:        plugin.BoolOption(opts, "large_file", false),
		dictZip:          plugin.BoolOption(opts, "dictzip", true),
		sametypesequence: seq,
		stardictClient:   plugin.BoolOption(opts, "stardict_client", false),
		audioGoldendict:  plugin.BoolOption(opts, "audio_goldendict", false),
		audioIcon:        plugin.BoolOption(opts, "audio_icon", true),
		synKey:           keyFunc,
	}, nil
}

// basePath returns the path of the dictionary files without extension.
func basePath(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".ifo") {
		return strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, string(os.PathSeparator)) {
		dir := filepath.Clean(filename)
		return filepath.Join(dir, filepath.Base(dir))
	}
	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		dir := filepath.Clean(filename)
		return filepath.Join(dir, filepath.Base(dir))
	}
	return filename
}

// mkdirAll creates dir and any missing parents. It returns the topmost
// directory it created, or "" if dir already existed.
func mkdirAll(dir string) (string, error) {
	top := ""
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		}
		top = d
		if filepath.Dir(d) == d {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return top, nil
}

// create creates the named file and records it for Abort.
func (w *writer) create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w.created = append(w.created, path)
	return f, nil
}

func (w *writer) Open(filename string) error {
	base := basePath(filename)
	top, err := mkdirAll(filepath.Dir(base))
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	if top != "" {
		w.created = append(w.created, top)
	}
	w.basePath = base
	w.resDir = filepath.Join(filepath.Dir(base), "res")

	if w.sametypesequence != "" {
		w.logger.Debug("using sametypesequence", zap.String("sametypesequence", w.sametypesequence))
		return nil
	}
	stat := w.host.CollectFormat(100)
	w.logger.Debug("definition formats", zap.Any("stat", stat))
	switch {
	case stat[entry.Plain] > 0.97:
		w.logger.Info("auto-selecting sametypesequence=m")
		w.sametypesequence = "m"
	case stat[entry.HTML] > 0.5:
		w.logger.Info("auto-selecting sametypesequence=h")
		w.sametypesequence = "h"
	}
	return nil
}

func (w *writer) Start() error {
	top, err := mkdirAll(w.resDir)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	if top != "" {
		w.created = append(w.created, top)
	}

	w.dictFile, err = w.create(w.basePath + ".dict")
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	w.idxFile, err = w.create(w.basePath + ".idx")
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}

	w.dict, err = dict.NewWriter(w.dictFile, []dict.DataType(w.sametypesequence))
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	bits := 32
	if w.largeFile {
		bits = 64
	}
	w.idx, err = idx.NewWriter(w.idxFile, &idx.Options{OffsetBits: bits})
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	w.started = true
	return nil
}

type saver interface {
	Save(dir string) (string, error)
}

func (w *writer) Push(r entry.Record) error {
	if r.IsData() {
		s, ok := r.(saver)
		if !ok {
			return nil
		}
		if _, err := s.Save(w.resDir); err != nil {
			return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
		}
		return nil
	}

	terms := r.Terms()
	word := nulReplacer.Replace(terms[0])
	if word == "" {
		return nil
	}

	var t dict.DataType
	if w.sametypesequence != "" {
		t = dict.DataType(w.sametypesequence[0])
	} else {
		t = dict.DataType(r.DetectFormat())
	}
	defi := w.fixDefinition(r.Definition(), t)

	offset, size, err := w.dict.Write(&dict.Word{
		Data: []*dict.Data{{Type: t, Data: []byte(defi)}},
	})
	if err != nil {
		return fmt.Errorf("%w: %q: %w", errdefs.ErrWrite, word, err)
	}
	if err := w.idx.Write(&idx.Word{Word: word, Offset: offset, Size: size}); err != nil {
		return fmt.Errorf("%w: %q: %w", errdefs.ErrWrite, word, err)
	}

	for _, alt := range terms[1:] {
		alt = nulReplacer.Replace(alt)
		if alt == "" {
			continue
		}
		w.syns = append(w.syns, &synonym{
			word: &syn.Word{
				Word:              alt,
				OriginalWordIndex: uint32(w.wordCount), //nolint:gosec // wordcount fits in uint32
			},
			key:   w.synKey([]string{alt}),
			index: w.wordCount,
		})
	}
	w.wordCount++
	return nil
}

// fixDefinition adapts a definition for StarDict clients.
func (w *writer) fixDefinition(defi string, t dict.DataType) string {
	if w.stardictClient && t == dict.HTMLType {
		defi = pPattern.ReplaceAllString(defi, "${2}<br>")
		defi = strings.ReplaceAll(defi, "</p>", "<br>")
		defi = brPattern.ReplaceAllString(defi, "<br>")
	}
	if w.audioGoldendict {
		if w.audioIcon {
			defi = audioPattern.ReplaceAllString(defi, `<audio src="${3}">${5}</audio>`)
		} else {
			defi = audioPattern.ReplaceAllString(defi, `<audio src="${3}"></audio>`)
		}
	}
	return nulReplacer.Replace(defi)
}

func (w *writer) Finish() error {
	if w.finished {
		return nil
	}
	w.finished = true
	if !w.started {
		return nil
	}

	var errs []error
	if err := w.dict.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := w.idx.Flush(); err != nil {
		errs = append(errs, err)
	}
	for _, f := range []*os.File{w.dictFile, w.idxFile} {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, errors.Join(errs...))
	}

	if err := w.writeSyn(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	if err := w.writeIfo(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}

	if w.dictZip {
		paths := []string{w.basePath + ".dict"}
		if len(w.syns) > 0 {
			paths = append(paths, w.basePath+".syn")
		}
		for _, path := range paths {
			w.created = append(w.created, path+".dz")
			if err := dictzipFile(path); err != nil {
				return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
			}
		}
	}

	// Fails if the directory is not empty.
	_ = os.Remove(w.resDir)
	return nil
}

// Abort closes the dictionary files and removes the files and directories
// the writer created.
func (w *writer) Abort() error {
	w.finished = true
	for _, f := range []*os.File{w.dictFile, w.idxFile} {
		if f != nil {
			// Already closed if Finish got that far.
			_ = f.Close()
		}
	}

	var errs []error
	for _, path := range slices.Backward(w.created) {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	w.created = nil
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, errors.Join(errs...))
	}
	w.logger.Debug("removed partial output", zap.String("base", w.basePath))
	return nil
}

func (w *writer) writeSyn() error {
	if len(w.syns) == 0 {
		return nil
	}
	slices.SortStableFunc(w.syns, func(a, b *synonym) int {
		if c := sortkey.Compare(a.key, b.key); c != 0 {
			return c
		}
		return a.index - b.index
	})

	f, err := w.create(w.basePath + ".syn")
	if err != nil {
		return err
	}
	defer f.Close()

	sw := syn.NewWriter(f)
	for _, s := range w.syns {
		if err := sw.Write(s.word); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (w *writer) bookname() string {
	name := w.host.Info("name")
	src, err1 := language.Parse(w.host.Info("sourceLang"))
	tgt, err2 := language.Parse(w.host.Info("targetLang"))
	if err1 != nil || err2 != nil || w.host.Info("sourceLang") == "" || w.host.Info("targetLang") == "" {
		return name
	}
	srcBase, _ := src.Base()
	tgtBase, _ := tgt.Base()
	langs := srcBase.String() + "-" + tgtBase.String()
	if strings.Contains(strings.ToLower(name), langs) {
		return name
	}
	return name + " (" + langs + ")"
}

func (w *writer) description() string {
	desc := w.host.Info("description")
	if c := w.host.Info("copyright"); c != "" {
		desc = c + "\n" + desc
	}
	if p := w.host.Info("publisher"); p != "" {
		desc = "Publisher: " + p + "\n" + desc
	}
	return newlinePattern.ReplaceAllString(desc, "<br>")
}

func (w *writer) writeIfo() error {
	info := ifo.NewIfo("3.0.0")
	info.Set("bookname", w.bookname())
	info.Set("wordcount", fmt.Sprint(w.wordCount))
	info.Set("idxfilesize", fmt.Sprint(w.idx.Size()))
	if w.largeFile {
		info.Set("idxoffsetbits", "64")
	}
	if w.sametypesequence != "" {
		info.Set("sametypesequence", w.sametypesequence)
	}
	if len(w.syns) > 0 {
		info.Set("synwordcount", fmt.Sprint(len(w.syns)))
	}
	for _, key := range infoKeys {
		if v := w.host.Info(key); v != "" {
			info.Set(key, v)
		}
	}
	info.Set("description", w.description())

	f, err := w.create(w.basePath + ".ifo")
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := info.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}

// dictzipFile compresses path to path.dz and removes path.
func dictzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".dz")
	if err != nil {
		return err
	}
	defer out.Close()

	z, err := dictzip.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(z, in); err != nil {
		return fmt.Errorf("dictzip %q: %w", path, err)
	}
	if err := z.Close(); err != nil {
		return fmt.Errorf("dictzip %q: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(path)
}
