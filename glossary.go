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

package glossary

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/config"
	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/filter"
	"github.com/ianlewis/go-glossary/formats"
	"github.com/ianlewis/go-glossary/plugin"
	"github.com/ianlewis/go-glossary/sortkey"
	"github.com/ianlewis/go-glossary/store"
)

// spillSize is the size above which data entries are written to the
// temporary directory instead of being held in memory.
const spillSize = 1 << 20

// ProgressFunc receives progress reports. unit is "bytes" for byte offsets
// and empty for record counts.
type ProgressFunc func(pos, total int64, unit string)

// Options configures a [Glossary].
type Options struct {
	// Config is the configuration. Nil means [config.Defaults].
	Config config.Config

	// Logger is the logger. Nil means a no-op logger.
	Logger *zap.Logger

	// Plugins is the format registry. Nil means [formats.Default].
	Plugins *plugin.Registry

	// SortKeys is the sort key registry. Nil means [sortkey.Default].
	SortKeys *sortkey.Registry

	// Progress receives progress reports, if set.
	Progress ProgressFunc

	// DefaultFormat is the definition format of entries that do not set one.
	// The zero value means plain text.
	DefaultFormat entry.Format
}

var (
	_ plugin.Host = (*Glossary)(nil)
	_ filter.Host = (*Glossary)(nil)
)

// Glossary holds the records of one conversion and drives the readers and
// writers. A Glossary is not safe for concurrent use.
type Glossary struct {
	cfg      config.Config
	logger   *zap.Logger
	plugins  *plugin.Registry
	sortKeys *sortkey.Registry
	progress ProgressFunc
	format   entry.Format

	info     map[string]string
	infoKeys []string

	state   State
	history []State

	codec *entry.Codec
	store store.Store

	// direct is set when records stream from the readers to the writer.
	direct  bool
	readers []plugin.Reader
	source  iter.Seq2[entry.Record, error]
	// loading is the reader being loaded into the store.
	loading plugin.Reader

	// writeChain holds opt-in filters requested by the writer.
	writeChain *filter.Chain

	tmpDir  string
	cleanup []string
}

// New returns an empty glossary.
func New(opts Options) *Glossary {
	g := &Glossary{
		cfg:        opts.Config,
		logger:     opts.Logger,
		plugins:    opts.Plugins,
		sortKeys:   opts.SortKeys,
		progress:   opts.Progress,
		format:     opts.DefaultFormat,
		info:       map[string]string{},
		writeChain: filter.NewChain(),
	}
	if g.cfg == nil {
		g.cfg = config.Defaults()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.plugins == nil {
		g.plugins = formats.Default()
	}
	if g.sortKeys == nil {
		g.sortKeys = sortkey.Default()
	}
	if g.format == 0 {
		g.format = entry.Plain
	}
	g.codec = &entry.Codec{
		DefaultFormat: g.format,
		Compress:      g.cfg.Bool("optimize_memory"),
	}
	return g
}

// Config returns the glossary's configuration.
func (g *Glossary) Config() config.Config {
	return g.cfg
}

// Logger implements [plugin.Host] and [filter.Host].
func (g *Glossary) Logger() *zap.Logger {
	return g.logger
}

// Info implements [plugin.Host] and [filter.Host].
func (g *Glossary) Info(key string) string {
	return g.info[key]
}

// SetInfo implements [plugin.Host].
func (g *Glossary) SetInfo(key, value string) {
	if _, ok := g.info[key]; !ok {
		g.infoKeys = append(g.infoKeys, key)
	}
	g.info[key] = value
}

// InfoKeys implements [plugin.Host].
func (g *Glossary) InfoKeys() []string {
	return slices.Clone(g.infoKeys)
}

// DefaultFormat implements [plugin.Host].
func (g *Glossary) DefaultFormat() entry.Format {
	return g.format
}

// AltsEnabled implements [plugin.Host].
func (g *Glossary) AltsEnabled() bool {
	return g.cfg.Bool("enable_alts")
}

// SortKeys implements [plugin.Host].
func (g *Glossary) SortKeys() *sortkey.Registry {
	return g.sortKeys
}

// NewEntry implements [plugin.Host]. A zero format means the default
// format.
func (g *Glossary) NewEntry(terms []string, defi string, format entry.Format) (*entry.Entry, error) {
	if format == 0 {
		format = g.format
	}
	return entry.New(terms, defi, format)
}

// NewDataEntry implements [plugin.Host]. Large data is written to the
// temporary directory.
func (g *Glossary) NewDataEntry(name string, data []byte) (*entry.DataEntry, error) {
	if len(data) < spillSize {
		return entry.NewDataEntry(name, data), nil
	}
	dir, err := g.ensureTempDir()
	if err != nil {
		return nil, err
	}
	return entry.NewTempDataEntry(name, data, filepath.Join(dir, "data", uuid.NewString(), filepath.Base(name)))
}

// TempDir implements [plugin.Host]. The directory is created on first use
// and removed by cleanup.
func (g *Glossary) TempDir() string {
	dir, err := g.ensureTempDir()
	if err != nil {
		g.logger.Error("creating temp dir", zap.Error(err))
		return os.TempDir()
	}
	return dir
}

func (g *Glossary) ensureTempDir() (string, error) {
	if g.tmpDir != "" {
		return g.tmpDir, nil
	}
	parent := g.cfg.String("tmp_dir")
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("%w: %w", errdefs.ErrConfiguration, err)
		}
	}
	dir, err := os.MkdirTemp(parent, "glossary-")
	if err != nil {
		return "", fmt.Errorf("%w: temp dir: %w", errdefs.ErrWrite, err)
	}
	g.tmpDir = dir
	g.codec.TempDir = dir
	g.registerCleanup(dir)
	g.logger.Debug("created temp dir", zap.String("path", dir))
	return dir, nil
}

// RequestFilter implements [plugin.Host].
func (g *Glossary) RequestFilter(name string) error {
	var f filter.Filter
	switch name {
	case "prevent_duplicate_words":
		f = filter.PreventDuplicateWords()
	case "strip_full_html":
		f = filter.StripFullHTML(g.logger, nil)
	case "remove_html_all":
		f = filter.RemoveHTMLAll()
	default:
		return fmt.Errorf("%w: unknown filter %q", errdefs.ErrUsage, name)
	}
	if g.writeChain.Add(f) {
		g.logger.Debug("added filter", zap.String("filter", name))
	}
	return nil
}

// Progress implements [filter.Host].
func (g *Glossary) Progress(pos, total int64, unit string) {
	if g.progress != nil {
		g.progress(pos, total, unit)
	}
}

// Len implements [filter.Host]. It returns the number of records in the
// store, or the readers' record count hint while loading and in direct
// mode.
func (g *Glossary) Len() int {
	if g.loading != nil {
		return g.loading.Len()
	}
	if g.direct {
		n := 0
		for _, r := range g.readers {
			n += r.Len()
		}
		return n
	}
	if g.store == nil {
		return 0
	}
	return g.store.Len()
}

// CollectFormat implements [plugin.Host]. It returns nil in direct mode.
func (g *Glossary) CollectFormat(limit int) map[entry.Format]float64 {
	if g.direct || g.store == nil {
		return nil
	}
	counts := map[entry.Format]int{}
	total := 0
	for r, err := range g.store.Records() {
		if err != nil {
			g.logger.Warn("collecting definition formats", zap.Error(err))
			break
		}
		if r.IsData() {
			continue
		}
		counts[r.DetectFormat()]++
		total++
		if total >= limit {
			break
		}
	}
	if total == 0 {
		return nil
	}
	out := make(map[entry.Format]float64, len(counts))
	for f, n := range counts {
		out[f] = float64(n) / float64(total)
	}
	return out
}

// AddEntry appends a record to the glossary's store.
func (g *Glossary) AddEntry(r entry.Record) error {
	if g.direct {
		return fmt.Errorf("%w: adding entries in direct mode", errdefs.ErrUsage)
	}
	if g.store == nil {
		if _, err := g.ensureTempDir(); err != nil {
			return err
		}
		g.store = store.NewMemory(g.codec)
	}
	return g.store.Append(r)
}

// Records returns the glossary's records. In direct mode the sequence reads
// from the open readers and may only be iterated once.
func (g *Glossary) Records() iter.Seq2[entry.Record, error] {
	if g.direct {
		if g.source == nil {
			return func(func(entry.Record, error) bool) {}
		}
		src := g.source
		g.source = nil
		return src
	}
	if g.store == nil {
		return func(func(entry.Record, error) bool) {}
	}
	return g.store.Records()
}

func (g *Glossary) registerCleanup(path string) {
	g.cleanup = append(g.cleanup, path)
}

// Close closes the readers and the store and removes temporary files unless
// cleanup is disabled. Closing a closed glossary is a no-op.
func (g *Glossary) Close() error {
	var errs []error
	for i := len(g.readers) - 1; i >= 0; i-- {
		if err := g.readers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	g.readers = nil
	g.source = nil

	if g.store != nil {
		if err := g.store.Close(); err != nil {
			errs = append(errs, err)
		}
		g.store = nil
	}

	if !g.cfg.Bool("cleanup") {
		if len(g.cleanup) > 0 {
			g.logger.Info("keeping temporary files", zap.Strings("paths", g.cleanup))
		}
		g.cleanup = nil
		return errors.Join(errs...)
	}
	for _, p := range slices.Backward(g.cleanup) {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: cleanup: %w", errdefs.ErrWrite, err))
			continue
		}
		g.logger.Debug("removed", zap.String("path", p))
	}
	g.cleanup = nil
	g.tmpDir = ""
	g.codec.TempDir = ""
	return errors.Join(errs...)
}
