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
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/filter"
	"github.com/ianlewis/go-glossary/internal/compression"
	"github.com/ianlewis/go-glossary/plugin"
	"github.com/ianlewis/go-glossary/sortkey"
	"github.com/ianlewis/go-glossary/store"
)

// ConvertArgs are the arguments of [Glossary.Convert].
type ConvertArgs struct {
	// InputFilename is the file to read.
	InputFilename string

	// InputFormat is the input format name. It is detected if empty.
	InputFormat string

	// OutputFilename is the file to write. It is derived from the input
	// filename if empty, in which case OutputFormat is required. A
	// compression suffix such as ".gz" compresses the output.
	OutputFilename string

	// OutputFormat is the output format name. It is detected if empty.
	OutputFormat string

	// Direct streams records from the reader to the writer without loading
	// them. Nil means direct unless the output is sorted.
	Direct *bool

	// Sort is the user's sort preference. Nil leaves it to the output
	// format.
	Sort *bool

	// SQLite loads records into an on-disk store for sorting. Nil means the
	// auto_sqlite config value.
	SQLite *bool

	// SortKeyName is "name" or "name:locale". Empty means the writer's key
	// or the default key.
	SortKeyName string

	// SortEncoding is the encoding of sort keys. Empty means the writer's
	// encoding or utf-8.
	SortEncoding string

	ReadOptions  map[string]any
	WriteOptions map[string]any

	// Reverse sorts in descending order. It is ignored for formats that
	// require their own sort key.
	Reverse bool

	// InfoOverride sets glossary info values after reading metadata.
	InfoOverride map[string]string
}

func (a *ConvertArgs) validate() error {
	if a.InputFilename == "" {
		return fmt.Errorf("%w: no input filename", errdefs.ErrConfiguration)
	}
	if a.OutputFilename != "" && samePath(a.InputFilename, a.OutputFilename) {
		return fmt.Errorf("%w: input and output are the same file %q", errdefs.ErrConfiguration, a.InputFilename)
	}
	if a.Direct != nil && *a.Direct && a.SQLite != nil && *a.SQLite {
		return fmt.Errorf("%w: direct and sqlite modes are mutually exclusive", errdefs.ErrConfiguration)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// ReadOptions configures [Glossary.Read].
type ReadOptions struct {
	// Format is the input format name. It is detected if empty.
	Format string

	// Direct keeps the reader open and streams its records to the next
	// Write instead of loading them.
	Direct bool

	// Options are the reader's options.
	Options map[string]any

	// Info sets glossary info values after the reader's metadata is read.
	Info map[string]string
}

// WriteOptions configures [Glossary.Write].
type WriteOptions struct {
	// Format is the output format name. It is detected from the filename
	// if empty.
	Format string

	// Sort sorts the store before writing. A sort key must be set.
	Sort bool

	// Reverse sorts in descending order. It is ignored for formats that
	// require their own sort key.
	Reverse bool

	// Options are the writer's options.
	Options map[string]any
}

// Convert reads args.InputFilename and writes it to the output file in the
// output format. It returns the name of the written file. On failure the
// partial output and temporary files are removed. A glossary can be used
// for one conversion only.
func (g *Glossary) Convert(ctx context.Context, args ConvertArgs) (string, error) {
	if g.state != Idle {
		return "", fmt.Errorf("%w: glossary already used", errdefs.ErrUsage)
	}
	if err := args.validate(); err != nil {
		g.setState(Error)
		return "", err
	}

	out, err := g.plugins.DetectOutput(args.OutputFilename, args.OutputFormat, args.InputFilename)
	if err != nil {
		g.setState(Error)
		return "", err
	}
	if err := checkOutput(args.InputFilename, out); err != nil {
		g.setState(Error)
		return "", err
	}

	outExisted := exists(out.Filename)
	filename, err := g.convert(ctx, args, out)
	if err != nil {
		g.fail(out.Filename, outExisted)
		return "", err
	}
	if err := g.Close(); err != nil {
		g.setState(Error)
		return "", err
	}
	g.setState(Done)
	g.logger.Info("converted",
		zap.String("input", args.InputFilename),
		zap.String("output", filename),
	)
	return filename, nil
}

func checkOutput(input string, out *plugin.Output) error {
	if samePath(input, out.Filename) {
		return fmt.Errorf("%w: input and output are the same file %q", errdefs.ErrConfiguration, input)
	}
	if out.Compression != "" && !out.Plugin.SingleFile {
		return fmt.Errorf("%w: compressing %s output", errdefs.ErrNotSupported, out.Plugin.Name)
	}
	if entries, err := os.ReadDir(out.Filename); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: output directory %q is not empty", errdefs.ErrConfiguration, out.Filename)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (g *Glossary) convert(ctx context.Context, args ConvertArgs, out *plugin.Output) (string, error) {
	p := out.Plugin
	sort := g.resolveSortFlag(p, args.Sort)

	direct := !sort
	switch {
	case sort && args.Direct != nil && *args.Direct:
		g.logger.Warn("direct mode disabled, output is sorted", zap.String("format", p.Name))
	case !sort && args.Direct != nil:
		direct = *args.Direct
	}

	if _, err := g.ensureTempDir(); err != nil {
		return "", err
	}

	useSQLite := sort && g.cfg.Bool("auto_sqlite")
	if args.SQLite != nil {
		useSQLite = *args.SQLite
		if useSQLite && !sort {
			g.logger.Warn("sqlite mode ignored, output is not sorted")
			useSQLite = false
		}
	}

	if sort {
		k, encoding := g.resolveSortKey(p, args.SortKeyName, args.SortEncoding)
		if useSQLite {
			if err := g.switchToSQLite(out.Filename); err != nil {
				return "", err
			}
		}
		keyOpts := sortkey.Options{
			Encoding:     encoding,
			WriteOptions: p.WriterOptions(args.WriteOptions, zap.NewNop()),
		}
		if err := g.SetSortKey(k, keyOpts); err != nil {
			return "", err
		}
		g.logger.Info("sorting",
			zap.String("sortKey", k.Name),
			zap.String("encoding", encoding),
			zap.Bool("sqlite", useSQLite),
		)
	}

	g.setState(Reading)
	err := g.read(ctx, args.InputFilename, ReadOptions{
		Format:  args.InputFormat,
		Direct:  direct,
		Options: args.ReadOptions,
		Info:    args.InfoOverride,
	})
	if err != nil {
		return "", err
	}

	filename, err := g.write(ctx, out.Filename, p, WriteOptions{
		Sort:    sort,
		Reverse: args.Reverse,
		Options: args.WriteOptions,
	})
	if err != nil {
		return "", err
	}

	if out.Compression != "" {
		filename, err = compression.CompressFile(filename, out.Compression)
		if err != nil {
			return "", err
		}
	}
	return filename, nil
}

// fail removes partial output, closes the glossary and sets the Error
// state. Errors are logged since the conversion error is returned.
func (g *Glossary) fail(output string, existed bool) {
	if err := g.Close(); err != nil {
		g.logger.Error("cleanup failed", zap.Error(err))
	}
	if output != "" && !existed {
		if err := os.RemoveAll(output); err != nil {
			g.logger.Error("removing partial output", zap.String("path", output), zap.Error(err))
		} else {
			g.logger.Debug("removed partial output", zap.String("path", output))
		}
	}
	g.setState(Error)
}

// resolveSortFlag reconciles the writer's sort requirement with the user's
// preference.
func (g *Glossary) resolveSortFlag(p *plugin.Plugin, user *bool) bool {
	switch p.SortOnWrite {
	case plugin.SortAlways:
		if user != nil && !*user {
			g.logger.Warn("output is always sorted, ignoring sort=false", zap.String("format", p.Name))
		}
		return true
	case plugin.SortNever:
		if user != nil && *user {
			g.logger.Warn("output can not be sorted, ignoring sort=true", zap.String("format", p.Name))
		}
		return false
	case plugin.SortDefaultYes:
		return user == nil || *user
	default:
		return user != nil && *user
	}
}

// resolveReverse reports whether to sort in descending order. Writers that
// mandate a sort key rely on ascending order.
func (g *Glossary) resolveReverse(p *plugin.Plugin, user bool) bool {
	if user && p.SortOnWrite == plugin.SortAlways && p.SortKeyName != "" {
		g.logger.Warn("output format requires ascending order, ignoring reverse",
			zap.String("format", p.Name),
			zap.String("sortKey", p.SortKeyName),
		)
		return false
	}
	return user
}

// resolveSortKey returns the sort key and sort encoding for the output. A
// key mandated by the writer overrides the user's key. The user's locale is
// kept if the mandated key supports locales. An unknown key falls back to
// the default key.
func (g *Glossary) resolveSortKey(p *plugin.Plugin, id, encoding string) (*sortkey.NamedSortKey, string) {
	name, locale, _ := strings.Cut(id, ":")

	if p.SortOnWrite == plugin.SortAlways && p.SortKeyName != "" {
		if name != "" && name != p.SortKeyName {
			g.logger.Warn("output format requires its own sort key, ignoring user sort key",
				zap.String("format", p.Name),
				zap.String("sortKey", name),
				zap.String("required", p.SortKeyName),
			)
		}
		name = p.SortKeyName
		if locale != "" {
			if k, err := g.sortKeys.Lookup(name); err == nil && !k.SupportsLocale() {
				g.logger.Warn("sort key does not support locales, ignoring locale",
					zap.String("sortKey", name),
					zap.String("locale", locale),
				)
				locale = ""
			}
		}
		if p.SortEncoding != "" {
			if encoding != "" && !strings.EqualFold(encoding, p.SortEncoding) {
				g.logger.Warn("output format requires its own sort encoding, ignoring user encoding",
					zap.String("encoding", encoding),
					zap.String("required", p.SortEncoding),
				)
			}
			encoding = p.SortEncoding
		}
	} else if name == "" {
		name = p.SortKeyName
	}
	if encoding == "" {
		encoding = p.SortEncoding
	}
	if encoding == "" {
		encoding = "utf-8"
	}

	id = name
	if locale != "" {
		id += ":" + locale
	}
	k, err := g.sortKeys.Lookup(id)
	if err != nil {
		k = g.sortKeys.DefaultKey()
		g.logger.Warn("invalid sort key, using default",
			zap.String("sortKey", id),
			zap.String("default", k.Name),
			zap.Error(err),
		)
	}
	return k, encoding
}

// switchToSQLite replaces the in-memory store with an SQLite store in the
// temporary directory. Alternates are always enabled in SQLite mode.
func (g *Glossary) switchToSQLite(output string) error {
	if g.store != nil && g.store.Len() > 0 {
		return fmt.Errorf("%w: switching to sqlite with loaded records", errdefs.ErrUsage)
	}
	if !g.AltsEnabled() {
		g.logger.Info("enabling alternates in sqlite mode")
		g.cfg = g.cfg.Merge(map[string]any{"enable_alts": true})
	}

	dir, err := g.ensureTempDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, filepath.Base(filepath.Clean(output))+".db")
	s, err := store.OpenSQLite(path, g.codec, store.SQLiteOptions{
		Create:      true,
		Persist:     !g.cfg.Bool("cleanup"),
		CommitEvery: store.DefaultSQLiteOptions.CommitEvery,
		Logger:      g.logger.With(zap.String("component", "store")),
	})
	if err != nil {
		return err
	}
	if g.store != nil {
		_ = g.store.Close()
	}
	g.store = s
	g.logger.Info("using sqlite store", zap.String("path", path))
	return nil
}

// SetSortKey sets the sort key of the glossary's store. It must be called
// before records are loaded.
func (g *Glossary) SetSortKey(k *sortkey.NamedSortKey, opts sortkey.Options) error {
	if g.direct {
		return fmt.Errorf("%w: sorting in direct mode", errdefs.ErrUsage)
	}
	if g.store == nil {
		if _, err := g.ensureTempDir(); err != nil {
			return err
		}
		g.store = store.NewMemory(g.codec)
	}
	return g.store.SetSortKey(k, opts)
}

// Read reads filename into the glossary. In direct mode the reader stays
// open until the next Write or Close.
func (g *Glossary) Read(ctx context.Context, filename string, opts ReadOptions) error {
	g.setState(Reading)
	if err := g.read(ctx, filename, opts); err != nil {
		g.setState(Error)
		return err
	}
	return nil
}

func (g *Glossary) read(ctx context.Context, filename string, opts ReadOptions) error {
	if opts.Direct && g.store != nil {
		return fmt.Errorf("%w: direct mode with loaded records", errdefs.ErrUsage)
	}
	in, err := g.plugins.DetectInput(filename, opts.Format)
	if err != nil {
		return err
	}
	dir, err := g.ensureTempDir()
	if err != nil {
		return err
	}

	path := in.Filename
	if in.Compression != "" && !slices.Contains(in.Plugin.ReadCompressions, in.Compression) {
		main, _, _ := plugin.SplitFilenameExt(in.Filename)
		path = filepath.Join(dir, filepath.Base(main))
		g.logger.Info("decompressing input",
			zap.String("input", in.Filename),
			zap.String("compression", in.Compression),
		)
		if err := compression.DecompressFile(in.Filename, path, in.Compression); err != nil {
			return err
		}
	}

	g.direct = opts.Direct
	if !g.direct && g.store == nil {
		g.store = store.NewMemory(g.codec)
	}

	chain, err := g.readChain()
	if err != nil {
		return err
	}

	r, err := in.Plugin.NewReader(g, in.Plugin.ReaderOptions(opts.Options, g.logger))
	if err != nil {
		return err
	}
	if err := r.Open(path); err != nil {
		return err
	}
	g.logger.Info("reading",
		zap.String("input", in.Filename),
		zap.String("format", in.Plugin.Name),
		zap.Bool("direct", g.direct),
	)
	if err := g.readMetadata(r); err != nil {
		return errors.Join(err, r.Close())
	}
	for k, v := range opts.Info {
		g.SetInfo(k, v)
	}

	g.loading = r
	defer func() { g.loading = nil }()

	if err := chain.Prepare(g); err != nil {
		return errors.Join(err, r.Close())
	}

	if g.direct {
		g.readers = append(g.readers, r)
		g.source = concat(g.source, chain.Apply(r.Records()))
		return nil
	}

	for rec, err := range chain.Apply(r.Records()) {
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = g.store.Append(rec)
		}
		if err != nil {
			return errors.Join(err, r.Close())
		}
	}
	if err := r.Close(); err != nil {
		return err
	}
	g.logger.Info("loaded records", zap.Int("count", g.store.Len()))
	return nil
}

func (g *Glossary) readChain() (*filter.Chain, error) {
	chain, err := filter.Build(g, g.cfg.Filters())
	if err != nil {
		return nil, err
	}
	if g.progress != nil {
		chain.Add(filter.Progress(g))
	}
	if g.cfg.Bool("max_memory_usage") {
		f, err := filter.MaxMemoryUsage(g)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}
	g.logger.Debug("filters", zap.Strings("names", chain.Names()))
	return chain, nil
}

func (g *Glossary) readMetadata(r plugin.Reader) error {
	mr, ok := r.(plugin.MetadataReader)
	if !ok {
		return nil
	}
	for p, err := range mr.ReadMetadata() {
		if err != nil {
			return err
		}
		g.Progress(p.Pos, p.Total, "bytes")
	}
	return nil
}

// concat returns the records of a followed by those of b. a may be nil.
func concat(a, b iter.Seq2[entry.Record, error]) iter.Seq2[entry.Record, error] {
	if a == nil {
		return b
	}
	return func(yield func(entry.Record, error) bool) {
		for r, err := range a {
			if !yield(r, err) || err != nil {
				return
			}
		}
		for r, err := range b {
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// Write writes the glossary's records to filename. It returns the name of
// the written file.
func (g *Glossary) Write(ctx context.Context, filename string, opts WriteOptions) (string, error) {
	var (
		p   *plugin.Plugin
		err error
	)
	if opts.Format != "" {
		p, err = g.plugins.ByName(opts.Format)
	} else {
		var out *plugin.Output
		out, err = g.plugins.DetectOutput(filename, "", "")
		if err == nil {
			p, filename = out.Plugin, out.Filename
		}
	}
	if err == nil && !p.CanWrite() {
		err = fmt.Errorf("%w: writing %s", errdefs.ErrNotSupported, p.Name)
	}
	if err == nil {
		filename, err = g.write(ctx, filename, p, opts)
	}
	if err != nil {
		g.setState(Error)
		return "", err
	}
	return filename, nil
}

func (g *Glossary) write(ctx context.Context, filename string, p *plugin.Plugin, opts WriteOptions) (string, error) {
	w, err := p.NewWriter(g, p.WriterOptions(opts.Options, g.logger))
	if err != nil {
		return "", err
	}

	if opts.Sort {
		if g.direct || g.store == nil {
			return "", fmt.Errorf("%w: nothing to sort", errdefs.ErrUsage)
		}
		g.setState(Sorting)
		if err := g.store.Sort(g.resolveReverse(p, opts.Reverse)); err != nil {
			return "", err
		}
	}

	g.setState(Writing)
	if err := w.Open(filename); err != nil {
		return "", errors.Join(err, w.Abort())
	}
	g.logger.Info("writing",
		zap.String("output", filename),
		zap.String("format", p.Name),
	)

	c := newConsumer(w)
	if err := c.start(); err != nil {
		return "", errors.Join(err, c.abort())
	}

	seq := g.Records()
	if g.writeChain.Len() > 0 {
		seq = g.writeChain.Apply(seq)
	}

	// Direct mode reports progress from the read chain.
	total := 0
	if !g.direct {
		total = g.Len()
	}
	step := max(1, min(500, total/200))

	count := 0
	for r, err := range seq {
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = c.push(r)
		}
		if err != nil {
			return "", errors.Join(err, c.abort())
		}
		count++
		if total > 1 && count%step == 0 {
			g.Progress(int64(count), int64(total), "")
		}
	}
	if err := c.finish(); err != nil {
		return "", errors.Join(err, c.abort())
	}
	if total > 1 {
		g.Progress(int64(total), int64(total), "")
	}
	g.logger.Info("wrote records", zap.Int("count", count))
	return filename, nil
}
