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

// Package compression reads and writes compressed glossary files.
package compression

import (
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ianlewis/go-dictzip"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ianlewis/go-glossary/errdefs"
)

// Supported compressions.
const (
	Gzip    = "gz"
	Bzip2   = "bz2"
	Zstd    = "zst"
	LZ4     = "lz4"
	DictZip = "dz"
)

// ErrUnsupported indicates an unsupported compression.
var ErrUnsupported = fmt.Errorf("%w: compression", errdefs.ErrNotSupported)

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nopClose() error {
	return nil
}

// NewReader returns a reader that decompresses r. The returned reader does
// not close r. dictzip data is read as gzip.
func NewReader(r io.Reader, compression string) (io.ReadCloser, error) {
	switch compression {
	case "":
		return io.NopCloser(r), nil
	case Gzip, DictZip:
		z, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", errdefs.ErrRead, err)
		}
		return z, nil
	case Zstd:
		z, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", errdefs.ErrRead, err)
		}
		return z.IOReadCloser(), nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(r), closers: []func() error{nopClose}}, nil
	case Bzip2:
		return &readCloser{Reader: bzip2.NewReader(r), closers: []func() error{nopClose}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, compression)
}

// Open opens a file for reading and decompresses it. dictzip files are read
// with random access support.
func Open(path, compression string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrRead, err)
	}

	if compression == DictZip {
		z, err := dictzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: dictzip: %w", errdefs.ErrRead, err)
		}
		return &readCloser{Reader: z, closers: []func() error{z.Close, f.Close}}, nil
	}

	r, err := NewReader(f, compression)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readCloser{Reader: r, closers: []func() error{r.Close, f.Close}}, nil
}

// NewWriter returns a writer that compresses to w. Closing the returned
// writer flushes it but does not close w.
func NewWriter(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		z, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", errdefs.ErrWrite, err)
		}
		return z, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("%w: writing %q", ErrUnsupported, compression)
}

// DecompressFile decompresses src into dst.
func DecompressFile(src, dst, compression string) error {
	r, err := Open(src, compression)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	//nolint:gosec // input files are trusted
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("%w: decompressing %q: %w", errdefs.ErrRead, src, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return nil
}

// CompressFile compresses the file at path to path with the compression's
// suffix and removes path. It returns the new filename.
func CompressFile(path, compression string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: compressing directory %q", ErrUnsupported, path)
	}

	dst := path + "." + compression
	if err := compressFile(path, dst, compression); err != nil {
		os.Remove(dst)
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return dst, nil
}

func compressFile(src, dst, compression string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	defer out.Close()

	w, err := NewWriter(out, compression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("%w: compressing %q: %w", errdefs.ErrWrite, src, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrWrite, err)
	}
	return nil
}
