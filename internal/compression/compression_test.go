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

package compression

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ianlewis/go-dictzip"

	"github.com/ianlewis/go-glossary/errdefs"
)

const content = "hello\tworld\nfoo\tbar\n"

func readAll(t *testing.T, path, compression string) string {
	t.Helper()

	r, err := Open(path, compression)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(b)
}

func TestCompressFile(t *testing.T) {
	t.Parallel()

	for _, compression := range []string{Gzip, Zstd, LZ4} {
		t.Run(compression, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "out.txt")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			got, err := CompressFile(path, compression)
			if err != nil {
				t.Fatalf("CompressFile: %v", err)
			}
			if diff := cmp.Diff(path+"."+compression, got); diff != "" {
				t.Errorf("CompressFile (-want, +got):\n%s", diff)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("Stat: expected uncompressed file to be removed, got: %v", err)
			}
			if diff := cmp.Diff(content, readAll(t, got, compression)); diff != "" {
				t.Errorf("content (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestCompressFile_unsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for _, test := range []struct {
		name        string
		path        string
		compression string
	}{
		{name: "bzip2", path: path, compression: Bzip2},
		{name: "directory", path: dir, compression: Gzip},
	} {
		if _, err := CompressFile(test.path, test.compression); !errors.Is(err, errdefs.ErrNotSupported) {
			t.Errorf("%s: CompressFile: want: %v, got: %v", test.name, errdefs.ErrNotSupported, err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Stat: expected input to be kept: %v", err)
	}
}

func TestOpen_dictzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.dict.dz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	z, err := dictzip.NewWriter(f)
	if err != nil {
		t.Fatalf("dictzip.NewWriter: %v", err)
	}
	if _, err := z.Write([]byte(content)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if diff := cmp.Diff(content, readAll(t, path, DictZip)); diff != "" {
		t.Errorf("content (-want, +got):\n%s", diff)
	}

	dst := filepath.Join(t.TempDir(), "a.dict")
	if err := DecompressFile(path, dst, DictZip); err != nil {
		t.Fatalf("DecompressFile: %v", err)
	}
	if diff := cmp.Diff(content, readAll(t, dst, "")); diff != "" {
		t.Errorf("content (-want, +got):\n%s", diff)
	}
}

func TestNewReader_errors(t *testing.T) {
	t.Parallel()

	if _, err := NewReader(strings.NewReader("not gzip"), Gzip); !errors.Is(err, errdefs.ErrRead) {
		t.Errorf("NewReader: want: %v, got: %v", errdefs.ErrRead, err)
	}
	if _, err := NewReader(strings.NewReader(""), "zip"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("NewReader: want: %v, got: %v", ErrUnsupported, err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing"), ""); !errors.Is(err, errdefs.ErrRead) {
		t.Errorf("Open: want: %v, got: %v", errdefs.ErrRead, err)
	}
}
