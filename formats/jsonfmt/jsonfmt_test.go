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

package jsonfmt

import (
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/internal/testutil"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		opts     map[string]any
		records  []entry.Record
		expected string
	}{
		{
			name: "entries",
			opts: map[string]any{},
			records: []entry.Record{
				mustEntry(t, "apple", "<b>red</b> \"fruit\""),
				mustEntry(t, "banana", "yellow\nfruit"),
			},
			expected: "{\n" +
				"\t\"##name\": \"Fruits\",\n" +
				"\t\"apple\": \"<b>red</b> \\\"fruit\\\"\",\n" +
				"\t\"banana\": \"yellow\\nfruit\"\n" +
				"}\n",
		},
		{
			name: "word title",
			opts: map[string]any{"enable_info": false, "word_title": true},
			records: []entry.Record{
				mustEntry(t, "a&b", "x"),
			},
			expected: "{\n\t\"a&b\": \"<b>a&amp;b</b><br>x\"\n}\n",
		},
		{
			name:     "empty",
			opts:     map[string]any{"enable_info": false},
			expected: "{}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := testutil.NewHost(t)
			h.SetInfo("name", "Fruits")
			path := filepath.Join(t.TempDir(), "out.json")

			p := Plugin()
			w, err := p.NewWriter(h, p.WriterOptions(tc.opts, h.Logger()))
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if diff := cmp.Diff([]string{"prevent_duplicate_words"}, h.Requested); diff != "" {
				t.Errorf("Requested (-want, +got):\n%s", diff)
			}
			if err := w.Open(path); err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := w.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			for _, r := range tc.records {
				if err := w.Push(r); err != nil {
					t.Fatalf("Push: %v", err)
				}
			}
			if err := w.Finish(); err != nil {
				t.Fatalf("Finish: %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expected, string(got)); diff != "" {
				t.Errorf("output (-want, +got):\n%s", diff)
			}

			var m map[string]string
			if err := gojson.Unmarshal(got, &m); err != nil {
				t.Errorf("output is not valid JSON: %v", err)
			}
		})
	}
}

func TestWriter_resources(t *testing.T) {
	t.Parallel()

	h := testutil.NewHost(t)
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := Plugin().NewWriter(h, Plugin().WriteOptions)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.Push(entry.NewDataEntry("img/a.png", []byte("png"))); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(path+"_res", "img", "a.png"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff("png", string(got)); diff != "" {
		t.Errorf("resource (-want, +got):\n%s", diff)
	}
}

func TestWriter_abort(t *testing.T) {
	t.Parallel()

	h := testutil.NewHost(t)
	dir := t.TempDir()
	w, err := Plugin().NewWriter(h, Plugin().WriteOptions)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Open(filepath.Join(dir, "out.json")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, r := range []entry.Record{
		mustEntry(t, "a", "A"),
		entry.NewDataEntry("img/a.png", []byte("png")),
	} {
		if err := w.Push(r); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("files left after Abort: %v", entries)
	}
}

func TestPlugin(t *testing.T) {
	t.Parallel()

	p := Plugin()
	if p.CanRead() {
		t.Errorf("CanRead: expected false")
	}
	if !p.CanWrite() {
		t.Errorf("CanWrite: expected true")
	}
}

func mustEntry(t *testing.T, term, defi string) *entry.Entry {
	t.Helper()
	e, err := entry.New([]string{term}, defi, entry.HTML)
	if err != nil {
		t.Fatalf("entry.New: %v", err)
	}
	return e
}
