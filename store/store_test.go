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

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/sortkey"
)

type pair struct {
	Word string
	Defi string
}

func newStore(t *testing.T, backend string, codec *entry.Codec) Store {
	t.Helper()

	switch backend {
	case "memory":
		return NewMemory(codec)
	case "sqlite":
		opts := DefaultSQLiteOptions
		opts.CommitEvery = 2
		opts.Logger = zaptest.NewLogger(t)
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"), codec, opts)
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		return s
	default:
		panic(backend)
	}
}

func lookup(t *testing.T, id string) *sortkey.NamedSortKey {
	t.Helper()
	k, err := sortkey.Default().Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", id, err)
	}
	return k
}

func appendPairs(t *testing.T, s Store, pairs []pair) {
	t.Helper()
	for _, p := range pairs {
		e, err := entry.New([]string{p.Word}, p.Defi, entry.Plain)
		if err != nil {
			t.Fatalf("entry.New: %v", err)
		}
		if err := s.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func collect(t *testing.T, s Store) []pair {
	t.Helper()
	var got []pair
	for r, err := range s.Records() {
		if err != nil {
			t.Fatalf("Records: %v", err)
		}
		got = append(got, pair{Word: r.Headword(), Defi: r.Definition()})
	}
	return got
}

var backends = []string{"memory", "sqlite"}

func TestStore_sortStable(t *testing.T) {
	t.Parallel()

	input := []pair{
		{"b", "B-defi"},
		{"a", "A-defi"},
		{"a", "A-defi-2"},
	}

	tests := []struct {
		name     string
		key      string
		reverse  bool
		compress bool
		expected []pair
	}{
		{
			name: "headword_lower",
			key:  "headword_lower",
			expected: []pair{
				{"a", "A-defi"},
				{"a", "A-defi-2"},
				{"b", "B-defi"},
			},
		},
		{
			name:    "reverse keeps ties in insertion order",
			key:     "headword_lower",
			reverse: true,
			expected: []pair{
				{"b", "B-defi"},
				{"a", "A-defi"},
				{"a", "A-defi-2"},
			},
		},
		{
			name:     "compressed records",
			key:      "stardict",
			compress: true,
			expected: []pair{
				{"a", "A-defi"},
				{"a", "A-defi-2"},
				{"b", "B-defi"},
			},
		},
	}

	for _, backend := range backends {
		for _, test := range tests {
			t.Run(backend+"/"+test.name, func(t *testing.T) {
				t.Parallel()

				s := newStore(t, backend, &entry.Codec{Compress: test.compress})
				defer s.Close()

				if err := s.SetSortKey(lookup(t, test.key), sortkey.Options{}); err != nil {
					t.Fatalf("SetSortKey: %v", err)
				}
				appendPairs(t, s, input)
				if got := s.Len(); got != len(input) {
					t.Errorf("Len: want: %d, got: %d", len(input), got)
				}
				if err := s.Sort(test.reverse); err != nil {
					t.Fatalf("Sort: %v", err)
				}
				if diff := cmp.Diff(test.expected, collect(t, s)); diff != "" {
					t.Errorf("Records (-want, +got):\n%s", diff)
				}
			})
		}
	}
}

func TestStore_backendEquivalence(t *testing.T) {
	t.Parallel()

	var input []pair
	words := []string{"b", "A", "ba", "a", "B", "Ab", "1x", "zz", "Zz", "日本", "éa", "a"}
	for i, w := range words {
		input = append(input, pair{w, fmt.Sprintf("defi %d", i)})
	}

	for _, key := range []string{"headword", "headword_lower", "headword_bytes_lower", "stardict", "ebook", "dicformids", "headword_lower:fr"} {
		for _, reverse := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/reverse=%v", key, reverse), func(t *testing.T) {
				t.Parallel()

				var results [][]pair
				for _, backend := range backends {
					s := newStore(t, backend, &entry.Codec{})
					if err := s.SetSortKey(lookup(t, key), sortkey.Options{}); err != nil {
						t.Fatalf("SetSortKey: %v", err)
					}
					appendPairs(t, s, input)
					if err := s.Sort(reverse); err != nil {
						t.Fatalf("Sort: %v", err)
					}
					results = append(results, collect(t, s))
					if err := s.Close(); err != nil {
						t.Fatalf("Close: %v", err)
					}
				}
				if diff := cmp.Diff(results[0], results[1]); diff != "" {
					t.Errorf("Records (-memory, +sqlite):\n%s", diff)
				}
			})
		}
	}
}

func TestStore_unsorted(t *testing.T) {
	t.Parallel()

	input := []pair{{"c", "1"}, {"a", "2"}, {"b", "3"}}
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, backend, &entry.Codec{})
			defer s.Close()

			if err := s.SetSortKey(lookup(t, ""), sortkey.Options{}); err != nil {
				t.Fatalf("SetSortKey: %v", err)
			}
			appendPairs(t, s, input)
			if diff := cmp.Diff(input, collect(t, s)); diff != "" {
				t.Errorf("Records (-want, +got):\n%s", diff)
			}
			// Iteration can be repeated.
			if diff := cmp.Diff(input, collect(t, s)); diff != "" {
				t.Errorf("Records (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestStore_usageErrors(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, backend, &entry.Codec{})

			if err := s.Sort(false); !errors.Is(err, ErrNoSortKey) {
				t.Errorf("Sort without key: unexpected error: %v", err)
			}
			k := lookup(t, "headword")
			if err := s.SetSortKey(k, sortkey.Options{}); err != nil {
				t.Fatalf("SetSortKey: %v", err)
			}
			if err := s.SetSortKey(k, sortkey.Options{}); !errors.Is(err, ErrSortKeySet) {
				t.Errorf("SetSortKey twice: unexpected error: %v", err)
			}
			if err := s.Sort(false); err != nil {
				t.Fatalf("Sort: %v", err)
			}
			if err := s.Sort(false); !errors.Is(err, ErrSorted) {
				t.Errorf("Sort twice: unexpected error: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			e, _ := entry.New([]string{"x"}, "y", entry.Plain)
			if err := s.Append(e); !errors.Is(err, errdefs.ErrUsage) {
				t.Errorf("Append after Close: unexpected error: %v", err)
			}
			for _, err := range s.Records() {
				if !errors.Is(err, ErrClosed) {
					t.Errorf("Records after Close: unexpected error: %v", err)
				}
			}
		})
	}
}

func TestSQLite_appendBeforeSortKey(t *testing.T) {
	t.Parallel()

	s := newStore(t, "sqlite", &entry.Codec{})
	defer s.Close()

	e, _ := entry.New([]string{"x"}, "y", entry.Plain)
	if err := s.Append(e); !errors.Is(err, errdefs.ErrUsage) {
		t.Fatalf("Append: unexpected error: %v", err)
	}
}

func TestSQLite_reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.db")
	codec := &entry.Codec{}
	opts := DefaultSQLiteOptions
	opts.Persist = true
	opts.Logger = zaptest.NewLogger(t)

	s, err := OpenSQLite(path, codec, opts)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.SetSortKey(lookup(t, "stardict"), sortkey.Options{}); err != nil {
		t.Fatalf("SetSortKey: %v", err)
	}
	appendPairs(t, s, []pair{{"b", "1"}, {"a", "2"}})
	if err := s.Sort(true); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opts.Create = false
	opts.Persist = false
	s, err = OpenSQLite(path, codec, opts)
	if err != nil {
		t.Fatalf("OpenSQLite (reopen): %v", err)
	}
	defer s.Close()

	if diff := cmp.Diff([]string{"headword_lower", "headword"}, s.SortColumns()); diff != "" {
		t.Errorf("SortColumns (-want, +got):\n%s", diff)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len: want: 2, got: %d", got)
	}
	if diff := cmp.Diff([]pair{{"b", "1"}, {"a", "2"}}, collect(t, s)); diff != "" {
		t.Errorf("Records (-want, +got):\n%s", diff)
	}

	if err := s.SetSortKey(lookup(t, "headword"), sortkey.Options{}); !errors.Is(err, ErrSchema) {
		t.Errorf("SetSortKey mismatch: unexpected error: %v", err)
	}
	if err := s.SetSortKey(lookup(t, "stardict"), sortkey.Options{}); err != nil {
		t.Fatalf("SetSortKey: %v", err)
	}
	appendPairs(t, s, []pair{{"c", "3"}})
	if diff := cmp.Diff([]pair{{"c", "3"}, {"b", "1"}, {"a", "2"}}, collect(t, s)); diff != "" {
		t.Errorf("Records (-want, +got):\n%s", diff)
	}
	if err := s.Sort(false); !errors.Is(err, ErrSorted) {
		t.Errorf("Sort: unexpected error: %v", err)
	}
}

func TestSQLite_reopenMissing(t *testing.T) {
	t.Parallel()

	opts := DefaultSQLiteOptions
	opts.Create = false
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db"), &entry.Codec{}, opts)
	if err == nil {
		t.Fatalf("OpenSQLite: expected error")
	}
}

func TestStore_dataEntries(t *testing.T) {
	t.Parallel()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			codec := &entry.Codec{TempDir: t.TempDir()}
			s := newStore(t, backend, codec)
			defer s.Close()

			if err := s.SetSortKey(lookup(t, "headword"), sortkey.Options{}); err != nil {
				t.Fatalf("SetSortKey: %v", err)
			}
			if err := s.Append(entry.NewDataEntry("z.png", []byte("img"))); err != nil {
				t.Fatalf("Append: %v", err)
			}
			appendPairs(t, s, []pair{{"a", "1"}})
			if err := s.Sort(false); err != nil {
				t.Fatalf("Sort: %v", err)
			}

			var names []string
			for r, err := range s.Records() {
				if err != nil {
					t.Fatalf("Records: %v", err)
				}
				names = append(names, fmt.Sprintf("%s:%v", r.Headword(), r.IsData()))
			}
			if diff := cmp.Diff([]string{"a:false", "z.png:true"}, names); diff != "" {
				t.Errorf("Records (-want, +got):\n%s", diff)
			}
		})
	}
}
