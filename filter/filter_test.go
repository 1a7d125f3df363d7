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

package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ianlewis/go-glossary/entry"
)

type progressCall struct {
	Pos, Total int64
	Unit       string
}

type fakeHost struct {
	t        *testing.T
	info     map[string]string
	n        int
	progress []progressCall
}

func (h *fakeHost) Info(key string) string {
	return h.info[key]
}

func (h *fakeHost) Len() int {
	return h.n
}

func (h *fakeHost) Progress(pos, total int64, unit string) {
	h.progress = append(h.progress, progressCall{pos, total, unit})
}

func (h *fakeHost) Logger() *zap.Logger {
	return zaptest.NewLogger(h.t)
}

func newEntry(t *testing.T, terms []string, defi string) *entry.Entry {
	t.Helper()
	e, err := entry.New(terms, defi, entry.Plain)
	if err != nil {
		t.Fatalf("entry.New: %v", err)
	}
	return e
}

type result struct {
	Terms []string
	Defi  string
}

func run(t *testing.T, c *Chain, r entry.Record) *result {
	t.Helper()
	got, err := c.Run(r)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got == nil {
		return nil
	}
	return &result{Terms: got.Terms(), Defi: got.Definition()}
}

func TestBuild_default(t *testing.T) {
	t.Parallel()

	c, err := Build(&fakeHost{t: t}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	expected := []string{
		"trim_whitespaces",
		"non_empty_word",
		"lang",
		"non_empty_word",
		"non_empty_defi",
		"remove_empty_dup_alt_words",
	}
	if diff := cmp.Diff(expected, c.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}
}

func TestBuild_config(t *testing.T) {
	t.Parallel()

	c, err := Build(&fakeHost{t: t}, map[string]any{
		"lower":          true,
		"rtl":            false,
		"remove_html":    "b, i",
		"skip_resources": "yes", // wrong type, skipped
		"unknown":        true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	expected := []string{
		"trim_whitespaces",
		"non_empty_word",
		"lower",
		"remove_html",
		"lang",
		"non_empty_word",
		"non_empty_defi",
		"remove_empty_dup_alt_words",
	}
	if diff := cmp.Diff(expected, c.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}

	got := run(t, c, newEntry(t, []string{" Foo ", "BAR", "bar"}, ` <b>x</b> <i class="c">y</i> <a href="bword://Baz">Baz</a> `))
	want := &result{
		Terms: []string{"foo", "bar"},
		Defi:  `x y <a href="bword://baz">Baz</a>`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run (-want, +got):\n%s", diff)
	}
}

func TestChain_dataEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   map[string]any
		record   entry.Record
		expected bool
	}{
		{
			name:     "nameless data entry rejected",
			record:   entry.NewDataEntry("", []byte("x")),
			expected: false,
		},
		{
			name:     "named data entry kept",
			record:   entry.NewDataEntry("a.png", []byte("x")),
			expected: true,
		},
		{
			name:     "skip resources",
			config:   map[string]any{"skip_resources": true},
			record:   entry.NewDataEntry("a.png", []byte("x")),
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c, err := Build(&fakeHost{t: t}, test.config)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			got, err := c.Run(test.record)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if (got != nil) != test.expected {
				t.Errorf("Run: want kept: %v, got: %v", test.expected, got)
			}
		})
	}
}

func TestChain_rejects(t *testing.T) {
	t.Parallel()

	c, err := Build(&fakeHost{t: t}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		name  string
		terms []string
		defi  string
	}{
		{name: "blank word", terms: []string{"  "}, defi: "defi"},
		{name: "empty definition", terms: []string{"word"}, defi: " <br> "},
		{name: "blank terms", terms: []string{" ", "\t"}, defi: "defi"},
	}
	for _, test := range tests {
		if got := run(t, c, newEntry(t, test.terms, test.defi)); got != nil {
			t.Errorf("%s: Run: expected skip, got: %+v", test.name, got)
		}
	}
}

func TestChain_deterministic(t *testing.T) {
	t.Parallel()

	config := map[string]any{
		"lower":               true,
		"normalize_html":      true,
		"unescape_word_links": true,
		"remove_html":         []any{"span"},
	}
	input := func() entry.Record {
		return newEntry(t, []string{"Word", "", "Word"}, `<SPAN>a</SPAN><B>b</B> <a href="bword://x&#233;">x</a>`)
	}

	var results []*result
	for range 2 {
		c, err := Build(&fakeHost{t: t}, config)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		results = append(results, run(t, c, input()))
	}
	if diff := cmp.Diff(results[0], results[1]); diff != "" {
		t.Errorf("Run (-first, +second):\n%s", diff)
	}
	want := &result{
		Terms: []string{"word"},
		Defi:  `a<b>b</b> <a href="bword://xé">x</a>`,
	}
	if diff := cmp.Diff(want, results[0]); diff != "" {
		t.Errorf("Run (-want, +got):\n%s", diff)
	}
}

func TestFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filter   func() Filter
		terms    []string
		defi     string
		expected *result
	}{
		{
			name:     "rtl",
			filter:   RTL,
			terms:    []string{"x"},
			defi:     "متن",
			expected: &result{Terms: []string{"x"}, Defi: `<div dir="rtl">متن</div>`},
		},
		{
			name:     "trim arabic diacritics",
			filter:   TrimArabicDiacritics,
			terms:    []string{"\u0623\u064E\u0628"},
			defi:     "d",
			expected: &result{Terms: []string{"\u0627\u0628", "\u0623\u064E\u0628"}, Defi: "d"},
		},
		{
			name:     "trim arabic diacritics unchanged",
			filter:   TrimArabicDiacritics,
			terms:    []string{"ب"},
			defi:     "d",
			expected: &result{Terms: []string{"ب"}, Defi: "d"},
		},
		{
			name:     "utf8 check",
			filter:   UTF8Check,
			terms:    []string{"a\x00b"},
			defi:     "c\xffd",
			expected: &result{Terms: []string{"ab"}, Defi: "c�d"},
		},
		{
			name:     "unescape word links keeps special characters",
			filter:   UnescapeWordLinks,
			terms:    []string{"x"},
			defi:     `<a href="bword://caf&eacute;&amp;co">x</a> &eacute;`,
			expected: &result{Terms: []string{"x"}, Defi: `<a href="bword://café&amp;co">x</a> &eacute;`},
		},
		{
			name:     "normalize html",
			filter:   NormalizeHTML,
			terms:    []string{"x"},
			defi:     `<P CLASS="A">Text</P><BR/><CUSTOM>`,
			expected: &result{Terms: []string{"x"}, Defi: `<p class="a">Text</p><br/><CUSTOM>`},
		},
		{
			name:     "remove html all",
			filter:   RemoveHTMLAll,
			terms:    []string{"x"},
			defi:     "<p>Hello <b>world</b> &amp; you</p>",
			expected: &result{Terms: []string{"x"}, Defi: "Hello world & you"},
		},
		{
			name:     "text list symbol cleanup",
			filter:   TextListSymbolCleanup,
			terms:    []string{"x"},
			defi:     "♦  one \r\n\r\n♦\n\n♦ two,",
			expected: &result{Terms: []string{"x"}, Defi: "♦ one\n♦ two"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got := run(t, NewChain(test.filter()), newEntry(t, test.terms, test.defi))
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Errorf("Run (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestPreventDuplicateWords(t *testing.T) {
	t.Parallel()

	c := NewChain(PreventDuplicateWords())
	var got [][]string
	for _, terms := range [][]string{{"a", "alt"}, {"a"}, {"a (2)"}, {"a"}, {"b"}} {
		got = append(got, run(t, c, newEntry(t, terms, "d")).Terms)
	}
	expected := [][]string{{"a", "alt"}, {"a (2)"}, {"a (2) (2)"}, {"a (3)"}, {"b"}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Terms (-want, +got):\n%s", diff)
	}
}

func TestSkipDuplicateHeadword(t *testing.T) {
	t.Parallel()

	c := NewChain(SkipDuplicateHeadword())
	var kept []string
	for _, w := range []string{"a", "b", "a", "c", "b"} {
		if r := run(t, c, newEntry(t, []string{w}, "d")); r != nil {
			kept = append(kept, r.Terms[0])
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, kept); diff != "" {
		t.Errorf("kept (-want, +got):\n%s", diff)
	}
}

func TestStripFullHTML(t *testing.T) {
	t.Parallel()

	var failed []string
	c := NewChain(StripFullHTML(nil, func(r entry.Record, _ error) {
		failed = append(failed, r.Headword())
	}))

	ok := run(t, c, newEntry(t, []string{"ok"}, "<html><body>hi</body></html>"))
	if diff := cmp.Diff("hi", ok.Defi); diff != "" {
		t.Errorf("Defi (-want, +got):\n%s", diff)
	}
	bad := run(t, c, newEntry(t, []string{"bad"}, "<html><body>hi"))
	if diff := cmp.Diff("<html><body>hi", bad.Defi); diff != "" {
		t.Errorf("Defi (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bad"}, failed); diff != "" {
		t.Errorf("failed (-want, +got):\n%s", diff)
	}
}

func TestLang_persian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		info     map[string]string
		expected string
	}{
		{
			name:     "persian target",
			info:     map[string]string{"targetLang": "Persian"},
			expected: "\u06A9\u06CC",
		},
		{
			name:     "fa code",
			info:     map[string]string{"sourceLang": "fa-IR"},
			expected: "\u06A9\u06CC",
		},
		{
			name:     "other language",
			info:     map[string]string{"sourceLang": "ar"},
			expected: "\u0643\u064A",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			h := &fakeHost{t: t, info: test.info}
			c := NewChain(Lang())
			if err := c.Prepare(h); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			got := run(t, c, newEntry(t, []string{"\u0643\u064A"}, "\u0643\u064A"))
			want := &result{Terms: []string{test.expected}, Defi: test.expected}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Run (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	t.Run("count", func(t *testing.T) {
		t.Parallel()

		h := &fakeHost{t: t, n: 3}
		c := NewChain(Progress(h))
		for range 3 {
			run(t, c, newEntry(t, []string{"w"}, "d"))
		}
		expected := []progressCall{{0, 3, ""}, {1, 3, ""}, {2, 3, ""}}
		if diff := cmp.Diff(expected, h.progress); diff != "" {
			t.Errorf("progress (-want, +got):\n%s", diff)
		}
	})

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()

		h := &fakeHost{t: t}
		c := NewChain(Progress(h))
		for _, pos := range []int64{50_000, 150_000, 200_000, 300_000} {
			e := newEntry(t, []string{"w"}, "d")
			e.SetProgress(pos, 400_000)
			run(t, c, e)
		}
		expected := []progressCall{{150_000, 400_000, "bytes"}, {300_000, 400_000, "bytes"}}
		if diff := cmp.Diff(expected, h.progress); diff != "" {
			t.Errorf("progress (-want, +got):\n%s", diff)
		}
	})
}

func TestChain_Add(t *testing.T) {
	t.Parallel()

	c := NewChain(TrimWhitespaces())
	if !c.Add(PreventDuplicateWords()) {
		t.Errorf("Add: expected filter to be added")
	}
	if c.Add(PreventDuplicateWords()) {
		t.Errorf("Add: expected duplicate filter to be ignored")
	}
	if diff := cmp.Diff([]string{"trim_whitespaces", "prevent_duplicate_words"}, c.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}
}

func TestMaxMemoryUsage(t *testing.T) {
	t.Parallel()

	f, err := MaxMemoryUsage(&fakeHost{t: t})
	if err != nil {
		t.Fatalf("MaxMemoryUsage: %v", err)
	}
	got := run(t, NewChain(f), newEntry(t, []string{"w"}, "d"))
	if got == nil {
		t.Fatalf("Run: unexpected skip")
	}
}

func TestChain_Apply(t *testing.T) {
	t.Parallel()

	records := []entry.Record{
		newEntry(t, []string{"a"}, "1"),
		newEntry(t, []string{" "}, "2"),
		newEntry(t, []string{"b"}, "3"),
	}
	seq := func(yield func(entry.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}

	c := NewChain(TrimWhitespaces(), NonEmptyWord())
	var got []string
	for r, err := range c.Apply(seq) {
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		got = append(got, r.Headword())
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Apply (-want, +got):\n%s", diff)
	}
}
