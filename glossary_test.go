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
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
	"github.com/ianlewis/go-glossary/sortkey"
)

func TestResolveSortFlag(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		flag     plugin.SortFlag
		user     *bool
		expected bool
	}{
		{name: "always unset", flag: plugin.SortAlways, expected: true},
		{name: "always false", flag: plugin.SortAlways, user: boolPtr(false), expected: true},
		{name: "never true", flag: plugin.SortNever, user: boolPtr(true), expected: false},
		{name: "never unset", flag: plugin.SortNever, expected: false},
		{name: "default yes unset", flag: plugin.SortDefaultYes, expected: true},
		{name: "default yes false", flag: plugin.SortDefaultYes, user: boolPtr(false), expected: false},
		{name: "default no unset", flag: plugin.SortDefaultNo, expected: false},
		{name: "default no true", flag: plugin.SortDefaultNo, user: boolPtr(true), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := newGlossary(t, nil)
			got := g.resolveSortFlag(&plugin.Plugin{Name: "Test", SortOnWrite: tc.flag}, tc.user)
			if got != tc.expected {
				t.Errorf("resolveSortFlag: got %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestResolveReverse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		plugin   *plugin.Plugin
		user     bool
		expected bool
	}{
		{
			name:     "plain",
			plugin:   &plugin.Plugin{Name: "Plain"},
			user:     true,
			expected: true,
		},
		{
			name:     "always without key",
			plugin:   &plugin.Plugin{Name: "Always", SortOnWrite: plugin.SortAlways},
			user:     true,
			expected: true,
		},
		{
			name:     "preferred key",
			plugin:   &plugin.Plugin{Name: "Preferred", SortOnWrite: plugin.SortDefaultYes, SortKeyName: "ebook"},
			user:     true,
			expected: true,
		},
		{
			name:     "mandated key",
			plugin:   &plugin.Plugin{Name: "Mandated", SortOnWrite: plugin.SortAlways, SortKeyName: "stardict"},
			user:     true,
			expected: false,
		},
		{
			name:     "mandated key unset",
			plugin:   &plugin.Plugin{Name: "Mandated", SortOnWrite: plugin.SortAlways, SortKeyName: "stardict"},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := newGlossary(t, nil)
			if got := g.resolveReverse(tc.plugin, tc.user); got != tc.expected {
				t.Errorf("resolveReverse: got %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestResolveSortKey(t *testing.T) {
	t.Parallel()

	mandated := &plugin.Plugin{
		Name:         "Mandated",
		SortOnWrite:  plugin.SortAlways,
		SortKeyName:  "stardict",
		SortEncoding: "utf-8",
	}
	mandatedLocale := &plugin.Plugin{
		Name:        "MandatedLocale",
		SortOnWrite: plugin.SortAlways,
		SortKeyName: "headword",
	}
	preferred := &plugin.Plugin{
		Name:        "Preferred",
		SortOnWrite: plugin.SortDefaultYes,
		SortKeyName: "ebook",
	}
	plain := &plugin.Plugin{Name: "Plain"}

	testCases := []struct {
		name     string
		plugin   *plugin.Plugin
		id       string
		encoding string
		key      string
		encOut   string
	}{
		{name: "default", plugin: plain, key: "headword_lower", encOut: "utf-8"},
		{name: "user key", plugin: plain, id: "dicformids", encoding: "utf-16", key: "dicformids", encOut: "utf-16"},
		{name: "user locale", plugin: plain, id: "headword:fr", key: "headword:fr", encOut: "utf-8"},
		{name: "default key with locale", plugin: plain, id: ":de", key: "headword_lower:de", encOut: "utf-8"},
		{name: "unknown key", plugin: plain, id: "nope", key: "headword_lower", encOut: "utf-8"},
		{name: "unsupported locale", plugin: plain, id: "stardict:fr", key: "headword_lower", encOut: "utf-8"},
		{name: "writer key", plugin: preferred, key: "ebook", encOut: "utf-8"},
		{name: "writer key user override", plugin: preferred, id: "headword", key: "headword", encOut: "utf-8"},
		{name: "mandated", plugin: mandated, id: "headword", key: "stardict", encOut: "utf-8"},
		{name: "mandated encoding", plugin: mandated, encoding: "utf-16", key: "stardict", encOut: "utf-8"},
		{name: "mandated drops locale", plugin: mandated, id: "headword:fr", key: "stardict", encOut: "utf-8"},
		{name: "mandated keeps locale", plugin: mandatedLocale, id: "headword_lower:fr", key: "headword:fr", encOut: "utf-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := newGlossary(t, nil)
			k, enc := g.resolveSortKey(tc.plugin, tc.id, tc.encoding)
			if got, want := k.Name, tc.key; got != want {
				t.Errorf("key: got %q, want %q", got, want)
			}
			if got, want := enc, tc.encOut; got != want {
				t.Errorf("encoding: got %q, want %q", got, want)
			}
		})
	}
}

func TestGlossary_info(t *testing.T) {
	t.Parallel()

	g := newGlossary(t, nil)
	g.SetInfo("name", "A")
	g.SetInfo("sourceLang", "en")
	g.SetInfo("name", "B")

	if diff := cmp.Diff([]string{"name", "sourceLang"}, g.InfoKeys()); diff != "" {
		t.Errorf("InfoKeys (-want, +got):\n%s", diff)
	}
	if got, want := g.Info("name"), "B"; got != want {
		t.Errorf("Info: got %q, want %q", got, want)
	}
}

func TestGlossary_NewEntry(t *testing.T) {
	t.Parallel()

	g := New(Options{DefaultFormat: entry.HTML})
	e, err := g.NewEntry([]string{"a"}, "b", 0)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if got, want := e.Format(), entry.HTML; got != want {
		t.Errorf("Format: got %v, want %v", got, want)
	}
}

func TestGlossary_NewDataEntry(t *testing.T) {
	t.Parallel()

	g := newGlossary(t, nil)
	defer g.Close()

	small, err := g.NewDataEntry("small.png", []byte("x"))
	if err != nil {
		t.Fatalf("NewDataEntry: %v", err)
	}
	if small.TempPath() != "" {
		t.Errorf("small entry spilled to %q", small.TempPath())
	}

	big, err := g.NewDataEntry("big.wav", make([]byte, spillSize))
	if err != nil {
		t.Fatalf("NewDataEntry: %v", err)
	}
	if !strings.HasPrefix(big.TempPath(), g.TempDir()) {
		t.Errorf("TempPath: got %q, want under %q", big.TempPath(), g.TempDir())
	}
	dir := g.TempDir()
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp dir not removed: %v", err)
	}
}

func TestGlossary_CollectFormat(t *testing.T) {
	t.Parallel()

	g := newGlossary(t, nil)
	defer g.Close()

	if got := g.CollectFormat(10); got != nil {
		t.Errorf("CollectFormat: got %v, want nil", got)
	}

	for _, defi := range []string{"<b>a</b>", "b", "c", "d"} {
		e, err := g.NewEntry([]string{defi}, defi, 0)
		if err != nil {
			t.Fatalf("NewEntry: %v", err)
		}
		if err := g.AddEntry(e); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}
	if err := g.AddEntry(entry.NewDataEntry("a.png", []byte("x"))); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	want := map[entry.Format]float64{entry.HTML: 0.25, entry.Plain: 0.75}
	if diff := cmp.Diff(want, g.CollectFormat(10)); diff != "" {
		t.Errorf("CollectFormat (-want, +got):\n%s", diff)
	}
	want = map[entry.Format]float64{entry.HTML: 0.5, entry.Plain: 0.5}
	if diff := cmp.Diff(want, g.CollectFormat(2)); diff != "" {
		t.Errorf("CollectFormat (-want, +got):\n%s", diff)
	}
	if got, want := g.Len(), 5; got != want {
		t.Errorf("Len: got %d, want %d", got, want)
	}
}

func TestGlossary_SortKeys(t *testing.T) {
	t.Parallel()

	if got := New(Options{}).SortKeys(); got != sortkey.Default() {
		t.Errorf("SortKeys: got %p, want the default registry", got)
	}

	keys, err := sortkey.NewRegistry(sortkey.Builtin()[:1]...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := New(Options{SortKeys: keys}).SortKeys(); got != keys {
		t.Errorf("SortKeys: got %p, want %p", got, keys)
	}
}

func TestGlossary_RequestFilter(t *testing.T) {
	t.Parallel()

	g := newGlossary(t, nil)
	for _, name := range []string{"prevent_duplicate_words", "strip_full_html", "prevent_duplicate_words"} {
		if err := g.RequestFilter(name); err != nil {
			t.Fatalf("RequestFilter(%q): %v", name, err)
		}
	}
	if diff := cmp.Diff([]string{"prevent_duplicate_words", "strip_full_html"}, g.writeChain.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}
	if err := g.RequestFilter("nope"); !errors.Is(err, errdefs.ErrUsage) {
		t.Errorf("RequestFilter: got %v, want %v", err, errdefs.ErrUsage)
	}
}

func TestGlossary_progress(t *testing.T) {
	t.Parallel()

	var got []int64
	g := New(Options{
		Progress: func(pos, _ int64, unit string) {
			if unit == "" {
				got = append(got, pos)
			}
		},
	})
	g.Progress(3, 10, "")
	g.Progress(100, 1000, "bytes")
	if diff := cmp.Diff([]int64{3}, got); diff != "" {
		t.Errorf("Progress (-want, +got):\n%s", diff)
	}
}

type recordingWriter struct {
	calls []string
}

func (w *recordingWriter) Open(string) error {
	w.calls = append(w.calls, "open")
	return nil
}

func (w *recordingWriter) Start() error {
	w.calls = append(w.calls, "start")
	return nil
}

func (w *recordingWriter) Push(r entry.Record) error {
	w.calls = append(w.calls, "push "+r.Headword())
	return nil
}

func (w *recordingWriter) Finish() error {
	w.calls = append(w.calls, "finish")
	return nil
}

func (w *recordingWriter) Abort() error {
	w.calls = append(w.calls, "abort")
	return nil
}

func TestConsumer(t *testing.T) {
	t.Parallel()

	w := &recordingWriter{}
	c := newConsumer(w)

	e, err := entry.New([]string{"a"}, "A", entry.Plain)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.push(e); !errors.Is(err, errdefs.ErrUsage) {
		t.Errorf("push before start: got %v, want %v", err, errdefs.ErrUsage)
	}
	if err := c.start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.start(); !errors.Is(err, errdefs.ErrUsage) {
		t.Errorf("start twice: got %v, want %v", err, errdefs.ErrUsage)
	}
	if err := c.push(e); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := c.finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := c.finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := c.push(e); !errors.Is(err, errdefs.ErrUsage) {
		t.Errorf("push after finish: got %v, want %v", err, errdefs.ErrUsage)
	}

	if err := c.abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if err := c.abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if err := c.finish(); !errors.Is(err, errdefs.ErrUsage) {
		t.Errorf("finish after abort: got %v, want %v", err, errdefs.ErrUsage)
	}

	if diff := cmp.Diff([]string{"start", "push a", "finish", "abort"}, w.calls); diff != "" {
		t.Errorf("calls (-want, +got):\n%s", diff)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	var got []string
	for _, s := range []State{Idle, Reading, Sorting, Writing, Done, Error, State(42)} {
		got = append(got, s.String())
	}
	want := []string{"idle", "reading", "sorting", "writing", "done", "error", "unknown"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("String (-want, +got):\n%s", diff)
	}
}
