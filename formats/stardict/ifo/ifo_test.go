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

package ifo

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestIfo tests Ifo
func TestIfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		expect func(*testing.T, *Ifo)
		err    error
	}{
		{
			name: "magic and version",
			data: "test magic\nversion=1.0.0",
			expect: func(t *testing.T, i *Ifo) {
				t.Helper()
				if want, got := "test magic", i.Magic(); want != got {
					t.Fatalf("magic; want: %q, got: %q", want, got)
				}
				if want, got := "1.0.0", i.Value("version"); want != got {
					t.Fatalf("version; want: %q, got: %q", want, got)
				}
			},
		},
		{
			name: "values",
			data: Magic + "\r\nversion=3.0.0\r\n\r\nbookname = Test = Dict\r\nwordcount=2\n",
			expect: func(t *testing.T, i *Ifo) {
				t.Helper()
				if diff := cmp.Diff([]string{"version", "bookname", "wordcount"}, i.Keys()); diff != "" {
					t.Errorf("Keys (-want, +got):\n%s", diff)
				}
				if want, got := "Test = Dict", i.Value("bookname"); want != got {
					t.Errorf("bookname; want: %q, got: %q", want, got)
				}
			},
		},
		{
			name: "missing version",
			data: "test magic",
			err:  ErrMissingVersion,
		},
		{
			name: "version not first",
			data: "test magic\nbookname=x\nversion=3.0.0",
			err:  ErrMissingVersion,
		},
		{
			name: "invalid key",
			data: "test magic\nversion=3.0.0\nbad key=x",
			err:  errInvalidKey,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			i, err := New(strings.NewReader(test.data))
			if !errors.Is(err, test.err) {
				t.Fatalf("New: want: %v, got: %v", test.err, err)
			}
			if test.expect != nil {
				test.expect(t, i)
			}
		})
	}
}

func TestIfo_WriteTo(t *testing.T) {
	t.Parallel()

	i := NewIfo("3.0.0")
	i.Set("bookname", "Test\nDict")
	i.Set("wordcount", "2")
	i.Set("bookname", "Test Dict")

	var b bytes.Buffer
	if _, err := i.WriteTo(&b); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	expected := Magic + "\nversion=3.0.0\nbookname=Test Dict\nwordcount=2\n"
	if diff := cmp.Diff(expected, b.String()); diff != "" {
		t.Errorf("WriteTo (-want, +got):\n%s", diff)
	}

	got, err := New(&b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff(Magic, got.Magic()); diff != "" {
		t.Errorf("Magic (-want, +got):\n%s", diff)
	}
}
