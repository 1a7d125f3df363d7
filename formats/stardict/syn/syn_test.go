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

package syn

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeSyn(t *testing.T, words []*Word) []byte {
	t.Helper()

	var b bytes.Buffer
	w := NewWriter(&b)
	for _, word := range words {
		if err := w.Write(word); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := w.Count(), len(words); got != want {
		t.Errorf("Count: want: %d, got: %d", want, got)
	}
	return b.Bytes()
}

// TestScanner tests Scanner.
func TestScanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected []*Word
	}{
		{
			name: "empty",
		},
		{
			name: "multi",
			expected: []*Word{
				{Word: "hoge", OriginalWordIndex: 0},
				{Word: "fuga pico", OriginalWordIndex: 1 << 20},
				{Word: "ユニコード", OriginalWordIndex: 3},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			s := NewScanner(bytes.NewReader(writeSyn(t, test.expected)))
			var words []*Word
			for s.Scan() {
				words = append(words, s.Word())
			}
			if err := s.Err(); err != nil {
				t.Fatalf("Err: %v", err)
			}
			if diff := cmp.Diff(test.expected, words); diff != "" {
				t.Errorf("Scan (-want, +got):\n%s", diff)
			}
		})
	}
}

// TestReadAll tests ReadAll.
func TestReadAll(t *testing.T) {
	t.Parallel()

	b := writeSyn(t, []*Word{
		{Word: "a", OriginalWordIndex: 1},
		{Word: "b", OriginalWordIndex: 0},
		{Word: "c", OriginalWordIndex: 1},
	})

	got, err := ReadAll(bytes.NewReader(b), 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	expected := map[uint32][]string{
		0: {"b"},
		1: {"a", "c"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("ReadAll (-want, +got):\n%s", diff)
	}

	if _, err := ReadAll(bytes.NewReader(b), 1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("ReadAll: want: %v, got: %v", ErrInvalidIndex, err)
	}
	if _, err := ReadAll(bytes.NewReader(b[:len(b)-2]), 2); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadAll: want: %v, got: %v", ErrTruncated, err)
	}
}
