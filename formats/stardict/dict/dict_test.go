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

package dict_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-glossary/formats/stardict/dict"
	"github.com/ianlewis/go-glossary/formats/stardict/idx"
)

// TestDict_Word tests writing words and reading them back.
func TestDict_Word(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		words            []*dict.Word
		sametypesequence []dict.DataType
		sizes            []uint32
	}{
		{
			name: "utf",
			words: []*dict.Word{
				{Data: []*dict.Data{{Type: dict.UTFTextType, Data: []byte("hoge")}}},
			},
			sizes: []uint32{6}, // 1 (type) + 4 data + 1 (terminator)
		},
		{
			name:             "utf sametype",
			sametypesequence: []dict.DataType{dict.UTFTextType},
			words: []*dict.Word{
				{Data: []*dict.Data{{Type: dict.UTFTextType, Data: []byte("hoge")}}},
				{Data: []*dict.Data{{Type: dict.UTFTextType, Data: []byte("ユニコード")}}},
			},
			sizes: []uint32{4, uint32(len("ユニコード"))},
		},
		{
			name: "file type",
			words: []*dict.Word{
				{Data: []*dict.Data{{Type: dict.WavType, Data: []byte("hoge")}}},
			},
			sizes: []uint32{9}, // 1 (type) + 4 (file size) + 4 data
		},
		{
			name:             "file sametype",
			sametypesequence: []dict.DataType{dict.WavType},
			words: []*dict.Word{
				{Data: []*dict.Data{{Type: dict.WavType, Data: []byte("hoge")}}},
			},
			sizes: []uint32{4}, // the last item has no size
		},
		{
			name: "multiple",
			words: []*dict.Word{
				{Data: []*dict.Data{
					{Type: dict.PhoneticType, Data: []byte("ho:ge")},
					{Type: dict.HTMLType, Data: []byte("<b>hoge</b>")},
					{Type: dict.PictureType, Data: []byte{0, 1, 2}},
				}},
				{Data: []*dict.Data{{Type: dict.UTFTextType, Data: []byte("fuga")}}},
			},
			sizes: []uint32{1 + 5 + 1 + 1 + 11 + 1 + 1 + 4 + 3, 6},
		},
		{
			name:             "multiple sametype",
			sametypesequence: []dict.DataType{dict.PhoneticType, dict.WavType, dict.HTMLType},
			words: []*dict.Word{
				{Data: []*dict.Data{
					{Type: dict.PhoneticType, Data: []byte("ho:ge")},
					{Type: dict.WavType, Data: []byte{0, 0, 0}},
					{Type: dict.HTMLType, Data: []byte("<b>hoge</b>")},
				}},
			},
			sizes: []uint32{5 + 1 + 4 + 3 + 11},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var b bytes.Buffer
			w, err := dict.NewWriter(&b, test.sametypesequence)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			var index []*idx.Word
			var sizes []uint32
			for _, word := range test.words {
				offset, size, err := w.Write(word)
				if err != nil {
					t.Fatalf("Write: %v", err)
				}
				index = append(index, &idx.Word{Offset: offset, Size: size})
				sizes = append(sizes, size)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if diff := cmp.Diff(test.sizes, sizes); diff != "" {
				t.Errorf("sizes (-want, +got):\n%s", diff)
			}

			d, err := dict.New(bytes.NewReader(b.Bytes()), test.sametypesequence)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for i, e := range index {
				got, err := d.Word(e)
				if err != nil {
					t.Fatalf("Word: %v", err)
				}
				if diff := cmp.Diff(test.words[i], got); diff != "" {
					t.Errorf("Word (-want, +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDict_Word_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		data             []byte
		sametypesequence []dict.DataType
	}{
		{name: "missing terminator", data: []byte("mhoge")},
		{name: "bad type", data: []byte("1hoge\x00")},
		{name: "short size", data: []byte("W\x00\x00")},
		{name: "size too large", data: []byte("W\x00\x00\x00\x09abc")},
		{
			name:             "terminator in last item",
			data:             []byte("ho\x00ge"),
			sametypesequence: []dict.DataType{dict.UTFTextType},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			d, err := dict.New(bytes.NewReader(test.data), test.sametypesequence)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = d.Word(&idx.Word{Size: uint32(len(test.data))})
			if !errors.Is(err, dict.ErrCorrupted) {
				t.Errorf("Word: want: %v, got: %v", dict.ErrCorrupted, err)
			}
		})
	}

	d, err := dict.New(bytes.NewReader([]byte("mhoge\x00")), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Word(&idx.Word{Offset: 2, Size: 10}); err == nil {
		t.Errorf("Word: expected error reading past the end")
	}
	if _, err := dict.New(nil, []dict.DataType{'?'}); err == nil {
		t.Errorf("New: expected error for invalid type")
	}
}

func TestEncode_mismatch(t *testing.T) {
	t.Parallel()

	w := &dict.Word{Data: []*dict.Data{{Type: dict.HTMLType, Data: []byte("x")}}}
	if _, err := dict.Encode(w, []dict.DataType{dict.UTFTextType}); err == nil {
		t.Errorf("Encode: expected type mismatch error")
	}
	if _, err := dict.Encode(w, []dict.DataType{dict.HTMLType, dict.UTFTextType}); err == nil {
		t.Errorf("Encode: expected length mismatch error")
	}
}
