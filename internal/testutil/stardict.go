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

package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ianlewis/go-dictzip"

	"github.com/ianlewis/go-glossary/formats/stardict/dict"
	"github.com/ianlewis/go-glossary/formats/stardict/idx"
	"github.com/ianlewis/go-glossary/formats/stardict/ifo"
	"github.com/ianlewis/go-glossary/formats/stardict/syn"
)

// StardictWord is a word of a StarDict fixture.
type StardictWord struct {
	Word     string
	Synonyms []string
	Data     []*dict.Data
}

// StardictOptions are options for a StarDict fixture.
type StardictOptions struct {
	// DictZip indicates that the dict file should be compressed with DictZip.
	DictZip bool

	// SameTypeSequence is the sametypesequence option.
	SameTypeSequence []dict.DataType

	// OffsetBits is the idxoffsetbits option. Defaults to 32.
	OffsetBits int

	// Info holds extra .ifo values.
	Info map[string]string

	// Resources are written to the res directory.
	Resources map[string][]byte
}

// MakeStardict writes a StarDict dictionary named name into dir and returns
// the path of the .ifo file. Words are written in the given order.
func MakeStardict(t *testing.T, dir, name string, words []*StardictWord, opts *StardictOptions) string {
	t.Helper()
	if opts == nil {
		opts = &StardictOptions{}
	}
	bits := opts.OffsetBits
	if bits == 0 {
		bits = 32
	}
	base := filepath.Join(dir, name)

	var dictWords []*dict.Word
	var index []*idx.Word
	var synonyms []*syn.Word
	var offset uint64
	for i, w := range words {
		dw := &dict.Word{Data: w.Data}
		dictWords = append(dictWords, dw)
		size := len(MakeDict(t, []*dict.Word{dw}, opts.SameTypeSequence))
		index = append(index, &idx.Word{Word: w.Word, Offset: offset, Size: uint32(size)}) //nolint:gosec // test data
		offset += uint64(size)
		for _, s := range w.Synonyms {
			synonyms = append(synonyms, &syn.Word{Word: s, OriginalWordIndex: uint32(i)}) //nolint:gosec // test data
		}
	}

	dictData := MakeDict(t, dictWords, opts.SameTypeSequence)
	if opts.DictZip {
		writeDictZip(t, base+".dict.dz", dictData)
	} else {
		writeFile(t, base+".dict", dictData)
	}

	idxData := MakeIndex(t, index, bits)
	writeFile(t, base+".idx", idxData)

	if len(synonyms) > 0 {
		writeFile(t, base+".syn", MakeSyn(t, synonyms))
	}

	info := ifo.NewIfo("3.0.0")
	info.Set("bookname", name)
	info.Set("wordcount", fmt.Sprint(len(words)))
	info.Set("idxfilesize", fmt.Sprint(len(idxData)))
	if bits == 64 {
		info.Set("idxoffsetbits", "64")
	}
	if len(synonyms) > 0 {
		info.Set("synwordcount", fmt.Sprint(len(synonyms)))
	}
	if len(opts.SameTypeSequence) > 0 {
		info.Set("sametypesequence", string(opts.SameTypeSequence))
	}
	for k, v := range opts.Info {
		info.Set(k, v)
	}
	var b strings.Builder
	if _, err := info.WriteTo(&b); err != nil {
		t.Fatal(err)
	}
	writeFile(t, base+".ifo", []byte(b.String()))

	for name, data := range opts.Resources {
		path := filepath.Join(dir, "res", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, path, data)
	}

	return base + ".ifo"
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeDictZip(t *testing.T, path string, data []byte) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	z, err := dictzip.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
}

// MakeDict creates test .dict data.
func MakeDict(t *testing.T, words []*dict.Word, sameTypeSequence []dict.DataType) []byte {
	t.Helper()

	b := []byte{}
	for _, w := range words {
		for i, d := range w.Data {
			last := len(sameTypeSequence) > 0 && i == len(w.Data)-1
			if len(sameTypeSequence) == 0 {
				b = append(b, byte(d.Type))
			}
			if 'a' <= d.Type && d.Type <= 'z' {
				// Data is a string like sequence.
				b = append(b, d.Data...)
				// Null terminator is not present on the last data item.
				if !last {
					b = append(b, 0)
				}
				continue
			}
			// Data is a file like sequence.
			if !last {
				dataLen := len(d.Data)
				if dataLen > math.MaxUint32 {
					t.Fatalf("word data too long: %d", dataLen)
				}
				b = binary.BigEndian.AppendUint32(b, uint32(dataLen))
			}
			b = append(b, d.Data...)
		}
	}

	return b
}

// MakeIndex makes test .idx data given a list of words.
func MakeIndex(t *testing.T, words []*idx.Word, idxoffsetbits int) []byte {
	t.Helper()

	b := []byte{}
	for _, w := range words {
		b = append(b, []byte(w.Word)...)
		b = append(b, 0) // Add the zero byte terminator.
		switch idxoffsetbits {
		case 32:
			if w.Offset > math.MaxUint32 {
				t.Fatalf("word offset too large %d > %d", w.Offset, idxoffsetbits)
			}
			//nolint:gosec // test code, offset size determined by idxoffsetbits
			b = binary.BigEndian.AppendUint32(b, uint32(w.Offset))
		case 64:
			b = binary.BigEndian.AppendUint64(b, w.Offset)
		default:
			t.Fatalf("unsupported offset bits: %d", idxoffsetbits)
		}
		b = binary.BigEndian.AppendUint32(b, w.Size)
	}
	return b
}

// MakeSyn makes test .syn data given a list of synonyms.
func MakeSyn(t *testing.T, words []*syn.Word) []byte {
	t.Helper()

	b := []byte{}
	for _, w := range words {
		b = append(b, []byte(w.Word)...)
		b = append(b, 0)
		b = binary.BigEndian.AppendUint32(b, w.OriginalWordIndex)
	}
	return b
}
