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

package sortkey

import (
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/collate"

	"github.com/ianlewis/go-glossary/internal/folding"
)

// DefaultName is the name of the default sort key.
const DefaultName = "headword_lower"

// dicformidsPunctuation is removed from headwords by the dicformids key.
const dicformidsPunctuation = "!\"$§%&/()=?´`\\{}[]^°+*~#'-_.:,;<>@|"

// Builtin returns the built-in sort keys.
func Builtin() []*NamedSortKey {
	return []*NamedSortKey{
		{
			Name:           "headword",
			Desc:           "Headword",
			Normal:         headwordNormal(noop),
			External:       headwordExternal("headword", noop),
			Locale:         headwordLocale(noop),
			ExternalLocale: headwordExternalLocale(noop),
		},
		{
			Name:           DefaultName,
			Desc:           "Lowercase Headword",
			Normal:         headwordNormal(strings.ToLower),
			External:       headwordExternal("headword_lower", strings.ToLower),
			Locale:         headwordLocale(strings.ToLower),
			ExternalLocale: headwordExternalLocale(strings.ToLower),
		},
		{
			Name:     "headword_bytes_lower",
			Desc:     "ASCII-Lowercase Headword",
			Normal:   bytesLowerNormal,
			External: bytesLowerExternal,
		},
		{
			Name:     "stardict",
			Desc:     "StarDict",
			Normal:   stardictNormal,
			External: stardictExternal,
		},
		{
			Name:     "ebook",
			Desc:     "E-Book (prefix length: 2)",
			Normal:   ebookNormal(0),
			External: ebookExternal(0),
		},
		{
			Name:     "ebook_length3",
			Desc:     "E-Book (prefix length: 3)",
			Normal:   ebookNormal(3),
			External: ebookExternal(3),
		},
		{
			Name:     "dicformids",
			Desc:     "DictionaryForMIDs",
			Normal:   dicformidsNormal,
			External: dicformidsExternal,
		},
		{
			Name:     "random",
			Desc:     "Random",
			Normal:   randomNormal,
			External: randomExternal,
			Locale: func(*collate.Collator, Options) (KeyFunc, error) {
				return randomNormal(Options{})
			},
			ExternalLocale: func(*collate.Collator, Options) ([]Column, error) {
				return randomExternal(Options{})
			},
		},
	}
}

func noop(s string) string { return s }

func headwordNormal(fold func(string) string) func(Options) (KeyFunc, error) {
	return func(opts Options) (KeyFunc, error) {
		enc, err := newEncoder(opts.Encoding)
		if err != nil {
			return nil, err
		}
		return func(terms []string) Key {
			return Key{enc.bytes(fold(terms[0]))}
		}, nil
	}
}

func headwordExternal(column string, fold func(string) string) func(Options) ([]Column, error) {
	return func(opts Options) ([]Column, error) {
		enc, err := newEncoder(opts.Encoding)
		if err != nil {
			return nil, err
		}
		return []Column{{
			Name: column,
			Type: enc.columnType(),
			Extract: func(terms []string) any {
				return enc.value(enc.bytes(fold(terms[0])))
			},
		}}, nil
	}
}

func headwordLocale(fold func(string) string) func(*collate.Collator, Options) (KeyFunc, error) {
	return func(c *collate.Collator, _ Options) (KeyFunc, error) {
		return func(terms []string) Key {
			return Key{collationKey(c, fold(terms[0]))}
		}, nil
	}
}

func headwordExternalLocale(fold func(string) string) func(*collate.Collator, Options) ([]Column, error) {
	return func(c *collate.Collator, _ Options) ([]Column, error) {
		return []Column{{
			Name: "sortkey",
			Type: TypeBlob,
			Extract: func(terms []string) any {
				return collationKey(c, fold(terms[0]))
			},
		}}, nil
	}
}

func bytesLowerNormal(opts Options) (KeyFunc, error) {
	enc, err := newEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return func(terms []string) Key {
		return Key{asciiLower(enc.bytes(terms[0]))}
	}, nil
}

func bytesLowerExternal(opts Options) ([]Column, error) {
	enc, err := newEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return []Column{{
		Name: "headword_blower",
		Type: enc.columnType(),
		Extract: func(terms []string) any {
			return enc.value(asciiLower(enc.bytes(terms[0])))
		},
	}}, nil
}

// stardictNormal orders by ASCII-lowercased headword, then by headword. This
// is the order StarDict lookups expect in .idx files.
func stardictNormal(opts Options) (KeyFunc, error) {
	enc, err := newEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return func(terms []string) Key {
		b := enc.bytes(terms[0])
		return Key{asciiLower(b), b}
	}, nil
}

func stardictExternal(opts Options) ([]Column, error) {
	enc, err := newEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return []Column{
		{
			Name: "headword_lower",
			Type: enc.columnType(),
			Extract: func(terms []string) any {
				return enc.value(asciiLower(enc.bytes(terms[0])))
			},
		},
		{
			Name: "headword",
			Type: enc.columnType(),
			Extract: func(terms []string) any {
				return enc.value(enc.bytes(terms[0]))
			},
		},
	}, nil
}

// ebookPrefix returns the group prefix of a headword. Headwords starting
// before "a" are grouped as "SPECIAL".
func ebookPrefix(word string, length int) string {
	if word == "" {
		return ""
	}
	n := 0
	for i := range word {
		if n == length {
			word = word[:i]
			break
		}
		n++
	}
	prefix := strings.ToLower(word)
	if r, _ := utf8.DecodeRuneInString(prefix); r < 'a' {
		return "SPECIAL"
	}
	return prefix
}

// ebookLength returns the prefix length. A fixed length of 0 means the
// group_by_prefix_length writer option is used.
func ebookLength(fixed int, opts Options) int {
	if fixed > 0 {
		return fixed
	}
	return intOption(opts.WriteOptions, "group_by_prefix_length", 2)
}

func ebookNormal(fixed int) func(Options) (KeyFunc, error) {
	return func(opts Options) (KeyFunc, error) {
		enc, err := newEncoder(opts.Encoding)
		if err != nil {
			return nil, err
		}
		length := ebookLength(fixed, opts)
		return func(terms []string) Key {
			return Key{enc.bytes(ebookPrefix(terms[0], length)), enc.bytes(terms[0])}
		}, nil
	}
}

func ebookExternal(fixed int) func(Options) ([]Column, error) {
	return func(opts Options) ([]Column, error) {
		enc, err := newEncoder(opts.Encoding)
		if err != nil {
			return nil, err
		}
		length := ebookLength(fixed, opts)
		return []Column{
			{
				Name: "prefix",
				Type: enc.columnType(),
				Extract: func(terms []string) any {
					return enc.value(enc.bytes(ebookPrefix(terms[0], length)))
				},
			},
			{
				Name: "headword",
				Type: enc.columnType(),
				Extract: func(terms []string) any {
					return enc.value(enc.bytes(terms[0]))
				},
			},
		}, nil
	}
}

func dicformidsFold(word string) string {
	return folding.Fold(word,
		folding.RemoveRunes(dicformidsPunctuation),
		&folding.WhitespaceFolder{},
		folding.Lower(),
	)
}

// dicformidsNormal ignores the sort encoding. The key is always utf-8.
func dicformidsNormal(Options) (KeyFunc, error) {
	return func(terms []string) Key {
		return Key{[]byte(dicformidsFold(terms[0]))}
	}, nil
}

func dicformidsExternal(Options) ([]Column, error) {
	return []Column{{
		Name: "headword_norm",
		Type: TypeText,
		Extract: func(terms []string) any {
			return dicformidsFold(terms[0])
		},
	}}, nil
}

func randomNormal(Options) (KeyFunc, error) {
	return func([]string) Key {
		return Key{binary.BigEndian.AppendUint64(nil, rand.Uint64())}
	}, nil
}

func randomExternal(Options) ([]Column, error) {
	return []Column{{
		Name: "random",
		Type: TypeReal,
		Extract: func([]string) any {
			return rand.Float64()
		},
	}}, nil
}
