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
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/internal/folding"
)

// TrimWhitespaces strips whitespace from terms and definition.
func TrimWhitespaces() Filter {
	return &funcFilter{
		name: "trim_whitespaces",
		run: func(r entry.Record) (entry.Record, error) {
			r.Strip()
			return r, nil
		},
	}
}

// NonEmptyWord skips records with an empty headword. This includes data
// entries without a name.
func NonEmptyWord() Filter {
	return &funcFilter{
		name: "non_empty_word",
		run: func(r entry.Record) (entry.Record, error) {
			if r.Headword() == "" {
				return nil, nil
			}
			return r, nil
		},
	}
}

// NonEmptyDefinition skips records with an empty definition.
func NonEmptyDefinition() Filter {
	return &funcFilter{
		name: "non_empty_defi",
		run: func(r entry.Record) (entry.Record, error) {
			if r.Definition() == "" {
				return nil, nil
			}
			return r, nil
		},
	}
}

// RemoveEmptyAndDuplicateAlternates removes empty and duplicate terms and
// skips records left without a headword.
func RemoveEmptyAndDuplicateAlternates() Filter {
	return &funcFilter{
		name: "remove_empty_dup_alt_words",
		run: func(r entry.Record) (entry.Record, error) {
			r.RemoveEmptyAndDuplicateAlternates()
			if r.Headword() == "" {
				return nil, nil
			}
			return r, nil
		},
	}
}

// SkipResources skips data entries.
func SkipResources() Filter {
	return &funcFilter{
		name: "skip_resources",
		run: func(r entry.Record) (entry.Record, error) {
			if r.IsData() {
				return nil, nil
			}
			return r, nil
		},
	}
}

// UTF8Check removes NUL characters and replaces ill-formed utf-8 with
// U+FFFD in terms and definition.
func UTF8Check() Filter {
	fix := func(s string) string {
		return folding.Fold(s,
			runes.ReplaceIllFormed(),
			runes.Remove(runes.Predicate(func(r rune) bool { return r == 0 })),
		)
	}
	return &funcFilter{
		name: "utf8_check",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditTerms(fix)
			r.EditDefinition(fix)
			return r, nil
		},
	}
}

var wordRefPattern = regexp.MustCompile(`href=["'](bword://[^"']+)["']`)

// Lower lowercases terms and the targets of bword:// links.
func Lower() Filter {
	caser := cases.Lower(language.Und)
	return &funcFilter{
		name: "lower",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditTerms(caser.String)
			r.EditDefinition(func(defi string) string {
				return wordRefPattern.ReplaceAllStringFunc(defi, strings.ToLower)
			})
			return r, nil
		},
	}
}

type skipDuplicateHeadword struct {
	seen map[string]struct{}
}

// SkipDuplicateHeadword skips records whose headword was already seen.
func SkipDuplicateHeadword() Filter {
	return &skipDuplicateHeadword{seen: map[string]struct{}{}}
}

func (*skipDuplicateHeadword) Name() string {
	return "skip_duplicate_headword"
}

func (f *skipDuplicateHeadword) Run(r entry.Record) (entry.Record, error) {
	hw := r.Headword()
	if _, ok := f.seen[hw]; ok {
		return nil, nil
	}
	f.seen[hw] = struct{}{}
	return r, nil
}

var (
	arabicDiacritics = regexp.MustCompile(`[\x{064B}-\x{065F}]`)
	arabicAlef       = strings.NewReplacer("\u0622", "\u0627", "\u0623", "\u0627")
)

// TrimArabicDiacritics adds the headword without Arabic diacritics as a new
// headword. The original headword becomes an alternate.
func TrimArabicDiacritics() Filter {
	return &funcFilter{
		name: "trim_arabic_diacritics",
		run: func(r entry.Record) (entry.Record, error) {
			terms := r.Terms()
			hw := terms[0]
			trimmed := arabicAlef.Replace(arabicDiacritics.ReplaceAllString(hw, ""))
			if trimmed == hw || trimmed == "" {
				return r, nil
			}
			if err := r.SetTerms(append([]string{trimmed}, terms...)); err != nil {
				return nil, err
			}
			return r, nil
		},
	}
}

// RTL wraps the definition in a right-to-left div.
func RTL() Filter {
	return &funcFilter{
		name: "rtl",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(func(defi string) string {
				return `<div dir="rtl">` + defi + `</div>`
			})
			return r, nil
		},
	}
}

// TextListSymbolCleanup cleans up spaces and line breaks around list symbols
// (such as "♦") that plain text glossaries use in place of list markup.
func TextListSymbolCleanup() Filter {
	blocks := regexp.MustCompile("♦\n+♦")
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "♦  ", "♦ ")
		s = folding.Fold(s, &folding.NewlineFolder{})
		s = blocks.ReplaceAllString(s, "♦")
		s = strings.TrimSuffix(s, "<p")
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, ",")
		return s
	}
	return &funcFilter{
		name: "text_list_symbol_cleanup",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(clean)
			return r, nil
		},
	}
}

type preventDuplicateWords struct {
	seen map[string]struct{}
}

// PreventDuplicateWords makes headwords unique by appending " (2)", " (3)"
// and so on to repeated headwords. Alternates are kept.
func PreventDuplicateWords() Filter {
	return &preventDuplicateWords{seen: map[string]struct{}{}}
}

func (*preventDuplicateWords) Name() string {
	return "prevent_duplicate_words"
}

func (f *preventDuplicateWords) Run(r entry.Record) (entry.Record, error) {
	if r.IsData() {
		return r, nil
	}
	terms := r.Terms()
	word := terms[0]
	if _, ok := f.seen[word]; !ok {
		f.seen[word] = struct{}{}
		return r, nil
	}

	n := 2
	for {
		if _, ok := f.seen[fmt.Sprintf("%s (%d)", word, n)]; !ok {
			break
		}
		n++
	}
	word = fmt.Sprintf("%s (%d)", word, n)
	f.seen[word] = struct{}{}

	terms = slices.Clone(terms)
	terms[0] = word
	if err := r.SetTerms(terms); err != nil {
		return nil, err
	}
	return r, nil
}
