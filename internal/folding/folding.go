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

// Package folding implements text normalization transformers used for sort
// keys and entry filters.
package folding

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Fold runs s through the given transformers in order. If a transformer fails
// s is returned unchanged.
func Fold(s string, t ...transform.Transformer) string {
	if len(t) == 0 {
		return s
	}
	out, _, err := transform.String(transform.Chain(t...), s)
	if err != nil {
		return s
	}
	return out
}

// RemoveRunes returns a transformer that removes every rune in chars.
func RemoveRunes(chars string) transform.Transformer {
	return runes.Remove(runes.Predicate(func(r rune) bool {
		return strings.ContainsRune(chars, r)
	}))
}

// Lower returns a language independent lowercasing transformer.
func Lower() transform.Transformer {
	return cases.Lower(language.Und)
}
