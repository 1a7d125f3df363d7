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
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ianlewis/go-glossary/errdefs"
)

var errLocale = errors.New("locale")

// ParseLocale parses a locale identifier. POSIX style identifiers such as
// "fa_IR.UTF-8" or "de_DE@euro" are accepted as well as BCP 47 tags.
func ParseLocale(id string) (language.Tag, error) {
	s := id
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" {
		return language.Und, fmt.Errorf("%w: %w: empty identifier", errdefs.ErrNotSupported, errLocale)
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("%w: %w: %q: %w", errdefs.ErrNotSupported, errLocale, id, err)
	}
	return tag, nil
}

// collationKey returns the collation key for s.
func collationKey(c *collate.Collator, s string) []byte {
	var buf collate.Buffer
	k := c.KeyFromString(&buf, s)
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

// withLocale binds k to a collator for tag. The returned key has no locale
// variants of its own.
func withLocale(k *NamedSortKey, tag language.Tag) *NamedSortKey {
	c := collate.New(tag)
	name := tag.String()
	return &NamedSortKey{
		Name: k.Name + ":" + name,
		Desc: k.Desc + ":" + name,
		Normal: func(opts Options) (KeyFunc, error) {
			return k.Locale(c, opts)
		},
		External: func(opts Options) ([]Column, error) {
			return k.ExternalLocale(c, opts)
		},
	}
}
