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
	"html"
	"regexp"
	"strings"

	"github.com/k3a/html2text"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
)

// RemoveHTMLAll converts an HTML definition to plain text. Tags are removed,
// their contents kept and entities decoded.
func RemoveHTMLAll() Filter {
	return &funcFilter{
		name: "remove_html_all",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(func(defi string) string {
				text := html2text.HTML2TextWithOptions(defi,
					html2text.WithUnixLineBreaks(),
					html2text.WithLinksInnerText(),
				)
				return strings.TrimSpace(text)
			})
			return r, nil
		},
	}
}

// RemoveHTML removes the given tags, but not their contents, from the
// definition.
func RemoveHTML(tags []string) Filter {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = regexp.QuoteMeta(t)
	}
	pattern := regexp.MustCompile(`(?i)</?(?:` + strings.Join(quoted, "|") + `)(?: [^>]*)?>`)
	return &funcFilter{
		name: "remove_html",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(func(defi string) string {
				return pattern.ReplaceAllString(defi, "")
			})
			return r, nil
		},
	}
}

func newRemoveHTML(_ Host, value any) (Filter, error) {
	tags, err := stringList(value)
	if err != nil {
		return nil, err
	}
	return RemoveHTML(tags), nil
}

var normalizedTags = []string{
	"a", "font", "i", "b", "u", "p", "sup",
	"div", "span",
	"table", "tr", "th", "td",
	"ul", "ol", "li",
	"img",
	"br", "hr",
}

// NormalizeHTML lowercases common HTML tags in the definition. Attribute
// values inside those tags are lowercased too.
func NormalizeHTML() Filter {
	alts := make([]string, len(normalizedTags))
	for i, t := range normalizedTags {
		alts[i] = `</?` + t + `[^<>]*?>`
	}
	pattern := regexp.MustCompile(`(?is)` + strings.Join(alts, "|"))
	return &funcFilter{
		name: "normalize_html",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(func(defi string) string {
				return pattern.ReplaceAllStringFunc(defi, strings.ToLower)
			})
			return r, nil
		},
	}
}

var (
	escapedWordLinkPattern = regexp.MustCompile(`(?i)href="bword://[^<>"]*&#?\w+;[^<>"]*"`)
	entityPattern          = regexp.MustCompile(`&#?\w+;`)
)

// unescapeUnicode decodes character references except those for
// characters that are special in HTML.
func unescapeUnicode(s string) string {
	return entityPattern.ReplaceAllStringFunc(s, func(ref string) string {
		c := html.UnescapeString(ref)
		switch c {
		case ref, "<", ">", "&", `"`, "'", "\u00a0":
			return ref
		}
		return c
	})
}

// UnescapeWordLinks decodes character references in bword:// link targets.
func UnescapeWordLinks() Filter {
	return &funcFilter{
		name: "unescape_word_links",
		run: func(r entry.Record) (entry.Record, error) {
			r.EditDefinition(func(defi string) string {
				return escapedWordLinkPattern.ReplaceAllStringFunc(defi, unescapeUnicode)
			})
			return r, nil
		},
	}
}

type stripFullHTML struct {
	logger  *zap.Logger
	onError func(entry.Record, error)
}

// StripFullHTML replaces definitions that are full HTML documents with the
// document body. Malformed documents are passed to onError, or logged if
// onError is nil, and kept unchanged.
func StripFullHTML(logger *zap.Logger, onError func(entry.Record, error)) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stripFullHTML{
		logger:  logger,
		onError: onError,
	}
}

func (*stripFullHTML) Name() string {
	return "strip_full_html"
}

func (f *stripFullHTML) Run(r entry.Record) (entry.Record, error) {
	if err := r.StripFullHTML(); err != nil {
		if f.onError != nil {
			f.onError(r, err)
		} else {
			f.logger.Warn("could not strip html document", zap.String("word", r.Headword()), zap.Error(err))
		}
	}
	return r, nil
}
