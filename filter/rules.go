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
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var errValue = errors.New("invalid filter config value")

// Rule decides whether a filter participates in a chain.
type Rule struct {
	// ConfigKey is the configuration key enabling the filter. Filters with
	// an empty key always participate.
	ConfigKey string

	// Default is the value used when the key is not configured. Its type is
	// the expected type of the configured value.
	Default any

	// New constructs the filter from the configured value.
	New func(h Host, value any) (Filter, error)
}

// Rules is the ordered rule table. Order is significant: whitespace trimming
// and empty-term rejection run first, format-specific cleanups run in the
// middle and empty-definition rejection and alternate de-duplication run
// last.
var Rules = []Rule{
	{New: always(TrimWhitespaces)},
	{New: always(NonEmptyWord)},
	{ConfigKey: "skip_resources", Default: false, New: always(SkipResources)},
	{ConfigKey: "utf8_check", Default: false, New: always(UTF8Check)},
	{ConfigKey: "lower", Default: false, New: always(Lower)},
	{ConfigKey: "skip_duplicate_headword", Default: false, New: always(SkipDuplicateHeadword)},
	{ConfigKey: "trim_arabic_diacritics", Default: false, New: always(TrimArabicDiacritics)},
	{ConfigKey: "rtl", Default: false, New: always(RTL)},
	{ConfigKey: "remove_html_all", Default: false, New: always(RemoveHTMLAll)},
	{ConfigKey: "remove_html", Default: "", New: newRemoveHTML},
	{ConfigKey: "normalize_html", Default: false, New: always(NormalizeHTML)},
	{ConfigKey: "unescape_word_links", Default: false, New: always(UnescapeWordLinks)},
	{New: always(Lang)},
	{ConfigKey: "text_list_symbol_cleanup", Default: false, New: always(TextListSymbolCleanup)},
	{New: always(NonEmptyWord)},
	{New: always(NonEmptyDefinition)},
	{New: always(RemoveEmptyAndDuplicateAlternates)},
}

// always adapts a constructor that takes no configured value.
func always(fn func() Filter) func(Host, any) (Filter, error) {
	return func(Host, any) (Filter, error) {
		return fn(), nil
	}
}

// Build builds a chain from the rule table and the configuration values.
// Values of the wrong type are logged and their rule is skipped.
func Build(h Host, values map[string]any) (*Chain, error) {
	logger := h.Logger()
	c := NewChain()
	for _, rule := range Rules {
		value := rule.Default
		if rule.ConfigKey != "" {
			if v, ok := values[rule.ConfigKey]; ok && v != nil {
				value = v
			}
			enabled, err := truthy(rule.Default, value)
			if err != nil {
				logger.Warn("ignoring filter config",
					zap.String("key", rule.ConfigKey),
					zap.Any("value", value),
					zap.Error(err),
				)
				continue
			}
			if !enabled {
				continue
			}
		}

		f, err := rule.New(h, value)
		if err != nil {
			return nil, err
		}
		// Rules without a config key may repeat a filter.
		c.filters = append(c.filters, f)
		c.names[f.Name()] = struct{}{}
	}
	return c, nil
}

// truthy checks value against the type of def and reports whether it
// enables the filter.
func truthy(def, value any) (bool, error) {
	switch def.(type) {
	case bool:
		b, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("%w: expected bool, got %T", errValue, value)
		}
		return b, nil
	case string:
		list, err := stringList(value)
		if err != nil {
			return false, err
		}
		return len(list) > 0, nil
	}
	return value != nil, nil
}

// stringList converts a comma-separated string or a list to a list of
// non-empty strings.
func stringList(value any) ([]string, error) {
	var items []string
	switch v := value.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string list item, got %T", errValue, item)
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("%w: expected string or list, got %T", errValue, value)
	}

	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// ConfigKeys returns the config keys of the rule table with their defaults.
func ConfigKeys() map[string]any {
	keys := map[string]any{}
	for _, rule := range Rules {
		if rule.ConfigKey != "" {
			keys[rule.ConfigKey] = rule.Default
		}
	}
	return keys
}
