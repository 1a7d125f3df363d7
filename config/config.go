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

// Package config holds the conversion configuration.
//
// A configuration is a flat string-keyed map. Known keys have defaults whose
// types are the expected types of configured values. Filter keys come from
// the filter rule table.
package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/filter"
)

// Config is a set of configuration values.
type Config map[string]any

// Defaults returns the default configuration.
func Defaults() Config {
	c := Config{
		"enable_alts":      true,
		"auto_sqlite":      true,
		"cleanup":          true,
		"optimize_memory":  false,
		"max_memory_usage": false,
		"tmp_dir":          "",
	}
	maps.Copy(c, filter.ConfigKeys())
	return c
}

// Load reads a YAML configuration file and merges it over the defaults.
// ${VAR} references are replaced with environment variable values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("%w: reading config: %w", errdefs.ErrConfiguration, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data and merges it over the defaults.
func Parse(data []byte) (Config, error) {
	content := os.Expand(string(data), os.Getenv)
	var values map[string]any
	if err := yaml.Unmarshal([]byte(content), &values); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", errdefs.ErrConfiguration, err)
	}
	return Defaults().Merge(values), nil
}

// Merge returns a copy of c with values set over it.
func (c Config) Merge(values map[string]any) Config {
	out := maps.Clone(c)
	if out == nil {
		out = Config{}
	}
	maps.Copy(out, values)
	return out
}

// Bool returns the boolean value of key. Missing and non-boolean values are
// false.
func (c Config) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// String returns the string value of key.
func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Validate logs a warning for every unknown key and every value whose type
// does not match the default's type. It returns the offending keys.
func (c Config) Validate(logger *zap.Logger) []string {
	defaults := Defaults()
	var bad []string
	for _, key := range slices.Sorted(maps.Keys(c)) {
		def, ok := defaults[key]
		if !ok {
			logger.Warn("unknown config key", zap.String("key", key))
			bad = append(bad, key)
			continue
		}
		if !sameType(def, c[key]) {
			logger.Warn("invalid config value",
				zap.String("key", key),
				zap.String("expected", fmt.Sprintf("%T", def)),
				zap.String("got", fmt.Sprintf("%T", c[key])),
			)
			bad = append(bad, key)
		}
	}
	return bad
}

func sameType(def, value any) bool {
	if value == nil {
		return true
	}
	switch def.(type) {
	case bool:
		_, ok := value.(bool)
		return ok
	case string:
		// String settings also accept lists, e.g. remove_html.
		switch value.(type) {
		case string, []string, []any:
			return true
		}
		return false
	}
	return true
}

// Filters returns the values of the filter keys.
func (c Config) Filters() map[string]any {
	out := map[string]any{}
	for key := range filter.ConfigKeys() {
		if v, ok := c[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Keys returns the known configuration keys in order.
func Keys() []string {
	return slices.Sorted(maps.Keys(Defaults()))
}

// ParseValue converts a command-line value for key to the default's type.
func ParseValue(key, value string) (any, error) {
	def, ok := Defaults()[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown config key %q", errdefs.ErrConfiguration, key)
	}
	switch def.(type) {
	case bool:
		switch strings.ToLower(value) {
		case "true", "yes", "1", "on":
			return true, nil
		case "false", "no", "0", "off":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %s: invalid boolean %q", errdefs.ErrConfiguration, key, value)
	}
	return value, nil
}
