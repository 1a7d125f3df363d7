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
	"sync"

	"github.com/ianlewis/go-glossary/errdefs"
)

var (
	// ErrNotFound is returned by Lookup for unknown sort key names.
	ErrNotFound = errors.New("sort key not found")

	errRegistry = errors.New("sort key registry")
)

// Registry is a read-only set of named sort keys.
type Registry struct {
	keys        map[string]*NamedSortKey
	order       []*NamedSortKey
	defaultName string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of built-in sort keys. It is
// initialized on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(Builtin()...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// NewRegistry returns a registry of the given keys. The default key is
// DefaultName if present, otherwise the first key.
func NewRegistry(keys ...*NamedSortKey) (*Registry, error) {
	r := &Registry{
		keys: make(map[string]*NamedSortKey, len(keys)),
	}
	for _, k := range keys {
		if k.Name == "" || strings.Contains(k.Name, ":") {
			return nil, fmt.Errorf("%w: invalid name %q", errRegistry, k.Name)
		}
		if k.Normal == nil || k.External == nil {
			return nil, fmt.Errorf("%w: %q: missing factory", errRegistry, k.Name)
		}
		if _, ok := r.keys[k.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate name %q", errRegistry, k.Name)
		}
		r.keys[k.Name] = k
		r.order = append(r.order, k)
	}
	if len(r.order) > 0 {
		r.defaultName = r.order[0].Name
	}
	if _, ok := r.keys[DefaultName]; ok {
		r.defaultName = DefaultName
	}
	return r, nil
}

// DefaultKey returns the default sort key.
func (r *Registry) DefaultKey() *NamedSortKey {
	return r.keys[r.defaultName]
}

// List returns all registered keys in registration order.
func (r *Registry) List() []*NamedSortKey {
	out := make([]*NamedSortKey, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the sort key for id, which is either "name" or
// "name:locale". An empty name selects the default key. A locale suffix
// builds a collator, which is comparatively expensive, so Lookup should be
// called once per conversion.
func (r *Registry) Lookup(id string) (*NamedSortKey, error) {
	name, locale, hasLocale := strings.Cut(id, ":")
	if strings.Contains(locale, ":") {
		return nil, fmt.Errorf("%w: %w: invalid id %q", errdefs.ErrConfiguration, errRegistry, id)
	}

	var k *NamedSortKey
	if name == "" {
		k = r.DefaultKey()
	} else {
		k = r.keys[name]
	}
	if k == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	if !hasLocale || locale == "" {
		return k, nil
	}
	if !k.SupportsLocale() {
		return nil, fmt.Errorf("%w: %w: %q does not support locales", errdefs.ErrNotSupported, errRegistry, k.Name)
	}
	tag, err := ParseLocale(locale)
	if err != nil {
		return nil, err
	}
	return withLocale(k, tag), nil
}
