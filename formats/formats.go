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

// Package formats registers the built-in glossary formats.
package formats

import (
	"sync"

	"github.com/ianlewis/go-glossary/formats/jsonfmt"
	"github.com/ianlewis/go-glossary/formats/stardict"
	"github.com/ianlewis/go-glossary/formats/tabfile"
	"github.com/ianlewis/go-glossary/plugin"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *plugin.Registry
)

// Plugins returns new descriptors of the built-in formats.
func Plugins() []*plugin.Plugin {
	return []*plugin.Plugin{
		tabfile.Plugin(),
		stardict.Plugin(),
		jsonfmt.Plugin(),
	}
}

// Default returns the process-wide registry of built-in formats. It is
// initialized on first use and read-only afterwards.
func Default() *plugin.Registry {
	defaultOnce.Do(func() {
		r, err := plugin.NewRegistry(Plugins()...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
