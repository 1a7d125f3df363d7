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

// Package filter implements the entry filter chain.
//
// Every record read from an input passes through a [Chain] of filters that
// normalize or reject it. The chain is built from the fixed, ordered [Rules]
// table and the conversion's configuration. Writers may add opt-in filters
// such as duplicate-term prevention.
package filter

import (
	"iter"

	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/entry"
)

// Filter is a single normalization step.
type Filter interface {
	// Name returns the filter's unique name.
	Name() string

	// Run filters a record. It returns a nil record to skip it. Callers must
	// use the returned record rather than the argument.
	Run(r entry.Record) (entry.Record, error)
}

// Preparer is implemented by filters that need glossary info. Prepare is
// called once the info is available, before the first Run.
type Preparer interface {
	Prepare(h Host) error
}

// Host is the part of a glossary that filters use.
type Host interface {
	// Info returns a glossary info value such as "sourceLang".
	Info(key string) string

	// Len returns the number of records if known, otherwise 0.
	Len() int

	// Progress reports conversion progress. unit is "bytes" for byte
	// offsets and empty for record counts.
	Progress(pos, total int64, unit string)

	// Logger returns the logger.
	Logger() *zap.Logger
}

// funcFilter is a stateless filter.
type funcFilter struct {
	name string
	run  func(entry.Record) (entry.Record, error)
}

func (f *funcFilter) Name() string {
	return f.name
}

func (f *funcFilter) Run(r entry.Record) (entry.Record, error) {
	return f.run(r)
}

// Chain is an ordered list of filters.
type Chain struct {
	filters []Filter
	names   map[string]struct{}
}

// NewChain returns a chain of the given filters.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{names: map[string]struct{}{}}
	for _, f := range filters {
		c.filters = append(c.filters, f)
		c.names[f.Name()] = struct{}{}
	}
	return c
}

// Add appends f unless a filter with the same name is already in the chain.
// It returns true if f was added.
func (c *Chain) Add(f Filter) bool {
	if c.Has(f.Name()) {
		return false
	}
	c.filters = append(c.filters, f)
	c.names[f.Name()] = struct{}{}
	return true
}

// Has returns true if the chain has a filter named name.
func (c *Chain) Has(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Names returns the names of the filters in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return names
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	return len(c.filters)
}

// Prepare calls Prepare on every filter that implements [Preparer].
func (c *Chain) Prepare(h Host) error {
	for _, f := range c.filters {
		if p, ok := f.(Preparer); ok {
			if err := p.Prepare(h); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run runs r through the filters in order. It stops at the first filter
// that skips the record and returns nil.
func (c *Chain) Run(r entry.Record) (entry.Record, error) {
	var err error
	for _, f := range c.filters {
		r, err = f.Run(r)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
	}
	return r, nil
}

// Apply returns a sequence of the records of seq that pass the chain. The
// sequence stops after the first error.
func (c *Chain) Apply(seq iter.Seq2[entry.Record, error]) iter.Seq2[entry.Record, error] {
	return func(yield func(entry.Record, error) bool) {
		for r, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			r, err = c.Run(r)
			if err != nil {
				yield(nil, err)
				return
			}
			if r == nil {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}
