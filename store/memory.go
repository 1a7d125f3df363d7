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

package store

import (
	"iter"
	"slices"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/sortkey"
)

// item is a stored record. blob is used instead of raw when the codec
// compresses records.
type item struct {
	raw  entry.RawRecord
	blob []byte
}

// Memory is an in-memory store.
type Memory struct {
	codec   *entry.Codec
	items   []item
	keyFunc sortkey.KeyFunc
	sorted  bool
	closed  bool
}

// NewMemory returns a new empty in-memory store.
func NewMemory(codec *entry.Codec) *Memory {
	return &Memory{codec: codec}
}

// Append implements [Store.Append].
func (m *Memory) Append(r entry.Record) error {
	if m.closed {
		return ErrClosed
	}
	raw, err := m.codec.Encode(r)
	if err != nil {
		return err
	}
	if !m.codec.Compress {
		m.items = append(m.items, item{raw: raw})
		return nil
	}
	b, err := m.codec.Marshal(raw)
	if err != nil {
		return err
	}
	m.items = append(m.items, item{blob: b})
	return nil
}

// Len implements [Store.Len].
func (m *Memory) Len() int {
	return len(m.items)
}

func (m *Memory) rawRecord(it item) (entry.RawRecord, error) {
	if it.blob == nil {
		return it.raw, nil
	}
	return m.codec.Unmarshal(it.blob)
}

// Records implements [Store.Records].
func (m *Memory) Records() iter.Seq2[entry.Record, error] {
	if m.closed {
		return errSeq(ErrClosed)
	}
	return func(yield func(entry.Record, error) bool) {
		for _, it := range m.items {
			raw, err := m.rawRecord(it)
			if err != nil {
				yield(nil, err)
				return
			}
			r, err := m.codec.Decode(raw)
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// SetSortKey implements [Store.SetSortKey].
func (m *Memory) SetSortKey(k *sortkey.NamedSortKey, opts sortkey.Options) error {
	if m.closed {
		return ErrClosed
	}
	if m.keyFunc != nil {
		return ErrSortKeySet
	}
	fn, err := k.Normal(opts)
	if err != nil {
		return err
	}
	m.keyFunc = fn
	return nil
}

// Sort implements [Store.Sort]. Keys are computed once per record and the
// sort is stable in both directions.
func (m *Memory) Sort(reverse bool) error {
	if m.closed {
		return ErrClosed
	}
	if m.keyFunc == nil {
		return ErrNoSortKey
	}
	if m.sorted {
		return ErrSorted
	}

	type keyed struct {
		key  sortkey.Key
		item item
	}
	ks := make([]keyed, len(m.items))
	for i, it := range m.items {
		raw, err := m.rawRecord(it)
		if err != nil {
			return err
		}
		ks[i] = keyed{key: m.keyFunc(raw.Terms()), item: it}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		if reverse {
			return sortkey.Compare(b.key, a.key)
		}
		return sortkey.Compare(a.key, b.key)
	})

	for i := range ks {
		m.items[i] = ks[i].item
	}
	m.sorted = true
	return nil
}

// Close implements [Store.Close]. Records are released.
func (m *Memory) Close() error {
	m.items = nil
	m.closed = true
	return nil
}
