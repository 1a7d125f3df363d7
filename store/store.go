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

// Package store implements ordered record stores.
//
// A [Store] owns every record of one conversion in its raw form. The [Memory]
// store keeps records in a slice. The [SQLite] store keeps them in a table
// with one typed column per sort key column so that large glossaries can be
// sorted on disk.
package store

import (
	"errors"
	"fmt"
	"iter"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/sortkey"
)

var (
	// ErrClosed is returned for operations on a closed store.
	ErrClosed = fmt.Errorf("%w: store is closed", errdefs.ErrUsage)

	// ErrSortKeySet is returned when the sort key is set twice.
	ErrSortKeySet = fmt.Errorf("%w: sort key already set", errdefs.ErrUsage)

	// ErrNoSortKey is returned when sorting without a sort key.
	ErrNoSortKey = fmt.Errorf("%w: sort key not set", errdefs.ErrUsage)

	// ErrSorted is returned when a store is sorted twice.
	ErrSorted = fmt.Errorf("%w: store already sorted", errdefs.ErrUsage)

	errStore = errors.New("store")
)

// Store is an ordered container of records.
type Store interface {
	// Append encodes and stores a record.
	Append(r entry.Record) error

	// Len returns the number of records.
	Len() int

	// Records returns the decoded records in storage order. Each call
	// starts a new iteration.
	Records() iter.Seq2[entry.Record, error]

	// SetSortKey sets the sort key. It may be called at most once.
	SetSortKey(k *sortkey.NamedSortKey, opts sortkey.Options) error

	// Sort sorts the records by the sort key. It may be called at most once.
	Sort(reverse bool) error

	// Close releases the store's resources.
	Close() error
}

// errSeq returns a sequence yielding only err.
func errSeq(err error) iter.Seq2[entry.Record, error] {
	return func(yield func(entry.Record, error) bool) {
		yield(nil, err)
	}
}
