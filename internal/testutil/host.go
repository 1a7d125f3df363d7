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

// Package testutil holds test fixtures shared by the format packages.
package testutil

import (
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/sortkey"
)

// Host is a plugin host for tests.
type Host struct {
	t *testing.T

	info map[string]string
	keys []string

	// Format is the default definition format.
	Format entry.Format

	// Alts enables alternate terms.
	Alts bool

	// Formats is returned by CollectFormat.
	Formats map[entry.Format]float64

	// Requested holds the names passed to RequestFilter.
	Requested []string

	// Keys is returned by SortKeys. The built-in keys are used if nil.
	Keys *sortkey.Registry

	dir string
}

// NewHost returns a host with alternates enabled and a temporary directory.
func NewHost(t *testing.T) *Host {
	t.Helper()
	return &Host{
		t:      t,
		info:   map[string]string{},
		Format: entry.Plain,
		Alts:   true,
		dir:    t.TempDir(),
	}
}

// Info implements plugin.Host.
func (h *Host) Info(key string) string {
	return h.info[key]
}

// SetInfo implements plugin.Host.
func (h *Host) SetInfo(key, value string) {
	if _, ok := h.info[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.info[key] = value
}

// InfoKeys implements plugin.Host.
func (h *Host) InfoKeys() []string {
	return slices.Clone(h.keys)
}

// DefaultFormat implements plugin.Host.
func (h *Host) DefaultFormat() entry.Format {
	return h.Format
}

// AltsEnabled implements plugin.Host.
func (h *Host) AltsEnabled() bool {
	return h.Alts
}

// CollectFormat implements plugin.Host.
func (h *Host) CollectFormat(int) map[entry.Format]float64 {
	return h.Formats
}

// NewEntry implements plugin.Host.
func (h *Host) NewEntry(terms []string, defi string, format entry.Format) (*entry.Entry, error) {
	if format == 0 {
		format = h.Format
	}
	return entry.New(terms, defi, format)
}

// NewDataEntry implements plugin.Host.
func (*Host) NewDataEntry(name string, data []byte) (*entry.DataEntry, error) {
	return entry.NewDataEntry(name, data), nil
}

// TempDir implements plugin.Host.
func (h *Host) TempDir() string {
	return h.dir
}

// RequestFilter implements plugin.Host.
func (h *Host) RequestFilter(name string) error {
	h.Requested = append(h.Requested, name)
	return nil
}

// SortKeys implements plugin.Host.
func (h *Host) SortKeys() *sortkey.Registry {
	if h.Keys == nil {
		return sortkey.Default()
	}
	return h.Keys
}

// Logger implements plugin.Host.
func (h *Host) Logger() *zap.Logger {
	return zaptest.NewLogger(h.t)
}
