// Copyright 2021 Google LLC
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

// Package ifo implements reading and writing .ifo files.
//
// The .ifo file is a utf-8 text file. The first line is a magic string
// followed by "key=value" lines. The first key must be "version".
package ifo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Magic is the first line of every .ifo file.
const Magic = "StarDict's dict ifo file"

var (
	// ErrBadMagic indicates the file does not start with [Magic].
	ErrBadMagic = errors.New("bad magic data")

	// ErrMissingVersion indicates the first key is not "version".
	ErrMissingVersion = errors.New("missing version")

	errInvalidKey = errors.New("invalid key")

	keyRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")
)

// Ifo is the metadata of a dictionary.
type Ifo struct {
	magic  string
	keys   []string
	values map[string]string
}

// New reads .ifo data from r.
func New(r io.Reader) (*Ifo, error) {
	i := &Ifo{
		values: map[string]string{},
	}

	s := bufio.NewScanner(r)
	if s.Scan() {
		i.magic = strings.TrimSpace(strings.TrimPrefix(s.Text(), "\ufeff"))
	}

	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !keyRegex.MatchString(key) {
			return nil, fmt.Errorf("%w: %q", errInvalidKey, key)
		}
		if len(i.keys) == 0 && key != "version" {
			return nil, ErrMissingVersion
		}
		i.Set(key, strings.TrimSpace(value))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading ifo: %w", err)
	}
	if len(i.keys) == 0 {
		return nil, ErrMissingVersion
	}

	return i, nil
}

// NewIfo returns an empty .ifo with the given version.
func NewIfo(version string) *Ifo {
	i := &Ifo{
		magic:  Magic,
		values: map[string]string{},
	}
	i.Set("version", version)
	return i
}

// Magic returns the magic string of the file.
func (i *Ifo) Magic() string {
	return i.magic
}

// Value returns the value of key.
func (i *Ifo) Value(key string) string {
	return i.values[key]
}

// Set sets the value of key. Line breaks in value are replaced with spaces.
func (i *Ifo) Set(key, value string) {
	if _, ok := i.values[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.values[key] = newlineReplacer.Replace(value)
}

// Keys returns the keys in file order.
func (i *Ifo) Keys() []string {
	return append([]string(nil), i.keys...)
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// WriteTo writes the .ifo data to w.
func (i *Ifo) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString(Magic)
	b.WriteByte('\n')
	for _, key := range i.keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(i.values[key])
		b.WriteByte('\n')
	}
	n, err := io.WriteString(w, b.String())
	if err != nil {
		return int64(n), fmt.Errorf("writing ifo: %w", err)
	}
	return int64(n), nil
}
