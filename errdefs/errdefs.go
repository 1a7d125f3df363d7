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

// Package errdefs defines the error kinds shared by the glossary packages.
//
// Errors returned by this module wrap one of these sentinel values so callers
// can classify them with [errors.Is]:
//
//   - ErrConfiguration: conflicting or invalid options. Raised before any I/O.
//   - ErrRead: a reader failed (missing file, malformed header, bad data).
//   - ErrWrite: a writer failed (unwritable destination, disk full).
//   - ErrUsage: a programming error such as sorting a store twice.
//   - ErrInvalidRecord: an entry was constructed with invalid fields.
//   - ErrNotSupported: a requested feature is not available.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates conflicting or invalid conversion options.
	ErrConfiguration = errors.New("configuration error")

	// ErrRead indicates a failure reading input.
	ErrRead = errors.New("read error")

	// ErrWrite indicates a failure writing output.
	ErrWrite = errors.New("write error")

	// ErrUsage indicates an API was used incorrectly.
	ErrUsage = errors.New("usage error")

	// ErrInvalidRecord indicates an entry could not be constructed.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrNotSupported indicates a feature is not supported.
	ErrNotSupported = errors.New("not supported")
)

// Wrap returns err wrapped with kind. If err already wraps kind it is
// returned unchanged. Wrap returns nil if err is nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
