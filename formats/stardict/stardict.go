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

// Package stardict reads and writes StarDict dictionaries.
//
// A StarDict dictionary is a set of files sharing a base name:
//
//   - .ifo: the dictionary metadata.
//   - .idx (or .idx.gz): the sorted word index.
//   - .dict (or .dict.dz): the word data.
//   - .syn (optional, or .syn.dz): synonyms pointing to index entries.
//   - res/ (optional): resource files such as images and sounds.
//
// The writer requires entries to be sorted with the "stardict" sort key.
package stardict

import (
	"bytes"

	"github.com/ianlewis/go-glossary/formats/stardict/ifo"
	"github.com/ianlewis/go-glossary/plugin"
)

// Name is the format name.
const Name = "Stardict"

// Read option values of "unicode_errors".
const (
	UnicodeStrict  = "strict"
	UnicodeReplace = "replace"
	UnicodeIgnore  = "ignore"
)

// Plugin returns the StarDict format descriptor.
func Plugin() *plugin.Plugin {
	return &plugin.Plugin{
		Name:            Name,
		Description:     "StarDict (.ifo)",
		Extensions:      []string{".ifo"},
		ExtensionCreate: "-stardict/",
		SingleFile:      false,
		SortOnWrite:     plugin.SortAlways,
		SortKeyName:     "stardict",
		SortEncoding:    "utf-8",
		ReadOptions: map[string]any{
			"unicode_errors": UnicodeStrict,
		},
		WriteOptions: map[string]any{
			"large_file":       false,
			"dictzip":          true,
			"sametypesequence": "",
			"stardict_client":  false,
			"audio_goldendict": false,
			"audio_icon":       true,
		},
		Magic:     isIfo,
		NewReader: newReader,
		NewWriter: newWriter,
	}
}

func isIfo(header []byte) bool {
	header = bytes.TrimPrefix(header, []byte("\ufeff"))
	return bytes.HasPrefix(header, []byte(ifo.Magic))
}
