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

package filter

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/ianlewis/go-glossary/entry"
)

// persianReplacer replaces Arabic letters with their Persian forms.
var persianReplacer = strings.NewReplacer(
	"\u064A", "\u06CC", // Arabic Yeh -> Farsi Yeh
	"\u0643", "\u06A9", // Arabic Kaf -> Keheh
)

var persianNames = map[string]bool{
	"persian": true,
	"farsi":   true,
}

type lang struct {
	run func(entry.Record) (entry.Record, error)
}

// Lang applies language specific cleanup chosen from the glossary's source
// and target languages.
func Lang() Filter {
	return &lang{}
}

func (*lang) Name() string {
	return "lang"
}

// Prepare implements [Preparer].
func (f *lang) Prepare(h Host) error {
	for _, key := range []string{"sourceLang", "targetLang"} {
		if isPersian(h.Info(key)) {
			f.run = runPersian
			h.Logger().Info("using Persian filter")
			return nil
		}
	}
	return nil
}

func (f *lang) Run(r entry.Record) (entry.Record, error) {
	if f.run == nil {
		return r, nil
	}
	return f.run(r)
}

func runPersian(r entry.Record) (entry.Record, error) {
	r.EditTerms(persianReplacer.Replace)
	r.EditDefinition(persianReplacer.Replace)
	return r, nil
}

// isPersian reports whether name is a language name or code for Persian.
func isPersian(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if persianNames[strings.ToLower(name)] {
		return true
	}
	tag, err := language.Parse(name)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "fa"
}
