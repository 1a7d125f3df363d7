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

package main

import (
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-glossary/formats"
	"github.com/ianlewis/go-glossary/plugin"
)

var formatsCommand = &cli.Command{
	Name:  "formats",
	Usage: "list supported formats",
	Action: func(c *cli.Context) error {
		tbl := table.New("Name", "Extensions", "Read", "Write", "Sort", "Description").WithWriter(c.App.Writer)
		for _, p := range formats.Default().List() {
			tbl.AddRow(
				p.Name,
				strings.Join(p.Extensions, " "),
				yesNo(p.CanRead()),
				yesNo(p.CanWrite()),
				sortFlag(p),
				p.Description,
			)
		}
		tbl.Print()
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortFlag(p *plugin.Plugin) string {
	if p.SortKeyName == "" {
		return p.SortOnWrite.String()
	}
	return p.SortOnWrite.String() + " (" + p.SortKeyName + ")"
}
