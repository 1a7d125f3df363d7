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
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/ianlewis/go-glossary/sortkey"
)

var sortKeysCommand = &cli.Command{
	Name:  "sortkeys",
	Usage: "list sort keys",
	Action: func(c *cli.Context) error {
		reg := sortkey.Default()
		def := reg.DefaultKey().Name
		tbl := table.New("Name", "Description", "Locale", "Default").WithWriter(c.App.Writer)
		for _, k := range reg.List() {
			isDefault := ""
			if k.Name == def {
				isDefault = "*"
			}
			tbl.AddRow(k.Name, k.Desc, yesNo(k.SupportsLocale()), isDefault)
		}
		tbl.Print()
		return nil
	},
}
