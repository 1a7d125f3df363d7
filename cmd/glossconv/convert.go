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
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	glossary "github.com/ianlewis/go-glossary"
	"github.com/ianlewis/go-glossary/formats"
	"github.com/ianlewis/go-glossary/internal/logger"
	"github.com/ianlewis/go-glossary/plugin"
)

var convertCommand = &cli.Command{
	Name:      "convert",
	Usage:     "convert a glossary file",
	ArgsUsage: "INPUT [OUTPUT]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "read-format",
			Usage:   "input `FORMAT`, detected if not set",
			Aliases: []string{"r"},
		},
		&cli.StringFlag{
			Name:    "write-format",
			Usage:   "output `FORMAT`, detected from OUTPUT if not set",
			Aliases: []string{"w"},
		},
		&cli.BoolFlag{
			Name:  "sort",
			Usage: "sort the output",
		},
		&cli.BoolFlag{
			Name:  "direct",
			Usage: "stream records without loading them",
		},
		&cli.BoolFlag{
			Name:  "sqlite",
			Usage: "sort in an on-disk SQLite store",
		},
		&cli.BoolFlag{
			Name:  "reverse",
			Usage: "sort in descending order",
		},
		&cli.StringFlag{
			Name:  "sort-key",
			Usage: "sort key `NAME[:LOCALE]`",
		},
		&cli.StringFlag{
			Name:  "sort-encoding",
			Usage: "sort key `ENCODING`",
		},
		&cli.StringSliceFlag{
			Name:  "read-option",
			Usage: "reader option `KEY=VALUE`",
		},
		&cli.StringSliceFlag{
			Name:  "write-option",
			Usage: "writer option `KEY=VALUE`",
		},
		&cli.StringSliceFlag{
			Name:  "info",
			Usage: "set glossary info `KEY=VALUE`",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "print progress to stderr",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 || c.NArg() > 2 {
			return fmt.Errorf("%w: expected INPUT [OUTPUT]", ErrFlagParse)
		}

		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		args := glossary.ConvertArgs{
			InputFilename:  c.Args().Get(0),
			InputFormat:    c.String("read-format"),
			OutputFilename: c.Args().Get(1),
			OutputFormat:   c.String("write-format"),
			Direct:         optionalBool(c, "direct"),
			Sort:           optionalBool(c, "sort"),
			SQLite:         optionalBool(c, "sqlite"),
			SortKeyName:    c.String("sort-key"),
			SortEncoding:   c.String("sort-encoding"),
			Reverse:        c.Bool("reverse"),
		}

		reg := formats.Default()
		if kvs := c.StringSlice("read-option"); len(kvs) > 0 {
			p, err := pluginFor(reg, args.InputFormat, args.InputFilename, true)
			if err != nil {
				return err
			}
			if args.ReadOptions, err = parseOptions(p.ReadOptions, kvs); err != nil {
				return err
			}
		}
		if kvs := c.StringSlice("write-option"); len(kvs) > 0 {
			p, err := pluginFor(reg, args.OutputFormat, args.OutputFilename, false)
			if err != nil {
				return err
			}
			if args.WriteOptions, err = parseOptions(p.WriteOptions, kvs); err != nil {
				return err
			}
		}
		if kvs := c.StringSlice("info"); len(kvs) > 0 {
			args.InfoOverride = map[string]string{}
			for _, kv := range kvs {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("%w: --info %q: expected KEY=VALUE", ErrFlagParse, kv)
				}
				args.InfoOverride[key] = value
			}
		}

		opts := glossary.Options{
			Config:  cfg,
			Logger:  logger.Get(),
			Plugins: reg,
		}
		if c.Bool("progress") {
			opts.Progress = newProgressPrinter(c.App.ErrWriter)
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()

		g := glossary.New(opts)
		output, err := g.Convert(ctx, args)
		if c.Bool("progress") {
			fmt.Fprintln(c.App.ErrWriter)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, output)
		return err
	},
}

// optionalBool returns nil if the flag was not given.
func optionalBool(c *cli.Context, name string) *bool {
	if !c.IsSet(name) {
		return nil
	}
	b := c.Bool(name)
	return &b
}

// pluginFor returns the plugin named format or the one detected from
// filename's extension.
func pluginFor(reg *plugin.Registry, format, filename string, read bool) (*plugin.Plugin, error) {
	if format != "" {
		return reg.ByName(format)
	}
	if read {
		in, err := reg.DetectInput(filename, "")
		if err != nil {
			return nil, err
		}
		return in.Plugin, nil
	}
	_, ext, _ := plugin.SplitFilenameExt(filename)
	return reg.ByExt(ext)
}

// parseOptions parses KEY=VALUE pairs. Values of options whose default is a
// boolean are parsed as booleans.
func parseOptions(defaults map[string]any, kvs []string) (map[string]any, error) {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: option %q: expected KEY=VALUE", ErrFlagParse, kv)
		}
		if _, isBool := defaults[key].(bool); isBool {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: option %q: %w", ErrFlagParse, key, err)
			}
			out[key] = b
			continue
		}
		out[key] = value
	}
	return out, nil
}
