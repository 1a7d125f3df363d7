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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ianlewis/go-glossary/config"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/internal/logger"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError

	// ExitCodeConfigError is the exit code for configuration errors.
	ExitCodeConfigError

	// ExitCodeReadError is the exit code for input errors.
	ExitCodeReadError

	// ExitCodeWriteError is the exit code for output errors.
	ExitCodeWriteError
)

// ErrGlossconv is a parent error for all command errors.
var ErrGlossconv = errors.New("glossconv")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrGlossconv)

var copyrightNames = []string{
	"2025 Ian Lewis",
}

//nolint:gochecknoinits // init needed needed for global variable.
func init() {
	// Set the HelpFlag to a random name so that it isn't used. `cli` handles
	// the flag with the root command such that it takes a command name argument
	// but we don't use it.
	//
	// This flag is hidden by the help output.
	// See: github.com/urfave/cli/issues/1809
	cli.HelpFlag = &cli.BoolFlag{
		// NOTE: Use a random name no one would guess.
		Name:               "d41d8cd98f00b204e980",
		DisableDefaultText: true,
	}
}

// check checks the error and panics if not nil.
func check(err error) {
	if err != nil {
		panic(err)
	}
}

// exitCode returns the process exit code for err.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, ErrFlagParse):
		return ExitCodeFlagParseError
	case errors.Is(err, errdefs.ErrConfiguration), errors.Is(err, errdefs.ErrNotSupported):
		return ExitCodeConfigError
	case errors.Is(err, errdefs.ErrRead):
		return ExitCodeReadError
	case errors.Is(err, errdefs.ErrWrite):
		return ExitCodeWriteError
	}
	return ExitCodeUnknownError
}

// loadConfig loads the configuration file named by the --config flag, or
// the first existing file of configLocations, and applies --set overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		for _, p := range configLocations() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	cfg := config.Defaults()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Get().Debug("loaded config", zap.String("path", path))
	}

	overrides := map[string]any{}
	for _, kv := range c.StringSlice("set") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: --set %q: expected KEY=VALUE", ErrFlagParse, kv)
		}
		v, err := config.ParseValue(key, value)
		if err != nil {
			return nil, err
		}
		overrides[key] = v
	}
	cfg = cfg.Merge(overrides)
	cfg.Validate(logger.Get())
	return cfg, nil
}

func newGlossconvApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Convert dictionary files between formats.",
		Description: strings.Join([]string{
			"Glossary converter written in Go.",
			"http://github.com/ianlewis/go-glossary",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				Aliases: []string{"c"},
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "set configuration value `KEY=VALUE`",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log `LEVEL` (debug, info, warn, error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log `FORMAT` (console, json)",
				Value: "console",
			},

			// Special flags are shown at the end.
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		Copyright:       strings.Join(copyrightNames, "\n"),
		HideHelp:        true,
		HideHelpCommand: true,
		Before: func(c *cli.Context) error {
			if err := logger.Init(logger.Config{
				Level:    c.String("log-level"),
				Encoding: c.String("log-format"),
			}); err != nil {
				return fmt.Errorf("%w: %w", ErrFlagParse, err)
			}
			return nil
		},
		After: func(*cli.Context) error {
			// Syncing stderr fails on some platforms.
			_ = logger.Sync()
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}

			check(cli.ShowAppHelp(c))
			return nil
		},
		Commands: []*cli.Command{
			convertCommand,
			formatsCommand,
			sortKeysCommand,
			configCommand,
		},
	}
}
