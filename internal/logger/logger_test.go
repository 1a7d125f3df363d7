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

package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		expected zapcore.Level
		err      bool
	}{
		{
			name:     "defaults",
			expected: zapcore.InfoLevel,
		},
		{
			name:     "debug json",
			cfg:      Config{Level: "debug", Encoding: "json"},
			expected: zapcore.DebugLevel,
		},
		{
			name:     "development",
			cfg:      Config{Level: "warn", Development: true},
			expected: zapcore.WarnLevel,
		},
		{
			name: "bad level",
			cfg:  Config{Level: "loud"},
			err:  true,
		},
		{
			name: "bad encoding",
			cfg:  Config{Encoding: "xml"},
			err:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			test.cfg.OutputPaths = []string{filepath.Join(t.TempDir(), "log")}
			l, err := New(test.cfg)
			if got, want := err != nil, test.err; got != want {
				t.Fatalf("New: unexpected error: %v", err)
			}
			if err != nil {
				return
			}
			if got := l.Level(); got != test.expected {
				t.Errorf("Level: want: %v, got: %v", test.expected, got)
			}
		})
	}
}

func TestGet(t *testing.T) {
	if Get() == nil {
		t.Fatalf("Get: unexpected nil logger")
	}
	if err := Init(Config{Level: "error", OutputPaths: []string{filepath.Join(t.TempDir(), "log")}}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := Get().Level(); got != zapcore.ErrorLevel {
		t.Errorf("Level: want: %v, got: %v", zapcore.ErrorLevel, got)
	}
}
