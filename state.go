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

package glossary

import "go.uber.org/zap"

// State is the state of a conversion.
type State int

const (
	// Idle is the state before a conversion starts.
	Idle State = iota

	// Reading means records are read into the store, or streamed in direct
	// mode.
	Reading

	// Sorting means the store is being sorted.
	Sorting

	// Writing means records are written to the output.
	Writing

	// Done means the conversion finished.
	Done

	// Error means the conversion failed.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Sorting:
		return "sorting"
	case Writing:
		return "writing"
	case Done:
		return "done"
	case Error:
		return "error"
	}
	return "unknown"
}

// State returns the current state.
func (g *Glossary) State() State {
	return g.state
}

// History returns the states the glossary has been in, oldest first. The
// initial Idle state is not included.
func (g *Glossary) History() []State {
	out := make([]State, len(g.history))
	copy(out, g.history)
	return out
}

func (g *Glossary) setState(s State) {
	if g.state == s {
		return
	}
	g.logger.Debug("state change",
		zap.Stringer("from", g.state),
		zap.Stringer("to", s),
	)
	g.state = s
	g.history = append(g.history, s)
}
