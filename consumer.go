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

import (
	"fmt"

	"github.com/ianlewis/go-glossary/entry"
	"github.com/ianlewis/go-glossary/errdefs"
	"github.com/ianlewis/go-glossary/plugin"
)

type consumerState int

const (
	consumerNew consumerState = iota
	consumerStarted
	consumerFinished
	consumerAborted
)

// consumer drives a writer. Nothing is pushed before start, and finish and
// abort are each called at most once. A writer is not finished after it
// was aborted.
type consumer struct {
	w     plugin.Writer
	state consumerState
}

func newConsumer(w plugin.Writer) *consumer {
	return &consumer{w: w}
}

func (c *consumer) start() error {
	if c.state != consumerNew {
		return fmt.Errorf("%w: writer already started", errdefs.ErrUsage)
	}
	c.state = consumerStarted
	return c.w.Start()
}

func (c *consumer) push(r entry.Record) error {
	if c.state != consumerStarted {
		return fmt.Errorf("%w: writer not started", errdefs.ErrUsage)
	}
	return c.w.Push(r)
}

func (c *consumer) finish() error {
	switch c.state {
	case consumerFinished:
		return nil
	case consumerAborted:
		return fmt.Errorf("%w: writer aborted", errdefs.ErrUsage)
	}
	c.state = consumerFinished
	return c.w.Finish()
}

// abort discards the writer's output. It may follow a failed finish.
func (c *consumer) abort() error {
	if c.state == consumerAborted {
		return nil
	}
	c.state = consumerAborted
	return c.w.Abort()
}
